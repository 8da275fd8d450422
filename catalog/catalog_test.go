package catalog

import (
	"testing"

	"github.com/fmeshio/filemesh/descriptor"
)

func mkDescriptor(owner descriptor.PeerID, path string, id byte, size int64) descriptor.Descriptor {
	return descriptor.Descriptor{
		Owner:      owner,
		SharedPath: "/shared",
		Filename:   path,
		FileID:     descriptor.FileID{id},
		Size:       size,
	}
}

func TestAddAnnouncedLocalAndRemoveByPath(t *testing.T) {
	c := New()
	c.AddAnnouncedLocal([]descriptor.Descriptor{
		mkDescriptor("alice", "x.bin", 1, 10),
		mkDescriptor("alice", "y.bin", 2, 20),
	})
	if len(c.AnnouncedLocal()) != 2 {
		t.Fatalf("expected 2 announced entries")
	}

	failed := c.RemoveAnnouncedLocal([]string{"/shared/x.bin", "/shared/z.bin"})
	if len(failed) != 1 || failed[0] != "/shared/z.bin" {
		t.Fatalf("expected only z.bin to fail, got %v", failed)
	}
	remaining := c.AnnouncedLocal()
	if len(remaining) != 1 || remaining[0].Filename != "y.bin" {
		t.Fatalf("unexpected remaining set: %v", remaining)
	}
}

func TestDuplicateFileIDReplacesAcrossLocalMaps(t *testing.T) {
	c := New()
	d := mkDescriptor("alice", "first/path.bin", 5, 100)
	c.AddOfferedLocal(d)
	if _, ok := c.LookupLocal(d.FileID); !ok {
		t.Fatalf("expected offered descriptor to be found")
	}

	// Re-announcing the same content under a different path replaces the
	// older entry rather than keeping both.
	d2 := d
	d2.Filename = "second/path.bin"
	c.AddAnnouncedLocal([]descriptor.Descriptor{d2})

	got, ok := c.LookupLocal(d.FileID)
	if !ok {
		t.Fatalf("expected replaced descriptor to be found")
	}
	if got.Filename != "second/path.bin" {
		t.Fatalf("expected replacement path, got %q", got.Filename)
	}
	if len(c.OfferedLocal()) != 0 {
		t.Fatalf("expected offered_local to no longer contain the file id")
	}
}

func TestUpdateAnnouncedRemoteIsFullReplacement(t *testing.T) {
	c := New()
	c.UpdateAnnouncedRemote([]descriptor.Descriptor{mkDescriptor("bob", "a.bin", 1, 1)}, "bob")
	c.UpdateAnnouncedRemote([]descriptor.Descriptor{mkDescriptor("bob", "b.bin", 2, 2)}, "bob")

	list := c.AnnouncedRemote("bob")
	if len(list) != 1 || list[0].Filename != "b.bin" {
		t.Fatalf("expected full replacement, got %v", list)
	}
}

func TestLookupRemoteChecksBothMaps(t *testing.T) {
	c := New()
	announced := mkDescriptor("bob", "a.bin", 1, 1)
	offered := mkDescriptor("bob", "b.bin", 2, 2)
	c.UpdateAnnouncedRemote([]descriptor.Descriptor{announced}, "bob")
	c.AddOfferedRemote(offered, "bob")

	if _, ok := c.LookupRemote("bob", announced.FileID); !ok {
		t.Fatalf("expected to find announced descriptor")
	}
	if _, ok := c.LookupRemote("bob", offered.FileID); !ok {
		t.Fatalf("expected to find offered descriptor")
	}
	if _, ok := c.LookupRemote("bob", descriptor.FileID{99}); ok {
		t.Fatalf("expected miss for unknown file id")
	}
}

func TestResetRewritesLocalOwnersAndClearsRemote(t *testing.T) {
	c := New()
	c.AddAnnouncedLocal([]descriptor.Descriptor{mkDescriptor("old-identity", "a.bin", 1, 1)})
	c.UpdateAnnouncedRemote([]descriptor.Descriptor{mkDescriptor("bob", "b.bin", 2, 2)}, "bob")

	c.Reset("new-identity")

	local := c.AnnouncedLocal()
	if len(local) != 1 || local[0].Owner != "new-identity" {
		t.Fatalf("expected owner rewritten, got %v", local)
	}
	if len(c.AnnouncedRemote("bob")) != 0 {
		t.Fatalf("expected remote index cleared on reset")
	}
}

func TestResetWithEmptyIdentityKeepsLocalOffline(t *testing.T) {
	c := New()
	c.AddAnnouncedLocal([]descriptor.Descriptor{mkDescriptor("old-identity", "a.bin", 1, 1)})
	c.Reset("")

	local := c.AnnouncedLocal()
	if len(local) != 1 || local[0].Owner != "" {
		t.Fatalf("expected owner cleared but descriptor retained, got %v", local)
	}
}
