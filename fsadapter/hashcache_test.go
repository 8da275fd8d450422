package fsadapter

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHashCacheRoundTripsThroughFlushAndReload(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "cache.json")
	filePath := writeTempFile(t, dir, "a.bin", []byte("content one"))

	fsa := New()
	if err := fsa.SetCacheFile(cachePath); err != nil {
		t.Fatalf("set cache file: %v", err)
	}
	descs, _ := fsa.Describe([]string{filePath}, "alice")
	if len(descs) != 1 {
		t.Fatalf("expected 1 descriptor")
	}
	first := descs[0].FileID

	// Re-point to a fresh file; prior cache should flush to disk.
	if err := fsa.SetCacheFile(filepath.Join(dir, "cache2.json")); err != nil {
		t.Fatalf("set cache file 2: %v", err)
	}
	if _, err := os.Stat(cachePath); err != nil {
		t.Fatalf("expected first cache file to have been flushed: %v", err)
	}

	// A fresh FSA loading the flushed cache should reuse the hash without
	// needing to touch the file content again (we can't observe that
	// directly without instrumentation, but we can assert it still
	// round-trips to the same id).
	fsa2 := New()
	if err := fsa2.SetCacheFile(cachePath); err != nil {
		t.Fatalf("load cache: %v", err)
	}
	descs2, _ := fsa2.Describe([]string{filePath}, "alice")
	if descs2[0].FileID != first {
		t.Fatalf("hash mismatch after cache reload")
	}
}

func TestHashCacheToleratesCorruptFile(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "corrupt.json")
	if err := os.WriteFile(cachePath, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt cache: %v", err)
	}

	fsa := New()
	if err := fsa.SetCacheFile(cachePath); err != nil {
		t.Fatalf("expected corrupt cache to load as empty, got error: %v", err)
	}
}

func TestCleanCacheFileRemovesStaleEntries(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "cache.json")
	filePath := writeTempFile(t, dir, "a.bin", []byte("v1"))

	fsa := New()
	if err := fsa.SetCacheFile(cachePath); err != nil {
		t.Fatalf("set cache: %v", err)
	}
	fsa.Describe([]string{filePath}, "alice")

	if err := os.Remove(filePath); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := fsa.CleanCacheFile(); err != nil {
		t.Fatalf("clean cache: %v", err)
	}
	if len(fsa.cache.entries) != 0 {
		t.Fatalf("expected stale entry to be removed, found %d", len(fsa.cache.entries))
	}
}
