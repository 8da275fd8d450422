package fsadapter

import (
	"crypto/sha1"
	"os"
	"path/filepath"
	"testing"

	"github.com/fmeshio/filemesh/descriptor"
)

func writeTempFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestDescribeContentIdentity(t *testing.T) {
	dir := t.TempDir()
	content := []byte("hello, file transfer core")
	writeTempFile(t, dir, "a.bin", content)

	fsa := New()
	descs, failed := fsa.Describe([]string{filepath.Join(dir, "a.bin")}, "alice")
	if len(failed) != 0 {
		t.Fatalf("unexpected failures: %v", failed)
	}
	if len(descs) != 1 {
		t.Fatalf("expected 1 descriptor, got %d", len(descs))
	}

	want := sha1.Sum(content)
	if descs[0].FileID != want {
		t.Fatalf("file id mismatch: got %x want %x", descs[0].FileID, want)
	}
	if descs[0].Size != int64(len(content)) {
		t.Fatalf("size mismatch: got %d want %d", descs[0].Size, len(content))
	}
	if descs[0].Owner != "alice" {
		t.Fatalf("owner mismatch: %q", descs[0].Owner)
	}
}

func TestDescribeDirectoryRecurses(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeTempFile(t, dir, "top.bin", []byte("top"))
	writeTempFile(t, sub, "nested.bin", []byte("nested"))

	fsa := New()
	descs, failed := fsa.Describe([]string{dir}, "alice")
	if len(failed) != 0 {
		t.Fatalf("unexpected failures: %v", failed)
	}
	if len(descs) != 2 {
		t.Fatalf("expected 2 descriptors, got %d", len(descs))
	}
}

func TestDescribeMissingPathFails(t *testing.T) {
	fsa := New()
	_, failed := fsa.Describe([]string{"/nonexistent/path/xyz"}, "alice")
	if len(failed) != 1 || failed[0] != "/nonexistent/path/xyz" {
		t.Fatalf("expected missing path to be reported as failed, got %v", failed)
	}
}

func TestReadChunkShortReadAtEOF(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "f.bin", []byte("12345"))

	fsa := New()
	chunk, err := fsa.ReadChunk(path, 2, 10)
	if err != nil {
		t.Fatalf("read chunk: %v", err)
	}
	if string(chunk) != "345" {
		t.Fatalf("expected short read '345', got %q", chunk)
	}
}

func TestAppendChunkBuildsFileInOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")

	fsa := New()
	if err := fsa.AppendChunk(path, []byte("hello"), 0, 5); err != nil {
		t.Fatalf("append 1: %v", err)
	}
	if err := fsa.AppendChunk(path, []byte(" world"), 5, 6); err != nil {
		t.Fatalf("append 2: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read result: %v", err)
	}
	if string(got) != "hello world" {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestDeleteAndIsValid(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "f.bin", []byte("x"))

	fsa := New()
	if !fsa.IsValid(dir) {
		t.Fatalf("expected directory to be valid")
	}
	if fsa.IsValid(path) {
		t.Fatalf("expected a regular file to be invalid as a save directory")
	}
	if !fsa.Delete(path) {
		t.Fatalf("expected delete to succeed")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected file to be gone")
	}
}

func TestBuildPath(t *testing.T) {
	d := descriptor.Descriptor{SharedPath: "/shared", RelativePath: "rel", Filename: "name.bin"}
	got := BuildPath(d)
	want := filepath.Join("/shared", "rel", "name.bin")
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
