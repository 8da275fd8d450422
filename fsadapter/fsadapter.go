package fsadapter

import (
	"crypto/sha1"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/fmeshio/filemesh/descriptor"
)

// FSA implements the File System Adapter. A single instance is meant to
// be constructed once and shared across the core's managers.
type FSA struct {
	mu    sync.Mutex
	cache *hashCache
}

// New returns an FSA with no hash cache configured.
func New() *FSA {
	return &FSA{cache: newHashCache()}
}

// Describe materializes Descriptors for each entry in pathList. A
// directory entry is recursively enumerated; every regular file found
// contributes one Descriptor. Ordering within a directory is stable for a
// given traversal but otherwise unspecified.
func (f *FSA) Describe(pathList []string, localOwner descriptor.PeerID) (descriptors []descriptor.Descriptor, failedPaths []string) {
	for _, p := range pathList {
		descs, ok := f.describeOne(p, localOwner)
		if !ok {
			failedPaths = append(failedPaths, p)
			continue
		}
		descriptors = append(descriptors, descs...)
	}
	return descriptors, failedPaths
}

func (f *FSA) describeOne(path string, owner descriptor.PeerID) ([]descriptor.Descriptor, bool) {
	info, err := os.Stat(path)
	if err != nil {
		logrus.WithFields(logrus.Fields{"function": "Describe", "path": path, "error": err.Error()}).Warn("path not accessible")
		return nil, false
	}

	if !info.IsDir() {
		d, err := f.describeFile(filepath.Dir(path), "", filepath.Base(path), owner)
		if err != nil {
			logrus.WithFields(logrus.Fields{"function": "Describe", "path": path, "error": err.Error()}).Warn("failed to describe file")
			return nil, false
		}
		return []descriptor.Descriptor{d}, true
	}

	var out []descriptor.Descriptor
	anyFailed := false
	_ = filepath.WalkDir(path, func(walked string, d fs.DirEntry, err error) error {
		if err != nil {
			anyFailed = true
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(path, filepath.Dir(walked))
		if relErr != nil {
			anyFailed = true
			return nil
		}
		if rel == "." {
			rel = ""
		}
		desc, descErr := f.describeFile(path, rel, d.Name(), owner)
		if descErr != nil {
			anyFailed = true
			return nil
		}
		out = append(out, desc)
		return nil
	})
	if anyFailed && len(out) == 0 {
		return nil, false
	}
	return out, true
}

func (f *FSA) describeFile(shared, relative, filename string, owner descriptor.PeerID) (descriptor.Descriptor, error) {
	full := filepath.Join(shared, relative, filename)
	fh, err := os.Open(full)
	if err != nil {
		return descriptor.Descriptor{}, err
	}
	defer fh.Close()

	info, err := fh.Stat()
	if err != nil {
		return descriptor.Descriptor{}, err
	}

	sum, err := f.hashOf(full, info)
	if err != nil {
		return descriptor.Descriptor{}, err
	}

	return descriptor.Descriptor{
		Owner:        owner,
		SharedPath:   shared,
		RelativePath: relative,
		Filename:     filename,
		FileID:       sum,
		Size:         info.Size(),
	}, nil
}

// hashOf consults the hash cache before recomputing a SHA-1 digest.
func (f *FSA) hashOf(absPath string, info os.FileInfo) (descriptor.FileID, error) {
	f.mu.Lock()
	if cached, ok := f.cache.lookup(absPath, info.Size(), info.ModTime()); ok {
		f.mu.Unlock()
		return cached, nil
	}
	f.mu.Unlock()

	sum, err := hashFile(absPath)
	if err != nil {
		return descriptor.FileID{}, err
	}

	f.mu.Lock()
	f.cache.store(absPath, info.Size(), info.ModTime(), sum)
	f.mu.Unlock()

	return sum, nil
}

func hashFile(path string) (descriptor.FileID, error) {
	fh, err := os.Open(path)
	if err != nil {
		return descriptor.FileID{}, err
	}
	defer fh.Close()

	h := sha1.New()
	if _, err := io.Copy(h, fh); err != nil {
		return descriptor.FileID{}, err
	}
	var id descriptor.FileID
	copy(id[:], h.Sum(nil))
	return id, nil
}

// ReadChunk reads exactly length bytes at offset from path. A short read
// at EOF is treated as end of file and the bytes actually read are
// returned without error.
func (f *FSA) ReadChunk(path string, offset int64, length int32) ([]byte, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	buf := make([]byte, length)
	n, err := fh.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}

// AppendChunk appends bytes to path at offset. The core requires that
// chunks for a given transfer arrive in strictly increasing offset (spec
// §5); this method trusts that invariant and simply writes at the given
// offset, extending the file as needed.
func (f *FSA) AppendChunk(path string, data []byte, offset int64, length int32) error {
	fh, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer fh.Close()

	n := int(length)
	if n > len(data) {
		n = len(data)
	}
	_, err = fh.WriteAt(data[:n], offset)
	return err
}

// Delete removes path, reporting whether the removal succeeded.
func (f *FSA) Delete(path string) bool {
	if err := os.Remove(path); err != nil {
		logrus.WithFields(logrus.Fields{"function": "Delete", "path": path, "error": err.Error()}).Warn("failed to delete file")
		return false
	}
	return true
}

// IsValid reports whether path is an existing directory in which a file
// can be created, i.e. usable as a save directory. A regular file is
// never valid.
func (f *FSA) IsValid(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if !info.IsDir() {
		return false
	}
	fh, err := os.OpenFile(filepath.Join(path, ".filemesh-writetest"), os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return false
	}
	name := fh.Name()
	fh.Close()
	os.Remove(name)
	return true
}

// BuildPath concatenates a Descriptor's SharedPath, RelativePath, and
// Filename using the platform separator.
func BuildPath(d descriptor.Descriptor) string {
	return filepath.Join(d.SharedPath, d.RelativePath, d.Filename)
}
