package fsadapter

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fmeshio/filemesh/descriptor"
)

// cacheEntry is one row of the persisted hash cache: the file's size and
// modification time at the moment it was last hashed, alongside the
// digest itself. It is purely an optimization; it is never authoritative.
type cacheEntry struct {
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mtime"`
	SHA1    string    `json:"sha1"`
}

type hashCache struct {
	path    string
	entries map[string]cacheEntry
}

func newHashCache() *hashCache {
	return &hashCache{entries: make(map[string]cacheEntry)}
}

func (c *hashCache) lookup(path string, size int64, modTime time.Time) (descriptor.FileID, bool) {
	e, ok := c.entries[path]
	if !ok || e.Size != size || !e.ModTime.Equal(modTime) {
		return descriptor.FileID{}, false
	}
	var id descriptor.FileID
	if n, err := hex.Decode(id[:], []byte(e.SHA1)); err != nil || n != descriptor.FileIDLength {
		return descriptor.FileID{}, false
	}
	return id, true
}

func (c *hashCache) store(path string, size int64, modTime time.Time, id descriptor.FileID) {
	c.entries[path] = cacheEntry{Size: size, ModTime: modTime, SHA1: id.String()}
}

// SetCacheFile changes the backing cache file. If a cache file was already
// configured, its contents are flushed before switching; the new path's
// contents (if any) are then loaded. Passing "" detaches the cache file
// without discarding in-memory entries.
func (f *FSA) SetCacheFile(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cache.path != "" {
		if err := f.cache.flush(); err != nil {
			logrus.WithFields(logrus.Fields{"function": "SetCacheFile", "path": f.cache.path, "error": err.Error()}).Warn("failed to flush previous hash cache")
		}
	}

	f.cache.path = path
	if path == "" {
		return nil
	}
	return f.cache.load()
}

// CleanCacheFile removes entries whose backing file is missing or whose
// current size/mtime diverge from the cached value, then persists the
// result.
func (f *FSA) CleanCacheFile() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for path, entry := range f.cache.entries {
		info, err := os.Stat(path)
		if err != nil || info.Size() != entry.Size || !info.ModTime().Equal(entry.ModTime) {
			delete(f.cache.entries, path)
		}
	}
	if f.cache.path == "" {
		return nil
	}
	return f.cache.flush()
}

func (c *hashCache) flush() error {
	data, err := json.Marshal(c.entries)
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0o644)
}

// load tolerates a missing, empty, or corrupt cache file by treating it as
// an empty cache.
func (c *hashCache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			c.entries = make(map[string]cacheEntry)
			return nil
		}
		return err
	}
	var loaded map[string]cacheEntry
	if err := json.Unmarshal(data, &loaded); err != nil {
		logrus.WithFields(logrus.Fields{"function": "load", "path": c.path, "error": err.Error()}).Warn("hash cache file corrupt, starting empty")
		loaded = make(map[string]cacheEntry)
	}
	if loaded == nil {
		loaded = make(map[string]cacheEntry)
	}
	c.entries = loaded
	return nil
}
