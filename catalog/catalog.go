package catalog

import (
	"path/filepath"
	"sync"

	"github.com/fmeshio/filemesh/descriptor"
)

// Catalog holds the in-memory, process-local indexes described in spec
// §3: files this peer has announced or offered, and files announced or
// offered to this peer by others. It does no I/O and knows nothing about
// the bus or the file system.
type Catalog struct {
	mu sync.RWMutex

	announcedLocal map[descriptor.FileID]descriptor.Descriptor
	offeredLocal   map[descriptor.FileID]descriptor.Descriptor

	announcedRemote map[descriptor.PeerID]map[descriptor.FileID]descriptor.Descriptor
	offeredRemote   map[descriptor.PeerID]map[descriptor.FileID]descriptor.Descriptor
}

// New returns an empty Catalog.
func New() *Catalog {
	return &Catalog{
		announcedLocal:  make(map[descriptor.FileID]descriptor.Descriptor),
		offeredLocal:    make(map[descriptor.FileID]descriptor.Descriptor),
		announcedRemote: make(map[descriptor.PeerID]map[descriptor.FileID]descriptor.Descriptor),
		offeredRemote:   make(map[descriptor.PeerID]map[descriptor.FileID]descriptor.Descriptor),
	}
}

func buildPath(d descriptor.Descriptor) string {
	return filepath.Join(d.SharedPath, d.RelativePath, d.Filename)
}

// AddAnnouncedLocal adds each descriptor to announced_local, replacing any
// existing entry with the same FileID regardless of which local map it
// previously lived in — file_id is unique across announced_local ∪
// offered_local at any instant.
func (c *Catalog) AddAnnouncedLocal(list []descriptor.Descriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range list {
		delete(c.offeredLocal, d.FileID)
		c.announcedLocal[d.FileID] = d
	}
}

// RemoveAnnouncedLocal removes the announced_local entries matching the
// given paths. A path matching no announced file is reported in the
// returned failedPaths.
func (c *Catalog) RemoveAnnouncedLocal(paths []string) (failedPaths []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range paths {
		found := false
		for id, d := range c.announcedLocal {
			if buildPath(d) == p {
				delete(c.announcedLocal, id)
				found = true
				break
			}
		}
		if !found {
			failedPaths = append(failedPaths, p)
		}
	}
	return failedPaths
}

// AddOfferedLocal records a descriptor this peer offered or responded to
// an offer-request for, replacing any announced_local entry for the same
// FileID.
func (c *Catalog) AddOfferedLocal(d descriptor.Descriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.announcedLocal, d.FileID)
	c.offeredLocal[d.FileID] = d
}

// UpdateAnnouncedRemote replaces the entire announced_remote set for peer
// with list (spec's "catalog replacement" property: the result equals
// list exactly, regardless of what was there before).
func (c *Catalog) UpdateAnnouncedRemote(list []descriptor.Descriptor, peer descriptor.PeerID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := make(map[descriptor.FileID]descriptor.Descriptor, len(list))
	for _, d := range list {
		m[d.FileID] = d
	}
	c.announcedRemote[peer] = m
}

// AddOfferedRemote records a descriptor offered to us, or returned in
// response to our own offer-request, by peer.
func (c *Catalog) AddOfferedRemote(d descriptor.Descriptor, peer descriptor.PeerID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.offeredRemote[peer]
	if m == nil {
		m = make(map[descriptor.FileID]descriptor.Descriptor)
		c.offeredRemote[peer] = m
	}
	m[d.FileID] = d
}

// LookupLocal finds a descriptor by FileID in announced_local ∪
// offered_local, used by the Send Manager to answer a request for data.
func (c *Catalog) LookupLocal(id descriptor.FileID) (descriptor.Descriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if d, ok := c.announcedLocal[id]; ok {
		return d, true
	}
	d, ok := c.offeredLocal[id]
	return d, ok
}

// LookupLocalByPath finds a local descriptor (announced or offered) whose
// build path equals path, used by the Directed Announcement Manager to
// check whether an offer-request names an already-known file.
func (c *Catalog) LookupLocalByPath(path string) (descriptor.Descriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, d := range c.announcedLocal {
		if buildPath(d) == path {
			return d, true
		}
	}
	for _, d := range c.offeredLocal {
		if buildPath(d) == path {
			return d, true
		}
	}
	return descriptor.Descriptor{}, false
}

// LookupRemote finds a descriptor by FileID in announced_remote[peer] ∪
// offered_remote[peer], used by the Receive Manager to validate a request.
func (c *Catalog) LookupRemote(peer descriptor.PeerID, id descriptor.FileID) (descriptor.Descriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if m, ok := c.announcedRemote[peer]; ok {
		if d, ok := m[id]; ok {
			return d, true
		}
	}
	if m, ok := c.offeredRemote[peer]; ok {
		if d, ok := m[id]; ok {
			return d, true
		}
	}
	return descriptor.Descriptor{}, false
}

// AnnouncedLocal returns a snapshot of every locally announced descriptor.
func (c *Catalog) AnnouncedLocal() []descriptor.Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]descriptor.Descriptor, 0, len(c.announcedLocal))
	for _, d := range c.announcedLocal {
		out = append(out, d)
	}
	return out
}

// OfferedLocal returns a snapshot of every locally offered descriptor.
func (c *Catalog) OfferedLocal() []descriptor.Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]descriptor.Descriptor, 0, len(c.offeredLocal))
	for _, d := range c.offeredLocal {
		out = append(out, d)
	}
	return out
}

// AnnouncedRemote returns a snapshot of what peer has announced to us.
func (c *Catalog) AnnouncedRemote(peer descriptor.PeerID) []descriptor.Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m := c.announcedRemote[peer]
	out := make([]descriptor.Descriptor, 0, len(m))
	for _, d := range m {
		out = append(out, d)
	}
	return out
}

// OfferedRemote returns a snapshot of what peer has offered to us.
func (c *Catalog) OfferedRemote(peer descriptor.PeerID) []descriptor.Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m := c.offeredRemote[peer]
	out := make([]descriptor.Descriptor, 0, len(m))
	for _, d := range m {
		out = append(out, d)
	}
	return out
}

// Reset rewrites the Owner field of every local descriptor to
// localBusID, reflecting a new session identity. If localBusID is empty,
// local descriptors are retained with an empty owner — an offline mode
// that keeps the catalog usable between sessions. Remote indexes are
// cleared: a session change invalidates the peer identities they were
// keyed and populated under.
func (c *Catalog) Reset(localBusID descriptor.PeerID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, d := range c.announcedLocal {
		d.Owner = localBusID
		c.announcedLocal[id] = d
	}
	for id, d := range c.offeredLocal {
		d.Owner = localBusID
		c.offeredLocal[id] = d
	}
	c.announcedRemote = make(map[descriptor.PeerID]map[descriptor.FileID]descriptor.Descriptor)
	c.offeredRemote = make(map[descriptor.PeerID]map[descriptor.FileID]descriptor.Descriptor)
}
