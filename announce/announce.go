package announce

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/fmeshio/filemesh/descriptor"
	"github.com/fmeshio/filemesh/dispatch"
)

// FileSystem is the Announcement Manager's view of the File System
// Adapter: describing a set of paths into Descriptors.
type FileSystem interface {
	Describe(pathList []string, localOwner descriptor.PeerID) (descriptors []descriptor.Descriptor, failedPaths []string)
}

// LocalCatalog is the Announcement Manager's view of the Catalog.
type LocalCatalog interface {
	AddAnnouncedLocal(list []descriptor.Descriptor)
	RemoveAnnouncedLocal(paths []string) (failedPaths []string)
	AnnouncedLocal() []descriptor.Descriptor
	UpdateAnnouncedRemote(list []descriptor.Descriptor, peer descriptor.PeerID)
}

// Queue is the capability to enqueue an outbound Action on the Dispatcher.
type Queue interface {
	Enqueue(a dispatch.Action)
}

// Identity reports this endpoint's bus identity and attachment state.
type Identity interface {
	LocalPeer() descriptor.PeerID
	Connected() bool
}

// Manager is the Announcement Manager: it owns the broadcast/request-
// response side of catalog exchange, and the visibility policy applied to
// every path before it leaves this process.
type Manager struct {
	fsa      FileSystem
	catalog  LocalCatalog
	queue    Queue
	identity Identity

	mu               sync.Mutex
	showRelativePath bool
	showSharedPath   bool

	onAnnouncementSent     func(failedPaths []string)
	onAnnouncementReceived func(list []descriptor.Descriptor, isOfferResponse bool, peer descriptor.PeerID)
}

// New returns a Manager with the documented defaults: relative paths are
// shown, shared-directory paths are not.
func New(fsa FileSystem, catalog LocalCatalog, queue Queue, identity Identity) *Manager {
	return &Manager{
		fsa:              fsa,
		catalog:          catalog,
		queue:            queue,
		identity:         identity,
		showRelativePath: true,
		showSharedPath:   false,
	}
}

// SetOnAnnouncementSent registers the observer invoked after Announce
// finishes hashing, with any paths that could not be described.
func (m *Manager) SetOnAnnouncementSent(fn func(failedPaths []string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onAnnouncementSent = fn
}

// SetOnAnnouncementReceived registers the observer invoked whenever a
// plain (broadcast or directed) remote catalog is learned; this Manager
// always passes isOfferResponse false. Offer-responses are delivered
// through DirectedManager.SetOnAnnouncementReceived instead.
func (m *Manager) SetOnAnnouncementReceived(fn func(list []descriptor.Descriptor, isOfferResponse bool, peer descriptor.PeerID)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onAnnouncementReceived = fn
}

// SetShowRelativePath controls whether RelativePath survives into an
// outbound Descriptor.
func (m *Manager) SetShowRelativePath(show bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.showRelativePath = show
}

// ShowRelativePath reports the current policy.
func (m *Manager) ShowRelativePath() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.showRelativePath
}

// SetShowSharedPath controls whether SharedPath survives into an outbound
// Descriptor.
func (m *Manager) SetShowSharedPath(show bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.showSharedPath = show
}

// ShowSharedPath reports the current policy.
func (m *Manager) ShowSharedPath() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.showSharedPath
}

// Announce describes each path, applies the current visibility policy,
// records the result in the Catalog, and broadcasts it. Hashing runs on
// its own goroutine so the caller is never blocked by it.
func (m *Manager) Announce(pathList []string) {
	go m.announce(pathList)
}

func (m *Manager) announce(pathList []string) {
	descs, failed := m.fsa.Describe(pathList, m.identity.LocalPeer())

	m.mu.Lock()
	showRelative, showShared := m.showRelativePath, m.showSharedPath
	m.mu.Unlock()

	for i := range descs {
		if !showRelative {
			descs[i].RelativePath = ""
		}
		if !showShared {
			descs[i].SharedPath = ""
		}
	}

	m.catalog.AddAnnouncedLocal(descs)
	m.queue.Enqueue(dispatch.Announce{Files: descs, IsOfferResponse: false})

	logrus.WithFields(logrus.Fields{"function": "Announce", "count": len(descs), "failed": len(failed)}).Info("announced local files")

	m.mu.Lock()
	cb := m.onAnnouncementSent
	m.mu.Unlock()
	if cb != nil {
		cb(failed)
	}
}

// StopAnnounce removes each path from announced_local and broadcasts the
// resulting (possibly smaller) catalog. Paths not currently announced are
// reported in the returned failedPaths.
func (m *Manager) StopAnnounce(pathList []string) (failedPaths []string) {
	failedPaths = m.catalog.RemoveAnnouncedLocal(pathList)
	m.queue.Enqueue(dispatch.Announce{Files: m.catalog.AnnouncedLocal(), IsOfferResponse: false})
	return failedPaths
}

// RequestAnnouncement asks peer to send its announced_local set directly
// to us. Returns NoFileAnnouncementListener if no observer is registered
// to receive the reply, or NoAjConnection if there is no attached
// session.
func (m *Manager) RequestAnnouncement(peer descriptor.PeerID) descriptor.StatusCode {
	m.mu.Lock()
	hasListener := m.onAnnouncementReceived != nil
	m.mu.Unlock()

	if !hasListener {
		return descriptor.NoFileAnnouncementListener
	}
	if !m.identity.Connected() {
		return descriptor.NoAjConnection
	}
	m.queue.Enqueue(dispatch.RequestAnnouncement{Peer: peer})
	return descriptor.OK
}

// HandleAnnouncedFiles implements receiver.AnnouncementHandler: a plain
// (non offer-response) announcement arrived, broadcast or directed.
func (m *Manager) HandleAnnouncedFiles(list []descriptor.Descriptor, peer descriptor.PeerID) {
	m.catalog.UpdateAnnouncedRemote(list, peer)

	m.mu.Lock()
	cb := m.onAnnouncementReceived
	m.mu.Unlock()
	if cb != nil {
		cb(list, false, peer)
	}
}

// HandleAnnouncementRequest implements receiver.AnnouncementRequestHandler:
// peer asked us to announce our catalog back to it directly.
func (m *Manager) HandleAnnouncementRequest(peer descriptor.PeerID) {
	m.queue.Enqueue(dispatch.Announce{Files: m.catalog.AnnouncedLocal(), IsOfferResponse: false, Peer: peer})
}
