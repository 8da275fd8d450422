package offer

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fmeshio/filemesh/descriptor"
)

// FileSystem is the Offer Manager's view of the File System Adapter.
type FileSystem interface {
	Describe(pathList []string, localOwner descriptor.PeerID) (descriptors []descriptor.Descriptor, failedPaths []string)
}

// Transmitter is the Offer Manager's view of the Transmitter: the
// OfferFile method call.
type Transmitter interface {
	OfferFile(peer descriptor.PeerID, d descriptor.Descriptor) (descriptor.StatusCode, error)
}

// SendStarter is the capability to commence an outbound transfer, owned
// by the Send Manager. The Offer Manager calls it directly (bypassing the
// Send Manager's own Catalog lookup) because an ad hoc offered file is
// not necessarily in the Catalog yet.
type SendStarter interface {
	StartTransfer(d descriptor.Descriptor, peer descriptor.PeerID, start int64, length int64, chunkLength int32) descriptor.StatusCode
}

// ReceiveRequester is the capability to begin pulling an accepted
// inbound offer, owned by the Receive Manager.
type ReceiveRequester interface {
	RequestFile(peer descriptor.PeerID, fileID descriptor.FileID, saveFilename, saveDirectory string) (descriptor.StatusCode, error)
}

// RemoteCatalog is the capability to record an accepted offer's
// descriptor as known-remote, owned by the Catalog.
type RemoteCatalog interface {
	AddOfferedRemote(d descriptor.Descriptor, peer descriptor.PeerID)
}

// Identity reports this endpoint's bus identity.
type Identity interface {
	LocalPeer() descriptor.PeerID
}

const defaultTimeout = 5 * time.Second

type pendingOffer struct {
	descriptor descriptor.Descriptor
	result     chan descriptor.StatusCode
}

// Manager is the Offer Manager: an in-memory table of offers this peer
// made and is waiting on, plus the inbound side of accepting or
// declining an offer made to us.
type Manager struct {
	mu      sync.Mutex
	pending map[descriptor.FileID]*pendingOffer

	fsa            FileSystem
	transmitter    Transmitter
	sendManager    SendStarter
	receiveManager ReceiveRequester
	catalog        RemoteCatalog
	identity       Identity

	saveDirectory  string
	defaultTimeout time.Duration

	onOfferReceived func(d descriptor.Descriptor, peer descriptor.PeerID) bool
}

// New returns a Manager. saveDirectory is used as the destination
// directory when an inbound offer is accepted and auto-requested.
func New(fsa FileSystem, transmitter Transmitter, sendManager SendStarter, receiveManager ReceiveRequester, catalog RemoteCatalog, identity Identity, saveDirectory string) *Manager {
	return &Manager{
		pending:        make(map[descriptor.FileID]*pendingOffer),
		fsa:            fsa,
		transmitter:    transmitter,
		sendManager:    sendManager,
		receiveManager: receiveManager,
		catalog:        catalog,
		identity:       identity,
		saveDirectory:  saveDirectory,
		defaultTimeout: defaultTimeout,
	}
}

// SetOnOfferReceived registers the observer consulted when a peer offers
// us a file. A nil observer rejects every inbound offer.
func (m *Manager) SetOnOfferReceived(fn func(d descriptor.Descriptor, peer descriptor.PeerID) bool) {
	m.onOfferReceived = fn
}

// SetDefaultTimeout overrides the timeout OfferFile uses when called with
// timeout <= 0.
func (m *Manager) SetDefaultTimeout(d time.Duration) {
	m.defaultTimeout = d
}

// OfferFile describes path and proposes it to peer. A rejection returns
// at once; after acceptance it blocks until peer sends the RequestData
// that claims the offer, or until timeout elapses. timeout <= 0 uses the
// manager's default.
func (m *Manager) OfferFile(peer descriptor.PeerID, path string, timeout time.Duration) (descriptor.StatusCode, error) {
	descs, failed := m.fsa.Describe([]string{path}, m.identity.LocalPeer())
	if len(failed) > 0 || len(descs) == 0 {
		return descriptor.BadFilePath, nil
	}
	d := descs[0]

	result := make(chan descriptor.StatusCode, 1)
	m.mu.Lock()
	m.pending[d.FileID] = &pendingOffer{descriptor: d, result: result}
	m.mu.Unlock()

	status, err := m.transmitter.OfferFile(peer, d)
	if err != nil {
		m.removePending(d.FileID)
		return descriptor.Invalid, err
	}
	if status != descriptor.OfferAccepted {
		m.removePending(d.FileID)
		return status, nil
	}

	if timeout <= 0 {
		timeout = m.defaultTimeout
	}
	select {
	case res := <-result:
		return res, nil
	case <-time.After(timeout):
		m.removePending(d.FileID)
		logrus.WithFields(logrus.Fields{"function": "OfferFile", "peer": peer, "file_id": d.FileID.String()}).Info("offer timed out waiting for request data")
		return descriptor.OfferTimeout, nil
	}
}

// IsOfferPending reports whether fileID is currently awaiting a
// RequestData from the peer it was offered to.
func (m *Manager) IsOfferPending(fileID descriptor.FileID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.pending[fileID]
	return ok
}

// HandleRequest is consulted before the Send Manager's own handle_request
// whenever a RequestData method call arrives. If fileID matches a pending
// offer, the wait is fulfilled and the transfer commences directly
// against the known descriptor; handled reports whether this call
// consumed the request, so the caller can fall back to the Send
// Manager's Catalog-backed path when it returns false.
func (m *Manager) HandleRequest(peer descriptor.PeerID, fileID descriptor.FileID, start int64, length int64, maxChunk int32) (status descriptor.StatusCode, handled bool) {
	m.mu.Lock()
	p, ok := m.pending[fileID]
	if ok {
		delete(m.pending, fileID)
	}
	m.mu.Unlock()
	if !ok {
		return descriptor.OK, false
	}

	status = m.sendManager.StartTransfer(p.descriptor, peer, start, length, maxChunk)
	select {
	case p.result <- status:
	default:
	}
	return status, true
}

// HandleOffer is the server side of OfferFile: a peer proposed d to us.
func (m *Manager) HandleOffer(peer descriptor.PeerID, d descriptor.Descriptor) descriptor.StatusCode {
	if m.onOfferReceived == nil || !m.onOfferReceived(d, peer) {
		return descriptor.OfferRejected
	}

	m.catalog.AddOfferedRemote(d, peer)

	status, err := m.receiveManager.RequestFile(peer, d.FileID, d.Filename, m.saveDirectory)
	if err != nil {
		logrus.WithFields(logrus.Fields{"function": "HandleOffer", "peer": peer, "file_id": d.FileID.String(), "error": err.Error()}).Warn("failed to auto-request accepted offer")
		return descriptor.OfferRejected
	}
	if status != descriptor.OK {
		logrus.WithFields(logrus.Fields{"function": "HandleOffer", "peer": peer, "file_id": d.FileID.String(), "status": status.String()}).Warn("accepted offer's auto-request was rejected")
		return descriptor.OfferRejected
	}
	return descriptor.OfferAccepted
}

func (m *Manager) removePending(fileID descriptor.FileID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, fileID)
}
