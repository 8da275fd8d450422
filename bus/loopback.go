package bus

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/fmeshio/filemesh/descriptor"
)

// ErrNoSuchPeer is returned when a directed operation names a peer that
// has never joined the Network.
var ErrNoSuchPeer = errors.New("bus: no such peer on session")

// ErrNotConnected reports an operation attempted without an attached
// session. Loopback never returns it: every Loopback is created by
// Network.Join and is attached from the start.
var ErrNotConnected = errors.New("bus: not connected to a session")

// Network is an in-process hub connecting Loopback endpoints, standing in
// for the real session bus in tests: a
// drop-in non-network implementation of the same interface a production
// transport satisfies.
type Network struct {
	mu      sync.RWMutex
	session string
	members map[descriptor.PeerID]*Loopback
}

// NewNetwork creates an empty Network for the given session id.
func NewNetwork(sessionID string) *Network {
	return &Network{session: sessionID, members: make(map[descriptor.PeerID]*Loopback)}
}

// Join attaches a new Loopback endpoint to the network. If peer is "", a
// fresh identity is minted with uuid.NewString — the one place the core's
// reference bus needs a collision-resistant opaque id generator.
func (n *Network) Join(peer descriptor.PeerID) *Loopback {
	if peer == "" {
		peer = descriptor.PeerID(uuid.NewString())
	}
	lb := &Loopback{network: n, self: peer}
	n.mu.Lock()
	n.members[peer] = lb
	n.mu.Unlock()
	return lb
}

// Leave detaches a peer from the network; subsequent broadcasts no longer
// reach it, and directed emissions and method calls addressed to it
// return ErrNoSuchPeer.
func (n *Network) Leave(peer descriptor.PeerID) {
	n.mu.Lock()
	delete(n.members, peer)
	n.mu.Unlock()
}

func (n *Network) peerList(exclude descriptor.PeerID) []*Loopback {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*Loopback, 0, len(n.members))
	for id, lb := range n.members {
		if id == exclude {
			continue
		}
		out = append(out, lb)
	}
	return out
}

func (n *Network) lookup(peer descriptor.PeerID) (*Loopback, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	lb, ok := n.members[peer]
	return lb, ok
}

// Loopback is a Bus implementation backed by a Network. Signal emission
// delivers on a fresh goroutine per recipient, since handler methods must
// be safe for concurrent invocation alongside producer calls; method
// calls block synchronously, matching a real session bus.
type Loopback struct {
	network *Network
	self    descriptor.PeerID

	mu            sync.RWMutex
	signalHandler SignalHandler
	methodHandler MethodHandler
}

var _ Bus = (*Loopback)(nil)

func (l *Loopback) LocalPeer() descriptor.PeerID { return l.self }
func (l *Loopback) SessionID() string            { return l.network.session }
func (l *Loopback) Connected() bool              { return l.network != nil }

func (l *Loopback) RegisterSignalHandler(h SignalHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.signalHandler = h
}

func (l *Loopback) RegisterMethodHandler(h MethodHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.methodHandler = h
}

func (l *Loopback) handlerFor(peer descriptor.PeerID) (*Loopback, error) {
	lb, ok := l.network.lookup(peer)
	if !ok {
		return nil, ErrNoSuchPeer
	}
	return lb, nil
}

func (l *Loopback) EmitAnnounce(list []descriptor.Descriptor, isOfferResponse bool, peer descriptor.PeerID) error {
	targets, err := l.targets(peer)
	if err != nil {
		return err
	}
	cp := append([]descriptor.Descriptor(nil), list...)
	for _, t := range targets {
		t := t
		go t.deliverAnnounce(cp, isOfferResponse, l.self)
	}
	return nil
}

func (l *Loopback) EmitRequestAnnouncement(peer descriptor.PeerID) error {
	targets, err := l.targets(peer)
	if err != nil {
		return err
	}
	for _, t := range targets {
		t := t
		go t.deliverRequestAnnouncement(l.self)
	}
	return nil
}

func (l *Loopback) EmitDataChunk(fileID descriptor.FileID, start int64, length int32, chunk []byte, peer descriptor.PeerID) error {
	target, err := l.handlerFor(peer)
	if err != nil {
		return err
	}
	cp := append([]byte(nil), chunk...)
	go target.deliverDataChunk(fileID, start, length, cp, l.self)
	return nil
}

func (l *Loopback) EmitStopXfer(fileID descriptor.FileID, peer descriptor.PeerID) error {
	target, err := l.handlerFor(peer)
	if err != nil {
		return err
	}
	go target.deliverStopXfer(fileID, l.self)
	return nil
}

func (l *Loopback) EmitXferCancelled(fileID descriptor.FileID, peer descriptor.PeerID) error {
	target, err := l.handlerFor(peer)
	if err != nil {
		return err
	}
	go target.deliverXferCancelled(fileID, l.self)
	return nil
}

func (l *Loopback) CallRequestData(peer descriptor.PeerID, fileID descriptor.FileID, start int64, length int32, maxChunk int32) (descriptor.StatusCode, error) {
	target, err := l.handlerFor(peer)
	if err != nil {
		return descriptor.Invalid, err
	}
	h := target.currentMethodHandler()
	if h == nil {
		return descriptor.Invalid, errors.New("bus: peer has no method handler registered")
	}
	return h.OnRequestData(l.self, fileID, start, length, maxChunk), nil
}

func (l *Loopback) CallOfferFile(peer descriptor.PeerID, d descriptor.Descriptor) (descriptor.StatusCode, error) {
	target, err := l.handlerFor(peer)
	if err != nil {
		return descriptor.Invalid, err
	}
	h := target.currentMethodHandler()
	if h == nil {
		return descriptor.Invalid, errors.New("bus: peer has no method handler registered")
	}
	return h.OnOfferFile(l.self, d), nil
}

func (l *Loopback) CallRequestOffer(peer descriptor.PeerID, path string) (descriptor.StatusCode, error) {
	target, err := l.handlerFor(peer)
	if err != nil {
		return descriptor.Invalid, err
	}
	h := target.currentMethodHandler()
	if h == nil {
		return descriptor.Invalid, errors.New("bus: peer has no method handler registered")
	}
	return h.OnRequestOffer(l.self, path), nil
}

func (l *Loopback) targets(peer descriptor.PeerID) ([]*Loopback, error) {
	if peer == "" {
		return l.network.peerList(l.self), nil
	}
	t, err := l.handlerFor(peer)
	if err != nil {
		return nil, err
	}
	return []*Loopback{t}, nil
}

func (l *Loopback) currentMethodHandler() MethodHandler {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.methodHandler
}

func (l *Loopback) currentSignalHandler() SignalHandler {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.signalHandler
}

func (l *Loopback) deliverAnnounce(list []descriptor.Descriptor, isOfferResponse bool, sender descriptor.PeerID) {
	if h := l.currentSignalHandler(); h != nil {
		h.OnAnnounce(list, isOfferResponse, sender)
	}
}

func (l *Loopback) deliverRequestAnnouncement(sender descriptor.PeerID) {
	if h := l.currentSignalHandler(); h != nil {
		h.OnRequestAnnouncement(sender)
	}
}

func (l *Loopback) deliverDataChunk(fileID descriptor.FileID, start int64, length int32, chunk []byte, sender descriptor.PeerID) {
	if h := l.currentSignalHandler(); h != nil {
		h.OnDataChunk(fileID, start, length, chunk, sender)
	}
}

func (l *Loopback) deliverStopXfer(fileID descriptor.FileID, sender descriptor.PeerID) {
	if h := l.currentSignalHandler(); h != nil {
		h.OnStopXfer(fileID, sender)
	}
}

func (l *Loopback) deliverXferCancelled(fileID descriptor.FileID, sender descriptor.PeerID) {
	if h := l.currentSignalHandler(); h != nil {
		h.OnXferCancelled(fileID, sender)
	}
}
