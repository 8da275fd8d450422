package announce

import (
	"github.com/sirupsen/logrus"

	"github.com/fmeshio/filemesh/descriptor"
	"github.com/fmeshio/filemesh/dispatch"
)

// DirectedCatalog is the Directed Announcement Manager's view of the
// Catalog.
type DirectedCatalog interface {
	LookupLocalByPath(path string) (descriptor.Descriptor, bool)
	AddOfferedLocal(d descriptor.Descriptor)
	AddOfferedRemote(d descriptor.Descriptor, peer descriptor.PeerID)
}

// OfferTransmitter is the Directed Announcement Manager's view of the
// Transmitter: the RequestOffer method call.
type OfferTransmitter interface {
	RequestOffer(peer descriptor.PeerID, path string) (descriptor.StatusCode, error)
}

// DirectedManager is the Directed Announcement Manager: it resolves a
// single path, unknown to the requester, into a one-off announcement
// directed back at them.
type DirectedManager struct {
	fsa         FileSystem
	catalog     DirectedCatalog
	transmitter OfferTransmitter
	queue       Queue
	identity    Identity

	unannouncedFileRequest func(path string) bool
	onAnnouncementReceived func(list []descriptor.Descriptor, isOfferResponse bool, peer descriptor.PeerID)
}

// NewDirected returns a DirectedManager. By default every offer-request
// for a path outside the local catalog is denied; call
// SetUnannouncedFileRequestDelegate to allow some.
func NewDirected(fsa FileSystem, catalog DirectedCatalog, transmitter OfferTransmitter, queue Queue, identity Identity) *DirectedManager {
	return &DirectedManager{
		fsa:         fsa,
		catalog:     catalog,
		transmitter: transmitter,
		queue:       queue,
		identity:    identity,
	}
}

// SetUnannouncedFileRequestDelegate registers the function consulted when
// an offer-request names a path the Catalog has never seen. A nil
// delegate denies every such request.
func (d *DirectedManager) SetUnannouncedFileRequestDelegate(fn func(path string) bool) {
	d.unannouncedFileRequest = fn
}

// SetOnAnnouncementReceived registers the observer invoked when an
// offer-response (a directed, single-descriptor announcement) arrives.
// The Facade wires the same function here and on the Announcement
// Manager so a host sees every received catalog through one callback.
func (d *DirectedManager) SetOnAnnouncementReceived(fn func(list []descriptor.Descriptor, isOfferResponse bool, peer descriptor.PeerID)) {
	d.onAnnouncementReceived = fn
}

// RequestOffer asks peer to resolve path into a descriptor and announce
// it back to us. The returned status is the remote's immediate reply to
// the request, not the eventual announcement.
func (d *DirectedManager) RequestOffer(peer descriptor.PeerID, path string) (descriptor.StatusCode, error) {
	return d.transmitter.RequestOffer(peer, path)
}

// HandleOfferRequest is the server side of RequestOffer, invoked by the
// bus's method-call dispatch. A path already known to the local Catalog
// is resolved without consulting the delegate; any other path is allowed
// only if the delegate accepts it.
func (d *DirectedManager) HandleOfferRequest(peer descriptor.PeerID, path string) descriptor.StatusCode {
	if _, ok := d.catalog.LookupLocalByPath(path); !ok {
		if d.unannouncedFileRequest == nil || !d.unannouncedFileRequest(path) {
			return descriptor.RequestDenied
		}
	}
	d.queue.Enqueue(dispatch.FileIDResponse{Peer: peer, Path: path})
	return descriptor.OK
}

// HandleFileIDResponse runs on the Dispatcher's worker goroutine after an
// accepted offer-request has been dequeued. It hashes path, records it as
// offered_local, and sends a directed offer-response announcement.
func (d *DirectedManager) HandleFileIDResponse(peer descriptor.PeerID, path string) {
	descs, failed := d.fsa.Describe([]string{path}, d.identity.LocalPeer())
	if len(failed) > 0 || len(descs) == 0 {
		logrus.WithFields(logrus.Fields{"function": "HandleFileIDResponse", "path": path, "peer": peer}).Warn("could not describe file for offer response")
		return
	}
	desc := descs[0]
	d.catalog.AddOfferedLocal(desc)
	d.queue.Enqueue(dispatch.Announce{Files: []descriptor.Descriptor{desc}, IsOfferResponse: true, Peer: peer})
}

// HandleOfferResponse implements receiver.OfferResponseHandler: a
// directed, single-descriptor announcement arrived in reply to our own
// RequestOffer.
func (d *DirectedManager) HandleOfferResponse(list []descriptor.Descriptor, peer descriptor.PeerID) {
	for _, desc := range list {
		d.catalog.AddOfferedRemote(desc, peer)
	}
	if d.onAnnouncementReceived != nil {
		d.onAnnouncementReceived(list, true, peer)
	}
}
