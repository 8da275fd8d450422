package bus

import "github.com/fmeshio/filemesh/descriptor"

// SignalHandler receives decoded inbound signals from the bus. A Bus
// implementation must deliver these without blocking the caller that
// triggered them on the remote side.
type SignalHandler interface {
	OnAnnounce(list []descriptor.Descriptor, isOfferResponse bool, sender descriptor.PeerID)
	OnRequestAnnouncement(sender descriptor.PeerID)
	OnDataChunk(fileID descriptor.FileID, start int64, length int32, chunk []byte, sender descriptor.PeerID)
	OnStopXfer(fileID descriptor.FileID, sender descriptor.PeerID)
	OnXferCancelled(fileID descriptor.FileID, sender descriptor.PeerID)
}

// MethodHandler answers inbound method calls with a status code, i.e. the
// server side of a RequestData / OfferFile / RequestOffer round trip.
type MethodHandler interface {
	OnRequestData(sender descriptor.PeerID, fileID descriptor.FileID, start int64, length int32, maxChunk int32) descriptor.StatusCode
	OnOfferFile(sender descriptor.PeerID, d descriptor.Descriptor) descriptor.StatusCode
	OnRequestOffer(sender descriptor.PeerID, path string) descriptor.StatusCode
}

// Bus is everything the core consumes from the underlying session bus:
// identity, signal emission (broadcast when peer is ""), and synchronous
// method calls. Implementations are expected to be safe for concurrent use
// by the Dispatcher worker and by the caller thread taking the
// transmit-immediately bypass for method calls.
type Bus interface {
	// LocalPeer returns this endpoint's bus identity, or "" if unattached.
	LocalPeer() descriptor.PeerID
	// SessionID returns the current session identifier, or "" if none.
	SessionID() string
	// Connected reports whether a session is currently attached.
	Connected() bool

	RegisterSignalHandler(h SignalHandler)
	RegisterMethodHandler(h MethodHandler)

	EmitAnnounce(list []descriptor.Descriptor, isOfferResponse bool, peer descriptor.PeerID) error
	EmitRequestAnnouncement(peer descriptor.PeerID) error
	EmitDataChunk(fileID descriptor.FileID, start int64, length int32, chunk []byte, peer descriptor.PeerID) error
	EmitStopXfer(fileID descriptor.FileID, peer descriptor.PeerID) error
	EmitXferCancelled(fileID descriptor.FileID, peer descriptor.PeerID) error

	CallRequestData(peer descriptor.PeerID, fileID descriptor.FileID, start int64, length int32, maxChunk int32) (descriptor.StatusCode, error)
	CallOfferFile(peer descriptor.PeerID, d descriptor.Descriptor) (descriptor.StatusCode, error)
	CallRequestOffer(peer descriptor.PeerID, path string) (descriptor.StatusCode, error)
}
