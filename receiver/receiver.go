package receiver

import (
	"github.com/fmeshio/filemesh/bus"
	"github.com/fmeshio/filemesh/descriptor"
)

// AnnouncementHandler receives broadcast or directed non-offer-response
// announcements. The Announcement Manager implements this.
type AnnouncementHandler interface {
	HandleAnnouncedFiles(list []descriptor.Descriptor, peer descriptor.PeerID)
}

// OfferResponseHandler receives directed announcements carrying exactly
// one descriptor in response to an offer-request. The Directed
// Announcement Manager implements this.
type OfferResponseHandler interface {
	HandleOfferResponse(list []descriptor.Descriptor, peer descriptor.PeerID)
}

// AnnouncementRequestHandler receives a peer's request that we announce
// our local catalog back to it. The Announcement Manager implements this.
type AnnouncementRequestHandler interface {
	HandleAnnouncementRequest(peer descriptor.PeerID)
}

// ChunkHandler receives inbound file data. The Receive Manager implements
// this.
type ChunkHandler interface {
	HandleChunk(fileID descriptor.FileID, start int64, length int32, data []byte, peer descriptor.PeerID)
}

// StopXferHandler receives a receiver-initiated pause or cancel. The Send
// Manager implements this.
type StopXferHandler interface {
	HandleStopXfer(fileID descriptor.FileID, peer descriptor.PeerID)
}

// XferCancelledHandler receives a sender-initiated cancel. The Receive
// Manager implements this.
type XferCancelledHandler interface {
	HandleXferCancelled(fileID descriptor.FileID, peer descriptor.PeerID)
}

// Receiver implements bus.SignalHandler, demultiplexing inbound signals
// to the manager responsible for each. It performs no work of its own
// beyond decoding and routing.
type Receiver struct {
	announcement        AnnouncementHandler
	offerResponse       OfferResponseHandler
	announcementRequest AnnouncementRequestHandler
	chunk               ChunkHandler
	stopXfer            StopXferHandler
	xferCancelled       XferCancelledHandler
}

var _ bus.SignalHandler = (*Receiver)(nil)

// New wires a Receiver to its six destination capabilities.
func New(
	announcement AnnouncementHandler,
	offerResponse OfferResponseHandler,
	announcementRequest AnnouncementRequestHandler,
	chunk ChunkHandler,
	stopXfer StopXferHandler,
	xferCancelled XferCancelledHandler,
) *Receiver {
	return &Receiver{
		announcement:        announcement,
		offerResponse:       offerResponse,
		announcementRequest: announcementRequest,
		chunk:               chunk,
		stopXfer:            stopXfer,
		xferCancelled:       xferCancelled,
	}
}

// RegisterWith registers this Receiver as b's signal handler.
func (r *Receiver) RegisterWith(b bus.Bus) {
	b.RegisterSignalHandler(r)
}

// OnAnnounce routes to the Announcement Manager or the Directed
// Announcement Manager depending on isOfferResponse.
func (r *Receiver) OnAnnounce(list []descriptor.Descriptor, isOfferResponse bool, sender descriptor.PeerID) {
	if isOfferResponse {
		r.offerResponse.HandleOfferResponse(list, sender)
		return
	}
	r.announcement.HandleAnnouncedFiles(list, sender)
}

// OnRequestAnnouncement routes to the Announcement Manager.
func (r *Receiver) OnRequestAnnouncement(sender descriptor.PeerID) {
	r.announcementRequest.HandleAnnouncementRequest(sender)
}

// OnDataChunk routes to the Receive Manager.
func (r *Receiver) OnDataChunk(fileID descriptor.FileID, start int64, length int32, chunk []byte, sender descriptor.PeerID) {
	r.chunk.HandleChunk(fileID, start, length, chunk, sender)
}

// OnStopXfer routes to the Send Manager.
func (r *Receiver) OnStopXfer(fileID descriptor.FileID, sender descriptor.PeerID) {
	r.stopXfer.HandleStopXfer(fileID, sender)
}

// OnXferCancelled routes to the Receive Manager.
func (r *Receiver) OnXferCancelled(fileID descriptor.FileID, sender descriptor.PeerID) {
	r.xferCancelled.HandleXferCancelled(fileID, sender)
}
