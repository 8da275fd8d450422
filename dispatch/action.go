package dispatch

import "github.com/fmeshio/filemesh/descriptor"

// Kind tags which Action variant a value carries.
type Kind int

const (
	KindAnnounce Kind = iota
	KindDataChunk
	KindRequestAnnouncement
	KindStopXfer
	KindXferCancelled
	KindFileIDResponse
)

// Action is one outbound protocol event queued on the Dispatcher. Method
// call variants (RequestData, OfferFile, RequestOffer) are not part of
// this set — they bypass the queue entirely and are invoked directly
// against a Transmitter by the caller's own goroutine.
type Action interface {
	Kind() Kind
}

// Announce broadcasts or directs a list of descriptors. Peer == "" means
// broadcast.
type Announce struct {
	Files           []descriptor.Descriptor
	IsOfferResponse bool
	Peer            descriptor.PeerID
}

func (Announce) Kind() Kind { return KindAnnounce }

// DataChunk carries one outbound chunk of a file already being sent.
type DataChunk struct {
	FileID      descriptor.FileID
	StartByte   int64
	ChunkLength int32
	Chunk       []byte
	Peer        descriptor.PeerID
}

func (DataChunk) Kind() Kind { return KindDataChunk }

// RequestAnnouncement asks peer to send its announced_local set back to
// us directly.
type RequestAnnouncement struct {
	Peer descriptor.PeerID
}

func (RequestAnnouncement) Kind() Kind { return KindRequestAnnouncement }

// StopXfer tells the sender to stop producing chunks for FileID (pause or
// cancel from the receiver's side — indistinguishable to the sender).
type StopXfer struct {
	FileID descriptor.FileID
	Peer   descriptor.PeerID
}

func (StopXfer) Kind() Kind { return KindStopXfer }

// XferCancelled tells the receiver that the sender cancelled FileID.
type XferCancelled struct {
	FileID descriptor.FileID
	Peer   descriptor.PeerID
}

func (XferCancelled) Kind() Kind { return KindXferCancelled }

// FileIDResponse never crosses the wire. It exists purely to serialize
// hashing of an offer-requested path onto the Dispatcher's worker
// goroutine instead of the bus's inbound-signal goroutine.
type FileIDResponse struct {
	Peer descriptor.PeerID
	Path string
}

func (FileIDResponse) Kind() Kind { return KindFileIDResponse }
