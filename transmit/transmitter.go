package transmit

import (
	"github.com/sirupsen/logrus"

	"github.com/fmeshio/filemesh/bus"
	"github.com/fmeshio/filemesh/descriptor"
)

// Transmitter wraps a bus.Bus, translating each Action variant and each
// method-call request into the corresponding bus operation. It satisfies
// dispatch.Transmitter for the signal variants.
type Transmitter struct {
	bus bus.Bus
}

// New wraps b.
func New(b bus.Bus) *Transmitter {
	return &Transmitter{bus: b}
}

// Bus returns the underlying bus, for components (like the Receiver) that
// need to register handlers on the same connection.
func (t *Transmitter) Bus() bus.Bus { return t.bus }

// Announce emits an Announce signal. peer == "" broadcasts.
func (t *Transmitter) Announce(files []descriptor.Descriptor, isOfferResponse bool, peer descriptor.PeerID) error {
	logrus.WithFields(logrus.Fields{"function": "Announce", "peer": peer, "count": len(files), "is_offer_response": isOfferResponse}).Debug("emitting announce")
	return t.bus.EmitAnnounce(files, isOfferResponse, peer)
}

// RequestAnnouncement emits a RequestAnnouncement signal directed at peer.
func (t *Transmitter) RequestAnnouncement(peer descriptor.PeerID) error {
	logrus.WithFields(logrus.Fields{"function": "RequestAnnouncement", "peer": peer}).Debug("emitting request announcement")
	return t.bus.EmitRequestAnnouncement(peer)
}

// SendDataChunk emits a single outbound chunk signal.
func (t *Transmitter) SendDataChunk(fileID descriptor.FileID, start int64, length int32, chunk []byte, peer descriptor.PeerID) error {
	logrus.WithFields(logrus.Fields{"function": "SendDataChunk", "peer": peer, "file_id": fileID.String(), "start": start, "length": length}).Debug("emitting data chunk")
	return t.bus.EmitDataChunk(fileID, start, length, chunk, peer)
}

// StopXfer emits a StopXfer signal to peer.
func (t *Transmitter) StopXfer(fileID descriptor.FileID, peer descriptor.PeerID) error {
	logrus.WithFields(logrus.Fields{"function": "StopXfer", "peer": peer, "file_id": fileID.String()}).Debug("emitting stop xfer")
	return t.bus.EmitStopXfer(fileID, peer)
}

// XferCancelled emits an XferCancelled signal to peer.
func (t *Transmitter) XferCancelled(fileID descriptor.FileID, peer descriptor.PeerID) error {
	logrus.WithFields(logrus.Fields{"function": "XferCancelled", "peer": peer, "file_id": fileID.String()}).Debug("emitting xfer cancelled")
	return t.bus.EmitXferCancelled(fileID, peer)
}

// RequestData issues the RequestData method call synchronously, blocking
// until peer replies with a status.
func (t *Transmitter) RequestData(peer descriptor.PeerID, fileID descriptor.FileID, start int64, length int32, maxChunk int32) (descriptor.StatusCode, error) {
	logrus.WithFields(logrus.Fields{"function": "RequestData", "peer": peer, "file_id": fileID.String(), "start": start, "length": length}).Info("calling request data")
	status, err := t.bus.CallRequestData(peer, fileID, start, length, maxChunk)
	if err != nil {
		return descriptor.Invalid, err
	}
	return status, nil
}

// OfferFile issues the OfferFile method call synchronously.
func (t *Transmitter) OfferFile(peer descriptor.PeerID, d descriptor.Descriptor) (descriptor.StatusCode, error) {
	logrus.WithFields(logrus.Fields{"function": "OfferFile", "peer": peer, "file_id": d.FileID.String()}).Info("calling offer file")
	status, err := t.bus.CallOfferFile(peer, d)
	if err != nil {
		return descriptor.Invalid, err
	}
	return status, nil
}

// RequestOffer issues the RequestOffer method call synchronously.
func (t *Transmitter) RequestOffer(peer descriptor.PeerID, path string) (descriptor.StatusCode, error) {
	logrus.WithFields(logrus.Fields{"function": "RequestOffer", "peer": peer, "path": path}).Info("calling request offer")
	status, err := t.bus.CallRequestOffer(peer, path)
	if err != nil {
		return descriptor.Invalid, err
	}
	return status, nil
}
