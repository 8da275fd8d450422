package filemesh

import (
	"time"

	"github.com/fmeshio/filemesh/announce"
	"github.com/fmeshio/filemesh/bus"
	"github.com/fmeshio/filemesh/catalog"
	"github.com/fmeshio/filemesh/config"
	"github.com/fmeshio/filemesh/descriptor"
	"github.com/fmeshio/filemesh/dispatch"
	"github.com/fmeshio/filemesh/fsadapter"
	"github.com/fmeshio/filemesh/offer"
	"github.com/fmeshio/filemesh/receiver"
	"github.com/fmeshio/filemesh/transfer"
	"github.com/fmeshio/filemesh/transmit"
)

// Facade composes every internal component behind one API surface and
// attaches itself to a bus.Bus as both signal and method handler.
type Facade struct {
	bus         bus.Bus
	fsa         *fsadapter.FSA
	catalog     *catalog.Catalog
	dispatcher  *dispatch.Dispatcher
	transmitter *transmit.Transmitter
	receiver    *receiver.Receiver

	announcement *announce.Manager
	directed     *announce.DirectedManager
	offerMgr     *offer.Manager
	sendMgr      *transfer.SendManager
	receiveMgr   *transfer.ReceiveManager
}

var _ bus.MethodHandler = (*Facade)(nil)

// New wires a Facade to b using cfg, or config.DefaultConfig() if cfg is
// nil, starts the Dispatcher's worker goroutine, and registers itself as
// b's signal and method handler.
func New(b bus.Bus, cfg *config.Config) *Facade {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	fsa := fsadapter.New()
	if cfg.HashCacheFilePath != "" {
		fsa.SetCacheFile(cfg.HashCacheFilePath)
	}

	cat := catalog.New()
	tx := transmit.New(b)
	dispatcher := dispatch.New(tx, cfg.WorkerQueueDepth)

	announcement := announce.New(fsa, cat, dispatcher, b)
	announcement.SetShowRelativePath(cfg.ShowRelativePath)
	announcement.SetShowSharedPath(cfg.ShowSharedPath)

	directed := announce.NewDirected(fsa, cat, tx, dispatcher, b)

	sendMgr := transfer.NewSendManager(cat, fsa, dispatcher, cfg.DefaultChunkSize)
	receiveMgr := transfer.NewReceiveManager(cat, fsa, tx, dispatcher, cfg.DefaultChunkSize)

	offerMgr := offer.New(fsa, tx, sendMgr, receiveMgr, cat, b, cfg.DefaultSaveDirectory)
	offerMgr.SetDefaultTimeout(cfg.DefaultOfferTimeout)

	dispatcher.SetFileIDResponseHandler(directed.HandleFileIDResponse)
	dispatcher.SetChunkDrainedHandler(sendMgr.HandleChunkDrained)

	recv := receiver.New(announcement, directed, announcement, receiveMgr, sendMgr, receiveMgr)

	f := &Facade{
		bus:          b,
		fsa:          fsa,
		catalog:      cat,
		dispatcher:   dispatcher,
		transmitter:  tx,
		receiver:     recv,
		announcement: announcement,
		directed:     directed,
		offerMgr:     offerMgr,
		sendMgr:      sendMgr,
		receiveMgr:   receiveMgr,
	}

	dispatcher.Start()
	recv.RegisterWith(b)
	b.RegisterMethodHandler(f)

	return f
}

// Close stops the Dispatcher's worker goroutine, draining any actions
// already queued.
func (f *Facade) Close() {
	f.dispatcher.Stop()
}

// Announce describes each path, applies the current visibility policy,
// records it in the Catalog, and broadcasts it. Hashing runs in the
// background; this call never blocks.
func (f *Facade) Announce(pathList []string) {
	f.announcement.Announce(pathList)
}

// StopAnnounce removes each path from the local catalog and broadcasts
// the resulting set. Paths that were not announced are returned.
func (f *Facade) StopAnnounce(pathList []string) []string {
	return f.announcement.StopAnnounce(pathList)
}

// RequestAnnouncement asks peer to send us its announced catalog
// directly.
func (f *Facade) RequestAnnouncement(peer descriptor.PeerID) descriptor.StatusCode {
	return f.announcement.RequestAnnouncement(peer)
}

// RequestOffer asks peer to resolve path, a file we have not seen
// announced, into a descriptor and send it back to us directly.
func (f *Facade) RequestOffer(peer descriptor.PeerID, path string) (descriptor.StatusCode, error) {
	return f.directed.RequestOffer(peer, path)
}

// OfferFile proposes path to peer and blocks until peer accepts and
// requests it, rejects it, or timeout elapses. timeout <= 0 uses the
// configured default.
func (f *Facade) OfferFile(peer descriptor.PeerID, path string, timeout time.Duration) (descriptor.StatusCode, error) {
	return f.offerMgr.OfferFile(peer, path, timeout)
}

// RequestFile begins pulling fileID, known to us via peer's catalog, in
// full, saving it as saveFilename under saveDirectory.
func (f *Facade) RequestFile(peer descriptor.PeerID, fileID descriptor.FileID, saveFilename, saveDirectory string) (descriptor.StatusCode, error) {
	return f.receiveMgr.RequestFile(peer, fileID, saveFilename, saveDirectory)
}

// PauseReceiving asks the sender of fileID to stop producing chunks,
// retaining the partial file and the in-flight entry; see
// ReceiveManager.Pause.
func (f *Facade) PauseReceiving(fileID descriptor.FileID) descriptor.StatusCode {
	return f.receiveMgr.Pause(fileID)
}

// CancelReceiving asks the sender of fileID to stop producing chunks and
// deletes the partial file.
func (f *Facade) CancelReceiving(fileID descriptor.FileID) descriptor.StatusCode {
	return f.receiveMgr.Cancel(fileID)
}

// CancelSending stops an outbound transfer we are the source for.
func (f *Facade) CancelSending(fileID descriptor.FileID) descriptor.StatusCode {
	return f.sendMgr.Cancel(fileID)
}

// ListInProgress returns every transfer currently in flight, outbound and
// inbound.
func (f *Facade) ListInProgress() []descriptor.ProgressDescriptor {
	out := f.sendMgr.ListInProgress()
	return append(out, f.receiveMgr.ListInProgress()...)
}

// OnFileCompleted registers the observer invoked when an inbound transfer
// finishes, by completion or cancellation.
func (f *Facade) OnFileCompleted(fn func(saveFilename string, status descriptor.StatusCode)) {
	f.receiveMgr.SetOnFileCompleted(fn)
}

// OnAnnouncementSent registers the observer invoked after Announce
// finishes hashing, with any paths that failed to describe.
func (f *Facade) OnAnnouncementSent(fn func(failedPaths []string)) {
	f.announcement.SetOnAnnouncementSent(fn)
}

// OnAnnouncementReceived registers the observer invoked whenever a
// catalog is learned from a peer, whether by broadcast, directed
// announcement, or offer-response.
func (f *Facade) OnAnnouncementReceived(fn func(list []descriptor.Descriptor, isOfferResponse bool, peer descriptor.PeerID)) {
	f.announcement.SetOnAnnouncementReceived(fn)
	f.directed.SetOnAnnouncementReceived(fn)
}

// OnOfferReceived registers the observer consulted when a peer proposes a
// file to us. A nil observer rejects every inbound offer.
func (f *Facade) OnOfferReceived(fn func(d descriptor.Descriptor, peer descriptor.PeerID) bool) {
	f.offerMgr.SetOnOfferReceived(fn)
}

// OnRequestDataReceived registers the observer invoked whenever a peer's
// RequestData call successfully starts an outbound transfer.
func (f *Facade) OnRequestDataReceived(fn func(peer descriptor.PeerID, fileID descriptor.FileID)) {
	f.sendMgr.SetOnRequestReceived(fn)
}

// OnUnannouncedFileRequest registers the delegate consulted when a peer's
// offer-request names a path outside our announced or offered catalog. A
// nil delegate denies every such request.
func (f *Facade) OnUnannouncedFileRequest(fn func(path string) bool) {
	f.directed.SetUnannouncedFileRequestDelegate(fn)
}

// OnRequestData implements bus.MethodHandler. A pending unsolicited offer
// claims the call first; otherwise it falls through to the Send
// Manager's Catalog-backed path.
func (f *Facade) OnRequestData(sender descriptor.PeerID, fileID descriptor.FileID, start int64, length int32, maxChunk int32) descriptor.StatusCode {
	if status, handled := f.offerMgr.HandleRequest(sender, fileID, start, int64(length), maxChunk); handled {
		return status
	}
	return f.sendMgr.HandleRequest(sender, fileID, start, int64(length), maxChunk)
}

// OnOfferFile implements bus.MethodHandler, delegating to the Offer
// Manager.
func (f *Facade) OnOfferFile(sender descriptor.PeerID, d descriptor.Descriptor) descriptor.StatusCode {
	return f.offerMgr.HandleOffer(sender, d)
}

// OnRequestOffer implements bus.MethodHandler, delegating to the Directed
// Announcement Manager.
func (f *Facade) OnRequestOffer(sender descriptor.PeerID, path string) descriptor.StatusCode {
	return f.directed.HandleOfferRequest(sender, path)
}
