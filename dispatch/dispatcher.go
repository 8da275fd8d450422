package dispatch

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/fmeshio/filemesh/descriptor"
)

// Transmitter is the capability the Dispatcher needs from the transmit
// layer: one method per queueable Action variant. transmit.Transmitter
// satisfies this implicitly.
type Transmitter interface {
	Announce(files []descriptor.Descriptor, isOfferResponse bool, peer descriptor.PeerID) error
	RequestAnnouncement(peer descriptor.PeerID) error
	SendDataChunk(fileID descriptor.FileID, start int64, length int32, chunk []byte, peer descriptor.PeerID) error
	StopXfer(fileID descriptor.FileID, peer descriptor.PeerID) error
	XferCancelled(fileID descriptor.FileID, peer descriptor.PeerID) error
}

const defaultQueueDepth = 64

// Dispatcher is a single-consumer FIFO queue of outbound Actions. One
// worker goroutine dequeues Actions in enqueue order and either invokes
// the Transmitter or routes the Action back to a manager via a callback
// registered at construction time.
type Dispatcher struct {
	mu          sync.Mutex
	transmitter Transmitter

	onFileIDResponse func(peer descriptor.PeerID, path string)
	onChunkDrained   func(fileID descriptor.FileID)

	queue chan Action
	stop  chan struct{}
	done  chan struct{}
}

// New creates a Dispatcher bound to transmitter. queueDepth <= 0 uses a
// sensible default.
func New(transmitter Transmitter, queueDepth int) *Dispatcher {
	if queueDepth <= 0 {
		queueDepth = defaultQueueDepth
	}
	return &Dispatcher{
		transmitter: transmitter,
		queue:       make(chan Action, queueDepth),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// SetFileIDResponseHandler registers the callback invoked on the worker
// goroutine when a FileIDResponse Action is dequeued. The Directed
// Announcement Manager wires itself in here.
func (d *Dispatcher) SetFileIDResponseHandler(fn func(peer descriptor.PeerID, path string)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onFileIDResponse = fn
}

// SetChunkDrainedHandler registers the callback invoked after a DataChunk
// Action has been transmitted, telling the Send Manager it may produce
// the next chunk for that file.
func (d *Dispatcher) SetChunkDrainedHandler(fn func(fileID descriptor.FileID)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onChunkDrained = fn
}

// Start launches the worker goroutine. Calling Start more than once
// without an intervening Stop is a programmer error.
func (d *Dispatcher) Start() {
	go d.run()
}

// Enqueue adds an Action to the tail of the queue. For a single sender,
// the order in which Actions are enqueued is the order in which they
// are transmitted.
func (d *Dispatcher) Enqueue(a Action) {
	d.queue <- a
}

// Stop signals the worker to finish in-flight processing and exit, then
// waits for it to do so.
func (d *Dispatcher) Stop() {
	close(d.stop)
	<-d.done
}

// Reset replaces the Transmitter, as happens on session change (spec
// §4.4's reset operation). Rather than draining queued Actions against
// the old Transmitter, this implementation takes the permitted
// optimization of dropping them: a session change invalidates the peer
// identities they were addressed to, so transmitting them against the new
// session would be meaningless at best.
func (d *Dispatcher) Reset(newTransmitter Transmitter) {
drain:
	for {
		select {
		case <-d.queue:
		default:
			break drain
		}
	}
	d.mu.Lock()
	d.transmitter = newTransmitter
	d.mu.Unlock()
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for {
		select {
		case a := <-d.queue:
			d.process(a)
		case <-d.stop:
			d.drainRemaining()
			return
		}
	}
}

func (d *Dispatcher) drainRemaining() {
	for {
		select {
		case a := <-d.queue:
			d.process(a)
		default:
			return
		}
	}
}

func (d *Dispatcher) process(a Action) {
	tx := d.currentTransmitter()
	switch v := a.(type) {
	case Announce:
		if err := tx.Announce(v.Files, v.IsOfferResponse, v.Peer); err != nil {
			logrus.WithFields(logrus.Fields{"function": "process", "kind": "Announce", "peer": v.Peer, "error": err.Error()}).Warn("announce transmission failed")
		}
	case RequestAnnouncement:
		if err := tx.RequestAnnouncement(v.Peer); err != nil {
			logrus.WithFields(logrus.Fields{"function": "process", "kind": "RequestAnnouncement", "peer": v.Peer, "error": err.Error()}).Warn("request announcement transmission failed")
		}
	case StopXfer:
		if err := tx.StopXfer(v.FileID, v.Peer); err != nil {
			logrus.WithFields(logrus.Fields{"function": "process", "kind": "StopXfer", "peer": v.Peer, "error": err.Error()}).Warn("stop xfer transmission failed")
		}
	case XferCancelled:
		if err := tx.XferCancelled(v.FileID, v.Peer); err != nil {
			logrus.WithFields(logrus.Fields{"function": "process", "kind": "XferCancelled", "peer": v.Peer, "error": err.Error()}).Warn("xfer cancelled transmission failed")
		}
	case DataChunk:
		err := tx.SendDataChunk(v.FileID, v.StartByte, v.ChunkLength, v.Chunk, v.Peer)
		if err != nil {
			logrus.WithFields(logrus.Fields{"function": "process", "kind": "DataChunk", "peer": v.Peer, "error": err.Error()}).Warn("data chunk transmission failed")
		}
		if cb := d.currentChunkDrainedHandler(); cb != nil {
			cb(v.FileID)
		}
	case FileIDResponse:
		if cb := d.currentFileIDResponseHandler(); cb != nil {
			cb(v.Peer, v.Path)
		}
	}
}

func (d *Dispatcher) currentTransmitter() Transmitter {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.transmitter
}

func (d *Dispatcher) currentChunkDrainedHandler() func(descriptor.FileID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.onChunkDrained
}

func (d *Dispatcher) currentFileIDResponseHandler() func(descriptor.PeerID, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.onFileIDResponse
}
