package transfer

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fmeshio/filemesh/descriptor"
	"github.com/fmeshio/filemesh/dispatch"
	"github.com/fmeshio/filemesh/fsadapter"
)

// Catalog is the Send Manager's view of the Catalog.
type Catalog interface {
	LookupLocal(id descriptor.FileID) (descriptor.Descriptor, bool)
}

// FileReader is the Send Manager's view of the File System Adapter.
type FileReader interface {
	ReadChunk(path string, offset int64, length int32) ([]byte, error)
}

// Queue is the capability to enqueue an outbound Action on the
// Dispatcher.
type Queue interface {
	Enqueue(a dispatch.Action)
}

type sendEntry struct {
	status       descriptor.FileStatus
	path         string
	lastActivity time.Time
}

// SendManager is the Send Manager: it owns the in_flight table of
// transfers this peer is the source for, and produces one outbound chunk
// at a time, gated by the Dispatcher's chunk-drained notification.
type SendManager struct {
	mu       sync.Mutex
	inFlight map[descriptor.FileID]*sendEntry

	catalog      Catalog
	fsa          FileReader
	queue        Queue
	timeProvider TimeProvider
	stallTimeout time.Duration
	chunkSize    int32

	onRequestReceived func(peer descriptor.PeerID, fileID descriptor.FileID)
}

// NewSendManager returns a SendManager with stall detection using the
// standard library clock and DefaultStallTimeout. chunkSize is this
// sender's configured chunk size, the ceiling applied against whatever
// max_chunk a requester asks for.
func NewSendManager(catalog Catalog, fsa FileReader, queue Queue, chunkSize int32) *SendManager {
	return &SendManager{
		inFlight:     make(map[descriptor.FileID]*sendEntry),
		catalog:      catalog,
		fsa:          fsa,
		queue:        queue,
		timeProvider: DefaultTimeProvider{},
		stallTimeout: DefaultStallTimeout,
		chunkSize:    chunkSize,
	}
}

// SetTimeProvider sets a custom time provider for deterministic testing.
func (s *SendManager) SetTimeProvider(tp TimeProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeProvider = tp
}

// SetStallTimeout overrides the duration of inactivity before a transfer
// reports as timed out. Zero disables stall detection.
func (s *SendManager) SetStallTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stallTimeout = d
}

// SetOnRequestReceived registers an observer notified whenever a
// RequestData call successfully starts a transfer.
func (s *SendManager) SetOnRequestReceived(fn func(peer descriptor.PeerID, fileID descriptor.FileID)) {
	s.onRequestReceived = fn
}

// HandleRequest is the normal (Catalog-backed) path for an inbound
// RequestData method call: fileID must already be announced or offered
// locally.
func (s *SendManager) HandleRequest(peer descriptor.PeerID, fileID descriptor.FileID, start int64, length int64, maxChunk int32) descriptor.StatusCode {
	d, ok := s.catalog.LookupLocal(fileID)
	if !ok {
		return descriptor.BadFileID
	}
	return s.StartTransfer(d, peer, start, length, maxChunk)
}

// StartTransfer registers d as in-flight to peer and produces its first
// chunk. It bypasses the Catalog lookup so the Offer Manager can invoke
// it directly for an ad hoc offered file that was never catalogued.
// chunk_length is min(maxChunk, this sender's configured chunk size).
func (s *SendManager) StartTransfer(d descriptor.Descriptor, peer descriptor.PeerID, start int64, length int64, maxChunk int32) descriptor.StatusCode {
	chunkLength := maxChunk
	if s.chunkSize > 0 && s.chunkSize < chunkLength {
		chunkLength = s.chunkSize
	}

	s.mu.Lock()
	s.inFlight[d.FileID] = &sendEntry{
		status: descriptor.FileStatus{
			FileID:      d.FileID,
			Peer:        peer,
			StartByte:   start,
			Length:      length,
			ChunkLength: chunkLength,
		},
		path:         fsadapter.BuildPath(d),
		lastActivity: s.now(),
	}
	s.mu.Unlock()

	s.produceNextChunk(d.FileID)
	if s.onRequestReceived != nil {
		s.onRequestReceived(peer, d.FileID)
	}
	return descriptor.OK
}

// HandleChunkDrained is wired to the Dispatcher as its chunk-drained
// callback: the previous chunk has been transmitted, so the next one may
// be produced.
func (s *SendManager) HandleChunkDrained(fileID descriptor.FileID) {
	s.produceNextChunk(fileID)
}

// HandleStopXfer implements receiver.StopXferHandler: the receiver
// paused or cancelled the transfer, so no further chunks are produced.
func (s *SendManager) HandleStopXfer(fileID descriptor.FileID, peer descriptor.PeerID) {
	s.mu.Lock()
	delete(s.inFlight, fileID)
	s.mu.Unlock()
}

// Cancel stops an in-flight outbound transfer and notifies the receiver.
// Cancelling a transfer not currently in flight returns
// FileNotBeingTransferred.
func (s *SendManager) Cancel(fileID descriptor.FileID) descriptor.StatusCode {
	s.mu.Lock()
	e, ok := s.inFlight[fileID]
	if !ok {
		s.mu.Unlock()
		return descriptor.FileNotBeingTransferred
	}
	peer := e.status.Peer
	delete(s.inFlight, fileID)
	s.mu.Unlock()

	s.queue.Enqueue(dispatch.XferCancelled{FileID: fileID, Peer: peer})
	return descriptor.OK
}

// GetStatus returns the current FileStatus for an in-flight outbound
// transfer.
func (s *SendManager) GetStatus(fileID descriptor.FileID) (descriptor.FileStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.inFlight[fileID]
	if !ok {
		return descriptor.FileStatus{}, false
	}
	return e.status, true
}

// ListInProgress returns a snapshot of every outbound transfer, stalled
// ones reported with ProgressTimedOut.
func (s *SendManager) ListInProgress() []descriptor.ProgressDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]descriptor.ProgressDescriptor, 0, len(s.inFlight))
	for _, e := range s.inFlight {
		out = append(out, descriptor.ToProgress(e.status, s.progressState(e)))
	}
	return out
}

func (s *SendManager) progressState(e *sendEntry) descriptor.ProgressState {
	if s.stallTimeout > 0 && s.timeProvider.Since(e.lastActivity) >= s.stallTimeout {
		return descriptor.ProgressTimedOut
	}
	return descriptor.ProgressInProgress
}

func (s *SendManager) now() time.Time {
	if s.timeProvider == nil {
		return time.Now()
	}
	return s.timeProvider.Now()
}

func (s *SendManager) produceNextChunk(fileID descriptor.FileID) {
	s.mu.Lock()
	e, ok := s.inFlight[fileID]
	if !ok {
		s.mu.Unlock()
		return
	}
	if e.status.BytesTransferred >= e.status.Length {
		delete(s.inFlight, fileID)
		s.mu.Unlock()
		return
	}
	remaining := e.status.Length - e.status.BytesTransferred
	chunkLen := e.status.ChunkLength
	if int64(chunkLen) > remaining {
		chunkLen = int32(remaining)
	}
	start := e.status.StartByte + e.status.BytesTransferred
	path := e.path
	peer := e.status.Peer
	s.mu.Unlock()

	data, err := s.fsa.ReadChunk(path, start, chunkLen)
	if err != nil {
		logrus.WithFields(logrus.Fields{"function": "produceNextChunk", "file_id": fileID.String(), "error": err.Error()}).Warn("failed to read chunk, abandoning transfer")
		s.mu.Lock()
		delete(s.inFlight, fileID)
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	e, ok = s.inFlight[fileID]
	if !ok {
		s.mu.Unlock()
		return
	}
	e.status.BytesTransferred += int64(len(data))
	e.lastActivity = s.now()
	done := e.status.BytesTransferred >= e.status.Length
	if done {
		delete(s.inFlight, fileID)
	}
	s.mu.Unlock()

	s.queue.Enqueue(dispatch.DataChunk{FileID: fileID, StartByte: start, ChunkLength: int32(len(data)), Chunk: data, Peer: peer})
}
