package transfer

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fmeshio/filemesh/descriptor"
	"github.com/fmeshio/filemesh/dispatch"
)

// RemoteCatalog is the Receive Manager's view of the Catalog.
type RemoteCatalog interface {
	LookupRemote(peer descriptor.PeerID, id descriptor.FileID) (descriptor.Descriptor, bool)
}

// FileWriter is the Receive Manager's view of the File System Adapter.
type FileWriter interface {
	IsValid(path string) bool
	AppendChunk(path string, data []byte, offset int64, length int32) error
	Delete(path string) bool
}

// RequestCaller is the Receive Manager's view of the Transmitter: the
// RequestData method call.
type RequestCaller interface {
	RequestData(peer descriptor.PeerID, fileID descriptor.FileID, start int64, length int32, maxChunk int32) (descriptor.StatusCode, error)
}

type receiveEntry struct {
	status       descriptor.FileStatus
	paused       bool
	lastActivity time.Time
}

// ReceiveManager is the Receive Manager: it owns the in_flight table of
// transfers this peer is the destination for, appending inbound chunks to
// disk and answering pause/cancel requests.
type ReceiveManager struct {
	mu       sync.Mutex
	inFlight map[descriptor.FileID]*receiveEntry

	catalog      RemoteCatalog
	fsa          FileWriter
	transmitter  RequestCaller
	queue        Queue
	timeProvider TimeProvider
	stallTimeout time.Duration
	maxChunkSize int32

	onFileCompleted func(saveFilename string, status descriptor.StatusCode)
}

// NewReceiveManager returns a ReceiveManager. maxChunkSize bounds the
// chunk size requested of the sender.
func NewReceiveManager(catalog RemoteCatalog, fsa FileWriter, transmitter RequestCaller, queue Queue, maxChunkSize int32) *ReceiveManager {
	return &ReceiveManager{
		inFlight:     make(map[descriptor.FileID]*receiveEntry),
		catalog:      catalog,
		fsa:          fsa,
		transmitter:  transmitter,
		queue:        queue,
		timeProvider: DefaultTimeProvider{},
		stallTimeout: DefaultStallTimeout,
		maxChunkSize: maxChunkSize,
	}
}

// SetTimeProvider sets a custom time provider for deterministic testing.
func (r *ReceiveManager) SetTimeProvider(tp TimeProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timeProvider = tp
}

// SetStallTimeout overrides the duration of inactivity before a transfer
// reports as timed out. Zero disables stall detection.
func (r *ReceiveManager) SetStallTimeout(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stallTimeout = d
}

// SetOnFileCompleted registers the observer invoked when a transfer
// finishes, whether by completion or cancellation.
func (r *ReceiveManager) SetOnFileCompleted(fn func(saveFilename string, status descriptor.StatusCode)) {
	r.onFileCompleted = fn
}

// RequestFile begins pulling fileID, known to us via peer's catalog, in
// full, saving it as saveFilename under saveDirectory.
func (r *ReceiveManager) RequestFile(peer descriptor.PeerID, fileID descriptor.FileID, saveFilename, saveDirectory string) (descriptor.StatusCode, error) {
	d, ok := r.catalog.LookupRemote(peer, fileID)
	if !ok {
		return descriptor.BadFileID, nil
	}
	if !r.fsa.IsValid(saveDirectory) {
		return descriptor.BadFilePath, nil
	}

	r.mu.Lock()
	if _, exists := r.inFlight[fileID]; exists {
		r.mu.Unlock()
		return descriptor.FileNotBeingTransferred, nil
	}
	r.inFlight[fileID] = &receiveEntry{
		status: descriptor.FileStatus{
			FileID:        fileID,
			Peer:          peer,
			StartByte:     0,
			Length:        d.Size,
			ChunkLength:   r.maxChunkSize,
			SaveDirectory: saveDirectory,
			SaveFilename:  saveFilename,
		},
		lastActivity: r.now(),
	}
	r.mu.Unlock()

	status, err := r.transmitter.RequestData(peer, fileID, 0, int32(d.Size), r.maxChunkSize)
	if err != nil {
		r.mu.Lock()
		delete(r.inFlight, fileID)
		r.mu.Unlock()
		return descriptor.Invalid, err
	}
	return status, nil
}

// HandleChunk implements receiver.ChunkHandler. A chunk for a fileID with
// no in-flight entry is silently discarded: the transfer may already have
// been cancelled, or this may be a stray retransmission.
//
// The full append runs under the manager's lock, serializing it against
// Cancel: Cancel removes the in_flight entry before deleting the file on
// disk, so any HandleChunk that has not yet acquired the lock when Cancel
// runs will see no entry and discard, and any HandleChunk that already
// holds the lock finishes its append before Cancel's removal can occur.
// This ordering is what keeps a racing chunk from resurrecting a file
// Cancel just deleted.
func (r *ReceiveManager) HandleChunk(fileID descriptor.FileID, start int64, length int32, data []byte, peer descriptor.PeerID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.inFlight[fileID]
	if !ok {
		return
	}

	path := filepath.Join(e.status.SaveDirectory, e.status.SaveFilename)
	if err := r.fsa.AppendChunk(path, data, start, length); err != nil {
		logrus.WithFields(logrus.Fields{"function": "HandleChunk", "file_id": fileID.String(), "error": err.Error()}).Warn("failed to append chunk")
		return
	}

	e.status.BytesTransferred += int64(length)
	e.lastActivity = r.now()

	if e.status.BytesTransferred >= e.status.Length {
		delete(r.inFlight, fileID)
		if r.onFileCompleted != nil {
			r.onFileCompleted(e.status.SaveFilename, descriptor.OK)
		}
	}
}

// Pause asks the sender to stop producing chunks, retaining the partial
// file and the in_flight entry, which ListInProgress reports as paused.
// No operation here restarts a paused transfer; while the entry remains,
// RequestFile for the same fileID returns FileNotBeingTransferred.
func (r *ReceiveManager) Pause(fileID descriptor.FileID) descriptor.StatusCode {
	r.mu.Lock()
	e, ok := r.inFlight[fileID]
	if !ok {
		r.mu.Unlock()
		return descriptor.BadFileID
	}
	e.paused = true
	peer := e.status.Peer
	r.mu.Unlock()

	r.queue.Enqueue(dispatch.StopXfer{FileID: fileID, Peer: peer})
	return descriptor.OK
}

// Cancel asks the sender to stop producing chunks and deletes the partial
// file. The in_flight entry is removed before the file is deleted so a
// chunk that raced in just before cannot resurrect it afterward.
func (r *ReceiveManager) Cancel(fileID descriptor.FileID) descriptor.StatusCode {
	r.mu.Lock()
	e, ok := r.inFlight[fileID]
	if !ok {
		r.mu.Unlock()
		return descriptor.BadFileID
	}
	delete(r.inFlight, fileID)
	r.mu.Unlock()

	path := filepath.Join(e.status.SaveDirectory, e.status.SaveFilename)
	r.fsa.Delete(path)
	r.queue.Enqueue(dispatch.StopXfer{FileID: fileID, Peer: e.status.Peer})

	if r.onFileCompleted != nil {
		r.onFileCompleted(e.status.SaveFilename, descriptor.Cancelled)
	}
	return descriptor.OK
}

// HandleXferCancelled implements receiver.XferCancelledHandler: the
// sender cancelled. The partial file on disk is retained for a possible
// future resume; only the in_flight bookkeeping is removed.
func (r *ReceiveManager) HandleXferCancelled(fileID descriptor.FileID, peer descriptor.PeerID) {
	r.mu.Lock()
	e, ok := r.inFlight[fileID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.inFlight, fileID)
	r.mu.Unlock()

	if r.onFileCompleted != nil {
		r.onFileCompleted(e.status.SaveFilename, descriptor.Cancelled)
	}
}

// GetStatus returns the current FileStatus for an in-flight inbound
// transfer.
func (r *ReceiveManager) GetStatus(fileID descriptor.FileID) (descriptor.FileStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.inFlight[fileID]
	if !ok {
		return descriptor.FileStatus{}, false
	}
	return e.status, true
}

// ListInProgress returns a snapshot of every inbound transfer, reporting
// ProgressPaused or ProgressTimedOut as appropriate.
func (r *ReceiveManager) ListInProgress() []descriptor.ProgressDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]descriptor.ProgressDescriptor, 0, len(r.inFlight))
	for _, e := range r.inFlight {
		out = append(out, descriptor.ToProgress(e.status, r.progressState(e)))
	}
	return out
}

func (r *ReceiveManager) progressState(e *receiveEntry) descriptor.ProgressState {
	if e.paused {
		return descriptor.ProgressPaused
	}
	if r.stallTimeout > 0 && r.timeProvider.Since(e.lastActivity) >= r.stallTimeout {
		return descriptor.ProgressTimedOut
	}
	return descriptor.ProgressInProgress
}

func (r *ReceiveManager) now() time.Time {
	if r.timeProvider == nil {
		return time.Now()
	}
	return r.timeProvider.Now()
}
