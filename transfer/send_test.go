package transfer

import (
	"sync"
	"testing"
	"time"

	"github.com/fmeshio/filemesh/descriptor"
	"github.com/fmeshio/filemesh/dispatch"
)

type fakeCatalog struct {
	descs map[descriptor.FileID]descriptor.Descriptor
}

func (c *fakeCatalog) LookupLocal(id descriptor.FileID) (descriptor.Descriptor, bool) {
	d, ok := c.descs[id]
	return d, ok
}

type fakeReader struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func (f *fakeReader) ReadChunk(path string, offset int64, length int32) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	b := f.data[path]
	end := offset + int64(length)
	if end > int64(len(b)) {
		end = int64(len(b))
	}
	if offset > int64(len(b)) {
		offset = int64(len(b))
	}
	out := make([]byte, end-offset)
	copy(out, b[offset:end])
	return out, nil
}

type fakeQueue struct {
	mu      sync.Mutex
	actions []dispatch.Action
}

func (q *fakeQueue) Enqueue(a dispatch.Action) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.actions = append(q.actions, a)
}

func (q *fakeQueue) snapshot() []dispatch.Action {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]dispatch.Action, len(q.actions))
	copy(out, q.actions)
	return out
}

func waitForActions(t *testing.T, q *fakeQueue, n int) []dispatch.Action {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if s := q.snapshot(); len(s) >= n {
			return s
		}
		if time.Now().After(deadline) {
			t.Fatalf("queue never reached %d actions", n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSendManagerProducesChunksUntilDrained(t *testing.T) {
	id := descriptor.FileID{1}
	d := descriptor.Descriptor{FileID: id, SharedPath: "/shared", Filename: "a.bin", Size: 10}
	cat := &fakeCatalog{descs: map[descriptor.FileID]descriptor.Descriptor{id: d}}
	fsa := &fakeReader{data: map[string][]byte{"/shared/a.bin": []byte("0123456789")}}
	queue := &fakeQueue{}
	sm := NewSendManager(cat, fsa, queue, 1024)

	status := sm.HandleRequest("peer", id, 0, 10, 4)
	if status != descriptor.OK {
		t.Fatalf("expected OK, got %v", status)
	}
	waitForActions(t, queue, 1)

	sm.HandleChunkDrained(id)
	waitForActions(t, queue, 2)

	sm.HandleChunkDrained(id)
	acts := waitForActions(t, queue, 3)

	var total int
	for _, a := range acts {
		c, ok := a.(dispatch.DataChunk)
		if !ok {
			t.Fatalf("expected DataChunk actions, got %T", a)
		}
		total += int(c.ChunkLength)
	}
	if total != 10 {
		t.Fatalf("expected 10 bytes total across chunks, got %d", total)
	}

	if _, ok := sm.GetStatus(id); ok {
		t.Fatal("expected transfer removed from in_flight after completion")
	}
}

func TestSendManagerChunkLengthIsMinOfRequestedAndConfigured(t *testing.T) {
	id := descriptor.FileID{5}
	d := descriptor.Descriptor{FileID: id, SharedPath: "/shared", Filename: "e.bin", Size: 10}
	cat := &fakeCatalog{descs: map[descriptor.FileID]descriptor.Descriptor{id: d}}
	fsa := &fakeReader{data: map[string][]byte{"/shared/e.bin": []byte("0123456789")}}
	queue := &fakeQueue{}
	sm := NewSendManager(cat, fsa, queue, 4)

	status := sm.HandleRequest("peer", id, 0, 10, 64)
	if status != descriptor.OK {
		t.Fatalf("expected OK, got %v", status)
	}
	acts := waitForActions(t, queue, 1)
	chunk, ok := acts[0].(dispatch.DataChunk)
	if !ok {
		t.Fatalf("expected a DataChunk action, got %T", acts[0])
	}
	if chunk.ChunkLength != 4 {
		t.Fatalf("expected chunk length capped at the configured 4, got %d (requested max_chunk was 64)", chunk.ChunkLength)
	}
}

func TestSendManagerChunkLengthIsRequestedWhenSmallerThanConfigured(t *testing.T) {
	id := descriptor.FileID{6}
	d := descriptor.Descriptor{FileID: id, SharedPath: "/shared", Filename: "f.bin", Size: 10}
	cat := &fakeCatalog{descs: map[descriptor.FileID]descriptor.Descriptor{id: d}}
	fsa := &fakeReader{data: map[string][]byte{"/shared/f.bin": []byte("0123456789")}}
	queue := &fakeQueue{}
	sm := NewSendManager(cat, fsa, queue, 1024)

	status := sm.HandleRequest("peer", id, 0, 10, 3)
	if status != descriptor.OK {
		t.Fatalf("expected OK, got %v", status)
	}
	acts := waitForActions(t, queue, 1)
	chunk, ok := acts[0].(dispatch.DataChunk)
	if !ok {
		t.Fatalf("expected a DataChunk action, got %T", acts[0])
	}
	if chunk.ChunkLength != 3 {
		t.Fatalf("expected chunk length capped at the requested 3, got %d (configured chunk size was 1024)", chunk.ChunkLength)
	}
}

func TestSendManagerHandleRequestUnknownFileID(t *testing.T) {
	cat := &fakeCatalog{descs: map[descriptor.FileID]descriptor.Descriptor{}}
	sm := NewSendManager(cat, &fakeReader{data: map[string][]byte{}}, &fakeQueue{}, 1024)

	status := sm.HandleRequest("peer", descriptor.FileID{9}, 0, 10, 4)
	if status != descriptor.BadFileID {
		t.Fatalf("expected BadFileID, got %v", status)
	}
}

func TestSendManagerCancelIsIdempotent(t *testing.T) {
	id := descriptor.FileID{2}
	d := descriptor.Descriptor{FileID: id, SharedPath: "/shared", Filename: "b.bin", Size: 4}
	cat := &fakeCatalog{descs: map[descriptor.FileID]descriptor.Descriptor{id: d}}
	fsa := &fakeReader{data: map[string][]byte{"/shared/b.bin": []byte("abcd")}}
	queue := &fakeQueue{}
	sm := NewSendManager(cat, fsa, queue, 1024)

	sm.HandleRequest("peer", id, 0, 4, 1)
	waitForActions(t, queue, 1)

	if status := sm.Cancel(id); status != descriptor.OK {
		t.Fatalf("expected OK on first cancel, got %v", status)
	}
	if status := sm.Cancel(id); status != descriptor.FileNotBeingTransferred {
		t.Fatalf("expected FileNotBeingTransferred on second cancel, got %v", status)
	}
}

func TestSendManagerStopXferRemovesInFlight(t *testing.T) {
	id := descriptor.FileID{3}
	d := descriptor.Descriptor{FileID: id, SharedPath: "/shared", Filename: "c.bin", Size: 4}
	cat := &fakeCatalog{descs: map[descriptor.FileID]descriptor.Descriptor{id: d}}
	fsa := &fakeReader{data: map[string][]byte{"/shared/c.bin": []byte("abcd")}}
	sm := NewSendManager(cat, fsa, &fakeQueue{}, 1024)

	sm.HandleRequest("peer", id, 0, 4, 1)
	sm.HandleStopXfer(id, "peer")

	if _, ok := sm.GetStatus(id); ok {
		t.Fatal("expected in-flight entry removed by StopXfer")
	}
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Since(t time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now.Sub(t)
}

func (c *fixedClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestSendManagerListInProgressReportsStall(t *testing.T) {
	id := descriptor.FileID{4}
	d := descriptor.Descriptor{FileID: id, SharedPath: "/shared", Filename: "d.bin", Size: 100}
	cat := &fakeCatalog{descs: map[descriptor.FileID]descriptor.Descriptor{id: d}}
	fsa := &fakeReader{data: map[string][]byte{"/shared/d.bin": make([]byte, 100)}}
	sm := NewSendManager(cat, fsa, &fakeQueue{}, 1024)

	clock := &fixedClock{now: time.Unix(0, 0)}
	sm.SetTimeProvider(clock)
	sm.SetStallTimeout(time.Second)

	sm.HandleRequest("peer", id, 0, 100, 10)

	progress := sm.ListInProgress()
	if len(progress) != 1 || progress[0].State != descriptor.ProgressInProgress {
		t.Fatalf("expected in-progress state, got %+v", progress)
	}

	clock.advance(2 * time.Second)
	progress = sm.ListInProgress()
	if len(progress) != 1 || progress[0].State != descriptor.ProgressTimedOut {
		t.Fatalf("expected timed out state, got %+v", progress)
	}
}
