package bus

import (
	"sync"
	"testing"
	"time"

	"github.com/fmeshio/filemesh/descriptor"
)

type recordingHandler struct {
	mu        sync.Mutex
	announces [][]descriptor.Descriptor
	requested bool
}

func (r *recordingHandler) OnAnnounce(list []descriptor.Descriptor, isOfferResponse bool, sender descriptor.PeerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.announces = append(r.announces, list)
}
func (r *recordingHandler) OnRequestAnnouncement(sender descriptor.PeerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requested = true
}
func (r *recordingHandler) OnDataChunk(fileID descriptor.FileID, start int64, length int32, chunk []byte, sender descriptor.PeerID) {
}
func (r *recordingHandler) OnStopXfer(fileID descriptor.FileID, sender descriptor.PeerID)      {}
func (r *recordingHandler) OnXferCancelled(fileID descriptor.FileID, sender descriptor.PeerID) {}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

func TestLoopbackBroadcastReachesAllButSender(t *testing.T) {
	net := NewNetwork("s1")
	a := net.Join("a")
	b := net.Join("b")
	c := net.Join("c")

	rb := &recordingHandler{}
	rc := &recordingHandler{}
	b.RegisterSignalHandler(rb)
	c.RegisterSignalHandler(rc)

	desc := descriptor.Descriptor{Owner: "a", Filename: "x.bin", Size: 5}
	if err := a.EmitAnnounce([]descriptor.Descriptor{desc}, false, ""); err != nil {
		t.Fatalf("emit: %v", err)
	}

	waitFor(t, func() bool {
		rb.mu.Lock()
		defer rb.mu.Unlock()
		rc.mu.Lock()
		defer rc.mu.Unlock()
		return len(rb.announces) == 1 && len(rc.announces) == 1
	})
}

func TestLoopbackDirectedToUnknownPeerFails(t *testing.T) {
	net := NewNetwork("s1")
	a := net.Join("a")
	if err := a.EmitRequestAnnouncement("ghost"); err != ErrNoSuchPeer {
		t.Fatalf("expected ErrNoSuchPeer, got %v", err)
	}
}

func TestLoopbackJoinMintsIdentity(t *testing.T) {
	net := NewNetwork("s1")
	a := net.Join("")
	if a.LocalPeer() == "" {
		t.Fatalf("expected minted peer identity")
	}
}

type statusMethodHandler struct{ status descriptor.StatusCode }

func (s statusMethodHandler) OnRequestData(descriptor.PeerID, descriptor.FileID, int64, int32, int32) descriptor.StatusCode {
	return s.status
}
func (s statusMethodHandler) OnOfferFile(descriptor.PeerID, descriptor.Descriptor) descriptor.StatusCode {
	return s.status
}
func (s statusMethodHandler) OnRequestOffer(descriptor.PeerID, string) descriptor.StatusCode {
	return s.status
}

func TestLoopbackMethodCallReturnsRemoteStatus(t *testing.T) {
	net := NewNetwork("s1")
	a := net.Join("a")
	b := net.Join("b")
	b.RegisterMethodHandler(statusMethodHandler{status: descriptor.RequestDenied})

	got, err := a.CallRequestOffer("b", "/some/path")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if got != descriptor.RequestDenied {
		t.Fatalf("expected RequestDenied, got %v", got)
	}
}
