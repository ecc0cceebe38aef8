package live

import (
	"strconv"
	"sync"
	"testing"

	"github.com/ashureev/valentine/internal/valentine"
)

func isClosed(s *subscriber) bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func TestHub_PublishReachesRegistered(t *testing.T) {
	hub := NewHub()
	sub := newSubscriber(nil)
	hub.Register("v:tab-1", sub)

	hub.Publish("v:tab-1", valentine.Snapshot{Version: 3})
	hub.Publish("v:tab-2", valentine.Snapshot{Version: 4})

	select {
	case snap := <-sub.updates:
		if snap.Version != 3 {
			t.Errorf("Expected version 3, got %d", snap.Version)
		}
	default:
		t.Fatal("Expected a queued snapshot")
	}
	if len(sub.updates) != 0 {
		t.Error("Expected other sessions' snapshots to stay out")
	}
}

func TestHub_OfferKeepsLatest(t *testing.T) {
	sub := newSubscriber(nil)
	for v := uint64(1); v <= 5; v++ {
		sub.offer(valentine.Snapshot{Version: v})
	}

	snap := <-sub.updates
	if snap.Version != 5 {
		t.Errorf("Expected latest version 5, got %d", snap.Version)
	}
}

func TestHub_RegisterReplaces(t *testing.T) {
	hub := NewHub()
	old := newSubscriber(nil)
	cur := newSubscriber(nil)

	hub.Register("v:tab", old)
	hub.Register("v:tab", cur)

	if !isClosed(old) {
		t.Error("Expected replaced connection to be closed")
	}

	// The stale handler unregistering must not detach the new one.
	hub.Unregister("v:tab", old)
	if hub.Len() != 1 {
		t.Fatalf("Expected current connection to stay, got %d", hub.Len())
	}

	hub.Unregister("v:tab", cur)
	if hub.Len() != 0 {
		t.Errorf("Expected no connections, got %d", hub.Len())
	}
}

func TestHub_CloseSession(t *testing.T) {
	hub := NewHub()
	sub := newSubscriber(nil)
	hub.Register("v:tab", sub)

	hub.CloseSession("v:tab")
	hub.CloseSession("v:tab")

	if !isClosed(sub) {
		t.Error("Expected subscriber to be closed")
	}
	if hub.Len() != 0 {
		t.Errorf("Expected no connections, got %d", hub.Len())
	}
}

func TestHub_ConcurrentAccess(t *testing.T) {
	hub := NewHub()
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			hub.Register("v:tab-"+strconv.Itoa(i%10), newSubscriber(nil))
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			hub.Publish("v:tab-"+strconv.Itoa(i%10), valentine.Snapshot{Version: uint64(i)})
		}
	}()

	wg.Wait()
	if hub.Len() != 10 {
		t.Errorf("Expected 10 connections, got %d", hub.Len())
	}
}
