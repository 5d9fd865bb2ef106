package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeConn struct {
	mu        sync.Mutex
	messages  [][]byte
	failAfter int // 0 means never fail
	closed    bool
	written   chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{written: make(chan struct{}, 128)}
}

func (c *fakeConn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failAfter > 0 && len(c.messages) >= c.failAfter {
		return errors.New("broken pipe")
	}
	c.messages = append(c.messages, append([]byte(nil), data...))
	c.written <- struct{}{}
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) events(t *testing.T) []Event {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, 0, len(c.messages))
	for _, raw := range c.messages {
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			t.Fatalf("decode message %s: %v", raw, err)
		}
		out = append(out, ev)
	}
	return out
}

func (c *fakeConn) waitFor(t *testing.T, n int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		c.mu.Lock()
		got := len(c.messages)
		c.mu.Unlock()
		if got >= n {
			return
		}
		select {
		case <-c.written:
		case <-deadline:
			t.Fatalf("expected %d messages, got %d", n, got)
		}
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRegisterSendsConnected(t *testing.T) {
	hub := NewHub(8, zap.NewNop())
	conn := newFakeConn()

	client, err := hub.Register(conn)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	conn.waitFor(t, 1)

	events := conn.events(t)
	if events[0].Event != EventConnected || events[0].ClientID != client.ID {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	if hub.Len() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.Len())
	}
}

func TestBroadcastReachesEveryClientInOrder(t *testing.T) {
	hub := NewHub(16, zap.NewNop())
	a, b := newFakeConn(), newFakeConn()
	if _, err := hub.Register(a); err != nil {
		t.Fatal(err)
	}
	if _, err := hub.Register(b); err != nil {
		t.Fatal(err)
	}

	hub.Broadcast(SeatHeld("A-A-1", "s1"))
	hub.Broadcast(SeatReleased("A-A-1", "s1"))
	hub.Broadcast(SeatsSold([]string{"A-A-2"}, "s2"))

	for _, conn := range []*fakeConn{a, b} {
		conn.waitFor(t, 4)
		events := conn.events(t)
		want := []EventKind{EventConnected, EventSeatHeld, EventSeatReleased, EventSeatsSold}
		for i, kind := range want {
			if events[i].Event != kind {
				t.Fatalf("event %d: expected %s, got %s", i, kind, events[i].Event)
			}
		}
	}
}

func TestBroadcastPrunesFailedClient(t *testing.T) {
	hub := NewHub(16, zap.NewNop())
	healthy := newFakeConn()
	broken := newFakeConn()
	broken.failAfter = 1 // accepts the connected ack, then fails

	if _, err := hub.Register(healthy); err != nil {
		t.Fatal(err)
	}
	brokenClient, err := hub.Register(broken)
	if err != nil {
		t.Fatal(err)
	}
	broken.waitFor(t, 1)

	hub.Broadcast(SeatHeld("A-A-1", "s1"))
	<-brokenClient.Done()
	waitUntil(t, func() bool { return hub.Len() == 1 })

	hub.Broadcast(SeatReleased("A-A-1", "s1"))
	healthy.waitFor(t, 3)

	if got := len(broken.events(t)); got != 1 {
		t.Fatalf("pruned client should have only the connected ack, got %d messages", got)
	}
	broken.mu.Lock()
	closed := broken.closed
	broken.mu.Unlock()
	if !closed {
		t.Fatal("pruned client transport should be closed")
	}
}

func TestBroadcastPrunesClientWithFullQueue(t *testing.T) {
	hub := NewHub(1, zap.NewNop())
	stuck := &blockingConn{release: make(chan struct{})}
	defer close(stuck.release)

	if _, err := hub.Register(stuck); err != nil {
		t.Fatal(err)
	}
	// The writer is parked on the connected ack; the queue holds one more.
	waitUntil(t, func() bool { return stuck.entered() })

	hub.Broadcast(SeatHeld("A-A-1", "s1"))
	delivered := hub.Broadcast(SeatHeld("A-A-2", "s1"))

	if delivered != 0 {
		t.Fatalf("expected no delivery to a full queue, got %d", delivered)
	}
	if hub.Len() != 0 {
		t.Fatalf("expected stuck client to be pruned, %d left", hub.Len())
	}
}

type blockingConn struct {
	mu      sync.Mutex
	inWrite bool
	release chan struct{}
}

func (c *blockingConn) WriteMessage([]byte) error {
	c.mu.Lock()
	c.inWrite = true
	c.mu.Unlock()
	<-c.release
	return nil
}

func (c *blockingConn) entered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inWrite
}

func (c *blockingConn) Close() error { return nil }

func TestUnregisterIsIdempotent(t *testing.T) {
	hub := NewHub(4, zap.NewNop())
	client, err := hub.Register(newFakeConn())
	if err != nil {
		t.Fatal(err)
	}

	hub.Unregister(client.ID)
	hub.Unregister(client.ID)
	hub.Unregister("missing")

	<-client.Done()
	if hub.Len() != 0 {
		t.Fatalf("expected empty hub, got %d", hub.Len())
	}
}

func TestJoinAndSend(t *testing.T) {
	hub := NewHub(4, zap.NewNop())
	conn := newFakeConn()
	client, err := hub.Register(conn)
	if err != nil {
		t.Fatal(err)
	}

	if err := hub.Join(client.ID, "session-1"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if got := hub.SessionOf(client.ID); got != "session-1" {
		t.Fatalf("expected session-1, got %q", got)
	}
	if err := hub.Join("missing", "x"); !errors.Is(err, ErrClientUnknown) {
		t.Fatalf("expected ErrClientUnknown, got %v", err)
	}

	if err := hub.Send(client.ID, Error("bad input")); err != nil {
		t.Fatalf("send: %v", err)
	}
	conn.waitFor(t, 2)
	if ev := conn.events(t)[1]; ev.Event != EventError || ev.Message != "bad input" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestShutdownClosesClientsAndRejectsRegistration(t *testing.T) {
	hub := NewHub(4, zap.NewNop())
	conn := newFakeConn()
	if _, err := hub.Register(conn); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := hub.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	conn.mu.Lock()
	closed := conn.closed
	conn.mu.Unlock()
	if !closed {
		t.Fatal("expected transport to be closed on shutdown")
	}
	if _, err := hub.Register(newFakeConn()); !errors.Is(err, ErrHubClosed) {
		t.Fatalf("expected ErrHubClosed, got %v", err)
	}
}
