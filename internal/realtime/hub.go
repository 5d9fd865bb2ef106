package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"event-seating/pkg/utils"

	"go.uber.org/zap"
)

var (
	ErrHubClosed     = errors.New("realtime hub is shut down")
	ErrClientUnknown = errors.New("client is not registered")
)

const defaultSendBuffer = 64

// Conn is one live transport. WriteMessage is only ever called from the
// client's writer goroutine.
type Conn interface {
	WriteMessage(data []byte) error
	Close() error
}

// Client is a registered channel.
type Client struct {
	ID string

	conn      Conn
	send      chan []byte
	sessionID string
	closeOnce sync.Once
	done      chan struct{}
}

// Done is closed once the client's writer has stopped and the transport is closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// Hub is the registry of live channels. All registry mutations and all
// enqueues happen under mu, so every client sees broadcasts in call order.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]*Client
	closed     bool
	sendBuffer int
	wg         sync.WaitGroup
	log        *zap.Logger
}

func NewHub(sendBuffer int, log *zap.Logger) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}
	return &Hub{
		clients:    make(map[string]*Client),
		sendBuffer: sendBuffer,
		log:        log.With(zap.String("component", "hub")),
	}
}

// Register adds conn to the live set and queues its connected acknowledgment.
func (h *Hub) Register(conn Conn) (*Client, error) {
	client := &Client{
		ID:   utils.GenerateUUIDString(),
		conn: conn,
		send: make(chan []byte, h.sendBuffer),
		done: make(chan struct{}),
	}

	payload, err := json.Marshal(Connected(client.ID))
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	h.clients[client.ID] = client
	client.send <- payload
	h.wg.Add(1)
	h.mu.Unlock()

	go h.writePump(client)

	h.log.Info("Client connected", zap.String("client_id", client.ID))
	return client, nil
}

// Unregister removes the client and stops its writer. Unknown IDs are ignored.
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(clientID, "unregistered")
}

func (h *Hub) removeLocked(clientID, reason string) {
	client, ok := h.clients[clientID]
	if !ok {
		return
	}
	delete(h.clients, clientID)
	client.closeSend()
	h.log.Info("Client disconnected",
		zap.String("client_id", clientID),
		zap.String("session_id", client.sessionID),
		zap.String("reason", reason),
	)
}

// Join binds sessionID to the client.
func (h *Hub) Join(clientID, sessionID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[clientID]
	if !ok {
		return ErrClientUnknown
	}
	client.sessionID = sessionID
	h.log.Debug("Client joined session",
		zap.String("client_id", clientID),
		zap.String("session_id", sessionID),
	)
	return nil
}

// SessionOf returns the session joined on clientID, or "".
func (h *Hub) SessionOf(clientID string) string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if client, ok := h.clients[clientID]; ok {
		return client.sessionID
	}
	return ""
}

// Send queues ev for a single client.
func (h *Hub) Send(clientID string, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[clientID]
	if !ok {
		return ErrClientUnknown
	}
	if !h.enqueueLocked(client, payload) {
		return ErrClientUnknown
	}
	return nil
}

// Broadcast serializes ev once and queues it for every live client. Clients
// that cannot take the message are pruned. It returns how many clients
// received the event.
func (h *Hub) Broadcast(ev Event) int {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("Failed to encode event", zap.Error(err), zap.String("event", string(ev.Event)))
		return 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for _, client := range h.clients {
		if h.enqueueLocked(client, payload) {
			delivered++
		}
	}

	h.log.Debug("Event broadcast",
		zap.String("event", string(ev.Event)),
		zap.Int("delivered", delivered),
		zap.Int("clients", len(h.clients)),
	)
	return delivered
}

// enqueueLocked never blocks: a full queue means the client stopped reading.
func (h *Hub) enqueueLocked(client *Client, payload []byte) bool {
	select {
	case client.send <- payload:
		return true
	default:
		h.log.Warn("Client send queue full, pruning", zap.String("client_id", client.ID))
		h.removeLocked(client.ID, "send queue full")
		return false
	}
}

// Len returns the number of live clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown closes every client, waits for their writers to flush, and
// rejects later registrations.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	for id := range h.clients {
		h.removeLocked(id, "shutdown")
	}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) writePump(client *Client) {
	defer h.wg.Done()
	defer close(client.done)
	defer client.conn.Close()

	for payload := range client.send {
		if err := client.conn.WriteMessage(payload); err != nil {
			h.log.Warn("Failed to write to client", zap.String("client_id", client.ID), zap.Error(err))
			h.mu.Lock()
			h.removeLocked(client.ID, "write failed")
			h.mu.Unlock()
			return
		}
	}
}
