package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60

	// EventChanges is the WebSocket event carrying a debounced batch.
	EventChanges = "changes"
)

// Subscriber delivers change events from other instances.
type Subscriber interface {
	Subscribe(ctx context.Context, handler func(Change)) (cancel func(), err error)
}

// ChangesPayload is the data of an EventChanges message.
type ChangesPayload struct {
	Tables []string `json:"tables"`
}

// Hub holds the WebSocket clients of this instance and relays debounced change batches.
type Hub struct {
	clients  map[string]*Client
	mu       sync.RWMutex
	debounce *Debouncer
	logger   *zap.Logger
}

// NewHub creates a hub that flushes at most once per window.
func NewHub(window time.Duration, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
	}
	h.debounce = NewDebouncer(window, h.broadcastTables)
	return h
}

// Run subscribes once for the instance and relays changes until ctx is done.
func (h *Hub) Run(ctx context.Context, sub Subscriber) error {
	cancel, err := sub.Subscribe(ctx, h.Notify)
	if err != nil {
		return err
	}
	h.logger.Info("realtime change feed subscribed")
	go func() {
		<-ctx.Done()
		cancel()
		h.debounce.Stop()
	}()
	return nil
}

// Notify feeds a change into the debounce window.
func (h *Hub) Notify(c Change) {
	if c.Table == "" {
		return
	}
	h.debounce.Add(c.Table)
}

// Register adds a client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("realtime client connected", zap.String("client_id", c.ID), zap.Int("clients", n))
}

// Unregister removes a client.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.ID)
	h.mu.Unlock()
	h.logger.Debug("realtime client disconnected", zap.String("client_id", c.ID))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcastTables(tables []string) {
	data, err := json.Marshal(ChangesPayload{Tables: tables})
	if err != nil {
		return
	}
	h.Broadcast(WSMessage{Event: EventChanges, Data: data})
}

// Broadcast sends msg to every client, skipping clients whose buffer is full.
func (h *Hub) Broadcast(msg WSMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Debug("client buffer full, dropping message", zap.String("client_id", c.ID))
		}
	}
}
