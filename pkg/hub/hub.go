// Package hub tracks the set of connected push-channel subscribers and fans
// serialized events out to each of them. Delivery is best-effort and
// at-most-once: a subscriber that is closed or cannot keep up is skipped and
// removed, never retried or awaited. Events are fanned out in the order they
// are handed to Broadcast, so every subscriber observes a prefix of the
// emission order.
package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"chatrelay/pkg/logger"
	"chatrelay/pkg/metrics"
)

// Hub owns the subscriber registry. Clients are added on connection
// handshake and removed on disconnect, send failure, or shutdown; nothing
// else holds references into the set.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// New creates a Hub ready to accept registrations once Run is started.
func New() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Broadcast serializes the event and queues it for fanout to every open
// subscriber. The queue preserves the order of calls; fanout itself happens
// on the hub's run loop.
func (h *Hub) Broadcast(evt Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		logger.Error("event_marshal_failed", "type", evt.Type, "error", err)
		return
	}
	select {
	case h.broadcast <- payload:
	case <-h.ctx.Done():
	}
}

// Register hands a new client to the run loop, which adds it to the set and
// starts its pumps. The register channel is unbuffered: when Register
// returns, the run loop has taken the client and completes the addition
// before it can dequeue any subsequently broadcast event, so fanout never
// skips a client whose Register call has returned. Anything already queued
// in the client's send buffer (the connect-time snapshot) is flushed before
// any later broadcast.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.ctx.Done():
	}
}

// Run is the hub's event loop. It serializes registration, removal, and
// fanout so no locking is needed around the per-event client iteration
// order. Call it in its own goroutine; it returns when Shutdown is invoked.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				continue
			}
			h.mu.Lock()
			client.closed = false
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			metrics.Subscribers.Inc()
			logger.Info("subscriber_joined", "addr", client.addr, "subscribers", count)

			h.wg.Add(2)
			go func() {
				defer h.wg.Done()
				client.writePump()
			}()
			go func() {
				defer h.wg.Done()
				client.readPump()
			}()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closed = true
				count := len(h.clients)
				h.mu.Unlock()
				close(client.send)
				metrics.Subscribers.Dec()
				logger.Info("subscriber_left", "addr", client.addr, "subscribers", count)
			} else {
				h.mu.Unlock()
			}

		case payload := <-h.broadcast:
			h.fanout(payload)
		}
	}
}

// fanout attempts one send per open subscriber. Subscribers whose buffers
// are full are dropped from the set instead of blocking the rest.
func (h *Hub) fanout(payload []byte) {
	metrics.BroadcastsTotal.Inc()

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	var failed []*Client
	for _, client := range clients {
		if !h.trySend(client, payload) {
			failed = append(failed, client)
		}
	}
	h.removeFailed(failed)
}

// trySend delivers the payload to a single subscriber without blocking.
func (h *Hub) trySend(client *Client, payload []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.clients[client]; !ok || client.closed {
		return false
	}
	select {
	case client.send <- payload:
		return true
	default:
		return false
	}
}

func (h *Hub) removeFailed(failed []*Client) {
	if len(failed) == 0 {
		return
	}

	h.mu.Lock()
	var toClose []chan []byte
	for _, client := range failed {
		if _, ok := h.clients[client]; ok {
			delete(h.clients, client)
			client.closed = true
			toClose = append(toClose, client.send)
			metrics.Subscribers.Dec()
			metrics.BroadcastDropsTotal.Inc()
			logger.Warn("subscriber_dropped", "addr", client.addr, "reason", "send buffer full")
		}
	}
	h.mu.Unlock()

	for _, ch := range toClose {
		close(ch)
	}
}

func (h *Hub) shutdownClients() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		if client.conn != nil {
			_ = client.conn.Close()
		}
	}
	if len(clients) > 0 {
		logger.Info("subscribers_closed", "count", len(clients))
	}
}

// Shutdown stops the run loop, closes all connections and waits for pump
// goroutines up to the timeout.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("hub_shutdown_complete")
		return nil
	case <-time.After(timeout):
		logger.Warn("hub_shutdown_timeout")
		return context.DeadlineExceeded
	}
}
