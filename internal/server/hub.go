// Package server coordinates connection registration, event routing, and
// broadcast fan-out for the chat relay via the Hub type.
package server

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Hub is the broadcast router. It owns the set of live connections and a
// single event loop that turns inbound client events into outbound
// broadcasts. It keeps no message state: every event is handled
// independently and nothing is replayed to late joiners.
type Hub struct {
	registry   *Registry
	clients    map[*Client]bool
	events     chan inboundEvent
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates a Hub bound to the given registry. The registry is injected
// rather than shared through package state so the process owns exactly one
// relay instance with one construction path.
func NewHub(registry *Registry) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		registry:   registry,
		clients:    make(map[*Client]bool),
		events:     make(chan inboundEvent),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Registry returns the connection registry owned by this hub.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Run starts the hub's event loop, handling client registration,
// unregistration, and inbound event routing. Call it in its own goroutine;
// it runs until Shutdown cancels the hub's context.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.closeAllClients()
			return

		case client := <-h.register:
			if client == nil {
				log.Printf("Received nil client registration; skipping")
				continue
			}

			h.mutex.Lock()
			client.closed = false
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mutex.Unlock()
			log.Printf("Connection %s opened from %s. Total connections: %d", client.id, client.addr, clientCount)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closed = true
				clientCount := len(h.clients)
				h.mutex.Unlock()
				// Close the channel after releasing the lock.
				close(client.send)
				h.registry.Unregister(client.id)
				log.Printf("Connection %s closed. Total connections: %d", client.id, clientCount)
			} else {
				h.mutex.Unlock()
			}

		case event := <-h.events:
			h.route(event)
		}
	}
}

// route dispatches one inbound event. A malformed payload is dropped with a
// log line; it never disturbs the connection it came from or any other.
func (h *Hub) route(event inboundEvent) {
	switch event.frame.Event {
	case EventRegisterUser:
		var displayName string
		if !h.decodePayload(event, &displayName) {
			return
		}
		h.registry.Register(event.client.id, displayName)

	case EventSendMessage:
		var payload SendMessagePayload
		if !h.decodePayload(event, &payload) {
			return
		}
		message := NewChatMessage(payload.Sender, payload.Text)
		// The sender receives its own message too: every client rebuilds
		// its view purely from broadcasts, so there is a single insertion
		// path on the client side.
		h.broadcast(EventReceiveMessage, message, nil)

	case EventTyping:
		var displayName string
		if !h.decodePayload(event, &displayName) {
			return
		}
		// A client already knows it is typing, so only its own connection
		// is excluded.
		h.broadcast(EventUserTyping, displayName, event.client)

	case EventMessageSeen:
		var payload SeenPayload
		if !h.decodePayload(event, &payload) {
			return
		}
		// Relayed unconditionally, even for ids this server never issued:
		// there is no message store to check against. Receivers ignore
		// updates for messages they do not know.
		h.broadcast(EventMessageSeenUpdate, payload, nil)

	default:
		log.Printf("Dropping unknown event %q from connection %s", event.frame.Event, event.client.id)
	}
}

func (h *Hub) decodePayload(event inboundEvent, target any) bool {
	if err := json.Unmarshal(event.frame.Data, target); err != nil {
		log.Printf("Dropping malformed %q payload from connection %s: %v", event.frame.Event, event.client.id, err)
		return false
	}
	return true
}

// broadcast encodes one outbound event and fans it out to every live
// connection, skipping exclude when set. A recipient that cannot accept the
// frame is removed; its failure never aborts delivery to the rest.
func (h *Hub) broadcast(eventName string, data any, exclude *Client) {
	payload, err := encodeFrame(eventName, data)
	if err != nil {
		log.Printf("Failed to encode %q broadcast: %v", eventName, err)
		return
	}

	clients := h.clientSnapshot()

	var failed []*Client
	for _, client := range clients {
		if client == exclude {
			continue
		}
		if !h.safeSend(client, payload) {
			failed = append(failed, client)
		}
	}

	h.removeFailedClients(failed)
}

// clientSnapshot returns a thread-safe snapshot of all current clients so
// fan-out never iterates the live map while it is being mutated.
func (h *Hub) clientSnapshot() []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

func (h *Hub) safeSend(client *Client, payload []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in safeSend: %v", r)
		}
	}()

	// Hold the lock during the entire send so unregistration cannot close
	// the channel mid-send.
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	_, exists := h.clients[client]
	if !exists || client.closed {
		return false
	}

	select {
	case client.send <- payload:
		return true
	default:
		return false
	}
}

// removeFailedClients drops clients whose send buffers are full and closes
// their channels.
func (h *Hub) removeFailedClients(failed []*Client) {
	if len(failed) == 0 {
		return
	}

	h.mutex.Lock()
	var channelsToClose []chan []byte
	for _, client := range failed {
		if _, exists := h.clients[client]; exists {
			delete(h.clients, client)
			client.closed = true
			channelsToClose = append(channelsToClose, client.send)
			h.registry.Unregister(client.id)
			log.Printf("Connection %s removed due to full send buffer", client.id)
		}
	}
	h.mutex.Unlock()

	for _, ch := range channelsToClose {
		close(ch)
	}
}

// closeAllClients closes every active client connection during shutdown.
func (h *Hub) closeAllClients() {
	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Error closing connection %s: %v", client.id, err)
				}
			}
		}
	}

	log.Printf("Closed %d client connections", len(clients))
}

// Shutdown stops the event loop and closes all client connections. It
// returns once the loop has exited or the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Println("Initiating hub shutdown...")

	h.cancel()

	select {
	case <-h.done:
		log.Println("Hub shutdown completed")
		return nil
	case <-time.After(timeout):
		log.Println("Hub shutdown timeout reached")
		return context.DeadlineExceeded
	}
}
