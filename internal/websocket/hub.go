package websocket

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/dennisdiepolder/activations/backend/internal/metrics"
	"github.com/dennisdiepolder/activations/backend/internal/types"
	"github.com/rs/zerolog"
)

// Subscription is the (sheet, query) pair a client is watching
type Subscription struct {
	Sheet string
	Query string
}

// Key returns the subscription's broadcast key
func (s Subscription) Key() string {
	return types.SubscriptionKey(s.Sheet, s.Query)
}

// outbound is a message queued for the clients subscribed to key.
// A set target reaches only that client.
type outbound struct {
	key    string
	target *Client
	data   []byte
}

// Hub maintains the set of active clients and fans messages out by subscription
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Messages to deliver
	broadcast chan outbound

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	// Mutex to protect clients map and client subscriptions
	mu sync.RWMutex

	logger zerolog.Logger
}

// NewHub creates a new Hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		logger:     logger.With().Str("component", "ws_hub").Logger(),
	}
}

// Run starts the hub's main loop. It closes every client when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	m := metrics.Get()
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.remove(client)
			}
			h.mu.Unlock()
			h.logger.Info().Msg("hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			m.RecordWebSocketConnect()
			h.logger.Info().
				Str("client_id", client.id).
				Str("sheet", client.sub.Sheet).
				Int("total_clients", total).
				Msg("client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.remove(client)
				h.logger.Info().
					Str("client_id", client.id).
					Int("total_clients", len(h.clients)).
					Msg("client disconnected")
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// Publish sends a dashboard to the clients subscribed to its (sheet, query)
func (h *Hub) Publish(d *types.Dashboard) error {
	key := types.SubscriptionKey(d.Sheet, d.Query)
	data, err := json.Marshal(types.DashboardUpdate{
		Type:      "dashboard_update",
		Key:       key,
		Dashboard: d,
	})
	if err != nil {
		return err
	}
	h.enqueue(outbound{key: key, data: data})
	return nil
}

// sendTo queues a message for a single registered client
func (h *Hub) sendTo(client *Client, data []byte) {
	h.enqueue(outbound{target: client, data: data})
}

func (h *Hub) enqueue(msg outbound) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Subscriptions returns the distinct subscriptions of connected clients, sorted
func (h *Hub) Subscriptions() []Subscription {
	h.mu.RLock()
	seen := make(map[string]Subscription)
	for client := range h.clients {
		seen[client.sub.Key()] = client.sub
	}
	h.mu.RUnlock()

	subs := make([]Subscription, 0, len(seen))
	for _, s := range seen {
		subs = append(subs, s)
	}
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].Sheet != subs[j].Sheet {
			return subs[i].Sheet < subs[j].Sheet
		}
		return subs[i].Query < subs[j].Query
	})
	return subs
}

// resubscribe moves a client to a new (sheet, query)
func (h *Hub) resubscribe(client *Client, sub Subscription) {
	h.mu.Lock()
	client.sub = sub
	h.mu.Unlock()
}

func (h *Hub) deliver(msg outbound) {
	m := metrics.Get()

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if msg.target != nil {
			if client != msg.target {
				continue
			}
		} else if client.sub.Key() != msg.key {
			continue
		}
		select {
		case client.send <- msg.data:
			m.RecordWebSocketMessage()
		default:
			h.remove(client)
			h.logger.Warn().
				Str("client_id", client.id).
				Msg("client send buffer full, closing connection")
		}
	}
}

// remove drops a client and closes its send channel. Callers hold h.mu.
func (h *Hub) remove(client *Client) {
	delete(h.clients, client)
	close(client.send)
	metrics.Get().RecordWebSocketDisconnect()
}
