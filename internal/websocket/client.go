package websocket

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/dennisdiepolder/activations/backend/internal/config"
	"github.com/dennisdiepolder/activations/backend/internal/metrics"
	"github.com/dennisdiepolder/activations/backend/internal/types"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// primeTimeout bounds the load that fills a fresh subscription
const primeTimeout = 20 * time.Second

// DashboardSource provides dashboards for new subscriptions
type DashboardSource interface {
	Snapshot(sheet, query string) (*types.Dashboard, bool)
	Load(ctx context.Context, sheet, query string) (*types.Dashboard, error)
}

// subscribeMessage is sent by clients to change their (sheet, query)
type subscribeMessage struct {
	Type  string `json:"type"`
	Sheet string `json:"sheet"`
	Query string `json:"query"`
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	// Unique client ID
	id string

	// The hub this client belongs to
	hub *Hub

	// The websocket connection
	conn *websocket.Conn

	// Buffered channel of outbound messages
	send chan []byte

	// Current subscription, guarded by hub.mu
	sub Subscription

	source DashboardSource
	config *config.Config
	logger zerolog.Logger
}

// NewClient creates a new Client subscribed to sub
func NewClient(hub *Hub, conn *websocket.Conn, source DashboardSource, sub Subscription, cfg *config.Config, logger zerolog.Logger) *Client {
	clientID := uuid.New().String()
	return &Client{
		id:     clientID,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		sub:    sub,
		source: source,
		config: cfg,
		logger: logger.With().Str("client_id", clientID).Logger(),
	}
}

// readPump pumps messages from the websocket connection to the hub
//
// The application runs readPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				metrics.Get().RecordWebSocketError()
				c.logger.Error().Err(err).Msg("websocket read error")
			}
			break
		}
		c.handleMessage(message)
	}
}

func (c *Client) handleMessage(message []byte) {
	var msg subscribeMessage
	if err := json.Unmarshal(message, &msg); err != nil || msg.Type != "subscribe" {
		c.logger.Debug().Str("message", string(message)).Msg("ignoring client message")
		return
	}

	sub := NewSubscription(msg.Sheet, msg.Query)
	c.hub.resubscribe(c, sub)
	c.logger.Info().Str("sheet", sub.Sheet).Str("query", sub.Query).Msg("client resubscribed")
	go c.prime(context.Background(), sub)
}

// prime sends the current dashboard for sub, loading it when no snapshot
// exists yet. The result is dropped if the client resubscribed in the meantime.
func (c *Client) prime(ctx context.Context, sub Subscription) {
	d, ok := c.source.Snapshot(sub.Sheet, sub.Query)
	if !ok {
		ctx, cancel := context.WithTimeout(ctx, primeTimeout)
		defer cancel()

		var err error
		if d, err = c.source.Load(ctx, sub.Sheet, sub.Query); err != nil {
			// the next refresh cycle retries
			c.logger.Warn().Err(err).Str("sheet", sub.Sheet).Msg("failed to load initial dashboard")
			return
		}
	}

	c.hub.mu.RLock()
	current := c.sub
	c.hub.mu.RUnlock()
	if current != sub {
		c.logger.Debug().Str("sheet", sub.Sheet).Msg("dropping dashboard for stale subscription")
		return
	}

	data, err := json.Marshal(types.DashboardUpdate{
		Type:      "dashboard_update",
		Key:       sub.Key(),
		Dashboard: d,
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to marshal initial dashboard")
		return
	}
	c.hub.sendTo(c, data)
}

// writePump pumps messages from the hub to the websocket connection
//
// A goroutine running writePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// one dashboard per frame so clients can decode each message as JSON
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				metrics.Get().RecordWebSocketError()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start starts the client's read and write pumps
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// NewSubscription normalizes a requested (sheet, query)
func NewSubscription(sheet, query string) Subscription {
	sheet = strings.TrimSpace(sheet)
	if sheet == "" {
		sheet = types.MasterSheet
	}
	return Subscription{Sheet: sheet, Query: strings.TrimSpace(query)}
}
