package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lorrc/service-desk-analytics/internal/core/domain"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	sendBufferSize = 256
)

// Client message types.
const (
	MessageSubscribe   = "SUBSCRIBE_TO_DATASET"
	MessageUnsubscribe = "UNSUBSCRIBE_FROM_DATASET"
	MessagePing        = "PING"
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// Buffered channel of outbound messages.
	Send chan domain.Event

	UserID string
	Role   domain.Role

	// Subscriptions holds the dataset IDs this client watches.
	Subscriptions map[string]bool

	// sendMu guards closed so no send races the channel close.
	sendMu sync.Mutex
	closed bool

	// mu protects Subscriptions map
	mu sync.RWMutex

	logger *slog.Logger
}

// NewClient creates a new WebSocket client
func NewClient(hub *Hub, conn *websocket.Conn, userID string, role domain.Role, logger *slog.Logger) *Client {
	return &Client{
		Hub:           hub,
		Conn:          conn,
		Send:          make(chan domain.Event, sendBufferSize),
		UserID:        userID,
		Role:          role,
		Subscriptions: make(map[string]bool),
		logger:        logger.With("user_id", userID),
	}
}

// CloseSend safely closes the Send channel exactly once
func (c *Client) CloseSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// TrySend queues an event without blocking. It returns false when the buffer
// is full or the client is already closed.
func (c *Client) TrySend(event domain.Event) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- event:
		return true
	default:
		return false
	}
}

func (c *Client) AddSubscription(datasetID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Subscriptions[datasetID] = true
}

func (c *Client) RemoveSubscription(datasetID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.Subscriptions, datasetID)
}

// HasSubscription checks if the client is watching a dataset
func (c *Client) HasSubscription(datasetID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Subscriptions[datasetID]
}

// GetSubscriptions returns a copy of all subscriptions
func (c *Client) GetSubscriptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	subs := make([]string, 0, len(c.Subscriptions))
	for datasetID := range c.Subscriptions {
		subs = append(subs, datasetID)
	}
	return subs
}

// ReadPump pumps messages from the websocket connection to the hub.
// This method runs in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.unregister(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Error("failed to set read deadline in pong handler", "error", err)
		}
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			break
		}

		c.handleIncomingMessage(message)
	}
}

// WritePump pumps messages from the hub to the websocket connection.
// This method runs in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// The hub closed the channel.
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug("failed to send close message", "error", err)
				}
				return
			}

			if err := c.Conn.WriteJSON(event); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// ClientMessage is the structure for messages sent from the client.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SubscribePayload is the payload for subscribe/unsubscribe messages
type SubscribePayload struct {
	DatasetID string `json:"datasetId"`
}

func (c *Client) handleIncomingMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Warn("failed to unmarshal client message", "error", err)
		return
	}

	switch msg.Type {
	case MessageSubscribe:
		if id, ok := c.datasetID(msg.Payload); ok {
			c.Watch(id)
		}

	case MessageUnsubscribe:
		if id, ok := c.datasetID(msg.Payload); ok {
			c.Hub.unsubscribe(c, id)
		}

	case MessagePing:
		c.sendPong()

	default:
		c.logger.Debug("received unknown message type", "type", msg.Type)
	}
}

// Watch subscribes the client to a dataset room. Invalid IDs are ignored.
func (c *Client) Watch(datasetID string) bool {
	id, err := uuid.Parse(datasetID)
	if err != nil {
		c.logger.Warn("invalid dataset ID in subscribe request", "dataset_id", datasetID)
		return false
	}
	c.Hub.subscribe(c, id.String())
	return true
}

// datasetID extracts and normalises the dataset ID of a subscribe payload.
func (c *Client) datasetID(payload json.RawMessage) (string, bool) {
	var p SubscribePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.logger.Warn("failed to unmarshal subscribe payload", "error", err)
		return "", false
	}

	id, err := uuid.Parse(p.DatasetID)
	if err != nil {
		c.logger.Warn("invalid dataset ID in subscribe request", "dataset_id", p.DatasetID)
		return "", false
	}
	return id.String(), true
}

func (c *Client) sendPong() {
	c.TrySend(domain.Event{Type: domain.EventPong})
}
