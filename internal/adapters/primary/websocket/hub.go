package websocket

import (
	"log/slog"
	"sync"

	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	"github.com/lorrc/service-desk-analytics/internal/core/ports"
)

// Hub maintains the set of active Clients and broadcasts messages to them.
type Hub struct {
	// Clients maps user IDs to their active connections
	// A single user can have multiple connections (multiple tabs/devices)
	clients map[string]map[*Client]bool

	// Rooms maps dataset IDs to subscribed clients
	rooms map[string]map[*Client]bool

	// Broadcast channel for events
	broadcast chan domain.Event

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	done chan struct{}

	// mu protects the clients and rooms maps
	mu sync.RWMutex

	logger *slog.Logger
}

// Ensure Hub implements the EventBroadcaster interface.
var _ ports.EventBroadcaster = (*Hub)(nil)

// NewHub creates a new WebSocket hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan domain.Event, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.With("component", "websocket_hub"),
	}
}

// Broadcast queues an event for delivery. A full queue drops the event, since
// dashboards re-fetch on the next event anyway.
func (h *Hub) Broadcast(event domain.Event) error {
	select {
	case h.broadcast <- event:
		return nil
	default:
		h.logger.Warn("broadcast channel full, dropping event",
			"event_type", event.Type,
			"dataset_id", event.DatasetID,
		)
		return nil
	}
}

// Run starts the hub's event loop. This MUST be run as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)

		case <-h.done:
			h.closeAll()
			return
		}
	}
}

// Stop ends the event loop and closes every client's send channel.
func (h *Hub) Stop() {
	close(h.done)
}

// unregister hands a client to the event loop, or drops it if the hub stopped.
func (h *Hub) unregister(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = make(map[*Client]bool)
	}
	h.clients[client.UserID][client] = true

	h.logger.Info("client registered",
		"user_id", client.UserID,
		"total_connections", len(h.clients[client.UserID]),
	)
}

// unregisterClient removes a client from the hub and all rooms
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subscriptions := client.GetSubscriptions()

	// 1. Remove from the global user map
	if userClients, ok := h.clients[client.UserID]; ok {
		if _, exists := userClients[client]; exists {
			delete(userClients, client)
			if len(userClients) == 0 {
				delete(h.clients, client.UserID)
			}
		}
	}

	// 2. Remove from all subscribed rooms
	for _, datasetID := range subscriptions {
		h.leaveRoom(client, datasetID)
	}

	// 3. Safely close the send channel
	client.CloseSend()

	h.logger.Info("client unregistered",
		"user_id", client.UserID,
	)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, userClients := range h.clients {
		for client := range userClients {
			client.CloseSend()
		}
	}
	h.clients = make(map[string]map[*Client]bool)
	h.rooms = make(map[string]map[*Client]bool)
}

// broadcastEvent delivers dataset-list events to everyone and all other
// events to the dataset's room.
func (h *Hub) broadcastEvent(event domain.Event) {
	h.mu.RLock()
	var clients []*Client
	if event.Type.IsGlobal() {
		for _, userClients := range h.clients {
			for client := range userClients {
				clients = append(clients, client)
			}
		}
	} else {
		for client := range h.rooms[event.DatasetID] {
			clients = append(clients, client)
		}
	}
	h.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	h.logger.Debug("broadcasting event",
		"event_type", event.Type,
		"dataset_id", event.DatasetID,
		"client_count", len(clients),
	)

	for _, client := range clients {
		if !client.TrySend(event) {
			h.logger.Warn("client send buffer full, unregistering",
				"user_id", client.UserID,
			)
			h.unregisterClient(client)
		}
	}

	if event.Type == domain.EventDatasetDeleted {
		h.closeRoom(event.DatasetID)
	}
}

func (h *Hub) subscribe(client *Client, datasetID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[datasetID] == nil {
		h.rooms[datasetID] = make(map[*Client]bool)
	}
	h.rooms[datasetID][client] = true
	client.AddSubscription(datasetID)

	h.logger.Debug("client subscribed to dataset",
		"user_id", client.UserID,
		"dataset_id", datasetID,
	)
}

func (h *Hub) unsubscribe(client *Client, datasetID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveRoom(client, datasetID)
	client.RemoveSubscription(datasetID)

	h.logger.Debug("client unsubscribed from dataset",
		"user_id", client.UserID,
		"dataset_id", datasetID,
	)
}

// leaveRoom requires h.mu to be held.
func (h *Hub) leaveRoom(client *Client, datasetID string) {
	if room, ok := h.rooms[datasetID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, datasetID)
		}
	}
}

func (h *Hub) closeRoom(datasetID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.rooms[datasetID] {
		client.RemoveSubscription(datasetID)
	}
	delete(h.rooms, datasetID)
}

// GetClientCount returns the total number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, userClients := range h.clients {
		count += len(userClients)
	}
	return count
}

// GetRoomCount returns the number of active rooms
func (h *Hub) GetRoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// GetClientsInRoom returns the number of clients watching a dataset
func (h *Hub) GetClientsInRoom(datasetID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[datasetID])
}
