// Package realtime delivers order events to connected browser sessions.
//
// A Hub lives for the whole process. Clients register when their event
// stream opens, join rooms, and receive every event emitted to any of those
// rooms exactly once per emit.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrUnknownClient is returned by Join for a client id that is not registered.
var ErrUnknownClient = errors.New("realtime: unknown client")

type Event struct {
	Name string
	Data []byte
}

type Client struct {
	ID     string
	UserID string
	Events chan Event
}

// NewClient returns a client with a buffered event channel.
func NewClient(id, userID string) *Client {
	return &Client{ID: id, UserID: userID, Events: make(chan Event, 64)}
}

// Emitter publishes one event to a set of rooms.
type Emitter interface {
	Emit(ctx context.Context, rooms []string, event string, payload interface{}) error
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]*Client
	joined  map[string][]string
	log     *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
		joined:  make(map[string][]string),
		log:     log,
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	h.log.Debug("realtime client registered", zap.String("client_id", client.ID), zap.Int("total", len(h.clients)))
}

// Unregister removes the client from every room and closes its channel.
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client, ok := h.clients[clientID]
	if !ok {
		return
	}
	h.leaveAll(clientID)
	delete(h.clients, clientID)
	close(client.Events)
	h.log.Debug("realtime client unregistered", zap.String("client_id", clientID), zap.Int("total", len(h.clients)))
}

// Join replaces the client's room memberships with rooms.
func (h *Hub) Join(clientID string, rooms []string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	client, ok := h.clients[clientID]
	if !ok {
		return ErrUnknownClient
	}
	h.leaveAll(clientID)
	for _, room := range rooms {
		members, ok := h.rooms[room]
		if !ok {
			members = make(map[string]*Client)
			h.rooms[room] = members
		}
		members[clientID] = client
	}
	h.joined[clientID] = append([]string(nil), rooms...)
	return nil
}

// caller holds h.mu
func (h *Hub) leaveAll(clientID string) {
	for _, room := range h.joined[clientID] {
		members := h.rooms[room]
		delete(members, clientID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(h.joined, clientID)
}

// Rooms returns the rooms a client has joined.
func (h *Hub) Rooms(clientID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.joined[clientID]...)
}

// EmitToRooms delivers the event once to every client in at least one of the
// rooms and returns how many clients received it. Clients whose buffer is
// full miss the event.
func (h *Hub) EmitToRooms(rooms []string, event Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	targets := make(map[string]*Client)
	for _, room := range rooms {
		for id, c := range h.rooms[room] {
			targets[id] = c
		}
	}

	delivered := 0
	for _, c := range targets {
		select {
		case c.Events <- event:
			delivered++
		default:
			h.log.Warn("realtime client buffer full, dropping event",
				zap.String("client_id", c.ID), zap.String("event", event.Name))
		}
	}
	return delivered
}

// Emit makes the hub usable as an Emitter when there is a single instance.
func (h *Hub) Emit(_ context.Context, rooms []string, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	h.EmitToRooms(rooms, Event{Name: event, Data: data})
	return nil
}
