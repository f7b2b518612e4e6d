package ws

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// AllPlaces is the room of clients that follow every order.
const AllPlaces = ""

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// placeEvent routes an event to the room of one consumption place
type placeEvent struct {
	Place string
	Event Event
}

// Hub maintains the set of staff screens and fans order events out to them.
// Clients join one room: AllPlaces, or a single consumption place.
type Hub struct {
	// Registered clients by place filter
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan *placeEvent

	// Closed when Run returns
	done chan struct{}

	log *zap.Logger
	mu  sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *placeEvent, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run starts the hub's main loop and returns when ctx is done.
// This should be called as a goroutine: go hub.Run(ctx)
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.place] == nil {
				h.rooms[client.place] = make(map[*Client]bool)
			}
			h.rooms[client.place][client] = true
			h.mu.Unlock()
			h.log.Debug("ws client registered", zap.String("client_id", client.id.String()), zap.String("place", client.place))

		case client := <-h.unregister:
			h.mu.Lock()
			h.drop(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			// Marshal event to JSON once
			message, err := json.Marshal(event.Event)
			if err != nil {
				h.log.Error("marshal ws event", zap.String("type", event.Event.Type), zap.Error(err))
				continue
			}

			h.mu.Lock()
			targets := []string{AllPlaces}
			if event.Place != AllPlaces {
				targets = append(targets, event.Place)
			}
			for _, place := range targets {
				for client := range h.rooms[place] {
					select {
					case client.send <- message:
					default:
						// Slow consumer, drop it
						h.log.Warn("ws client send buffer full, dropping", zap.String("client_id", client.id.String()))
						h.drop(client)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop removes client from its room and closes its send channel.
// Caller holds h.mu.
func (h *Hub) drop(client *Client) {
	clients, ok := h.rooms[client.place]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.place)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for place, clients := range h.rooms {
		for client := range clients {
			close(client.send)
		}
		delete(h.rooms, place)
	}
}

// Broadcast sends an event to the clients following place and to the clients
// following every order. It is a no-op once the hub has stopped.
func (h *Hub) Broadcast(place string, event Event) {
	select {
	case h.broadcast <- &placeEvent{Place: place, Event: event}:
	case <-h.done:
	}
}

// Publish marshals payload into an Event of the given type and broadcasts it.
func (h *Hub) Publish(place, eventType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	h.Broadcast(place, Event{Type: eventType, Payload: raw})
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.rooms {
		n += len(clients)
	}
	return n
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}
