package ws

import (
	"encoding/json"
	"sync"

	"github.com/sujalbistaa/whisperwall/internal/log"
)

// Message is the JSON frame every client receives.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// envelope addresses a marshalled frame to one room, or to everyone when
// Room is empty.
type envelope struct {
	Room    string          `json:"room,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// Hub keeps one room per user id and fans frames out to the connections in
// it. Delivery is best effort: a full buffer drops the frame.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	clients map[*Client]struct{}

	deliver chan envelope
	done    chan struct{}
	once    sync.Once

	relay Relay

	// AllowedOrigin is checked on upgrade; "*" or empty accepts any origin.
	AllowedOrigin string
}

func NewHub() *Hub {
	return &Hub{
		rooms:   make(map[string]map[*Client]struct{}),
		clients: make(map[*Client]struct{}),
		deliver: make(chan envelope, 256),
		done:    make(chan struct{}),
	}
}

// UseRelay routes every emit through r so that hubs on other instances see
// it too. Must be called before Run.
func (h *Hub) UseRelay(r Relay) {
	h.relay = r
}

// Run dispatches frames until Stop is called.
func (h *Hub) Run() {
	if h.relay != nil {
		go func() {
			if err := h.relay.Subscribe(h.done, h.enqueue); err != nil {
				log.Error.Printf("ws relay subscription ended: %v", err)
			}
		}()
	}
	for {
		select {
		case env := <-h.deliver:
			h.dispatch(env)
		case <-h.done:
			h.closeAll()
			return
		}
	}
}

// Stop ends Run and closes every connection.
func (h *Hub) Stop() {
	h.once.Do(func() { close(h.done) })
}

// EmitTo sends an event to every connection of userID.
func (h *Hub) EmitTo(userID, event string, data interface{}) {
	h.emit(userID, event, data)
}

// Broadcast sends an event to every connected client.
func (h *Hub) Broadcast(event string, data interface{}) {
	h.emit("", event, data)
}

func (h *Hub) emit(room, event string, data interface{}) {
	payload, err := json.Marshal(Message{Type: event, Data: data})
	if err != nil {
		log.Error.Printf("Error marshalling WS message: %v", err)
		return
	}
	env := envelope{Room: room, Payload: payload}
	if h.relay != nil {
		err := h.relay.Publish(env)
		if err == nil {
			return
		}
		log.Warn.Printf("ws relay publish failed, delivering locally: %v", err)
	}
	h.enqueue(env)
}

func (h *Hub) enqueue(env envelope) {
	select {
	case h.deliver <- env:
	default:
		log.Warn.Printf("ws delivery queue full, dropping %d bytes for room %q", len(env.Payload), env.Room)
	}
}

// dispatch holds the read lock while sending so that unregister cannot close
// a send channel underneath it. Sends never block.
func (h *Hub) dispatch(env envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	targets := h.clients
	if env.Room != "" {
		targets = h.rooms[env.Room]
	}
	for c := range targets {
		select {
		case c.send <- env.Payload:
		default:
		}
	}
}

// reply queues a frame for one client. It is a no-op once the client has
// been unregistered.
func (h *Hub) reply(c *Client, frame []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	if c.userID == "" {
		return
	}
	room, ok := h.rooms[c.userID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[c.userID] = room
	}
	room[c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	if room, ok := h.rooms[c.userID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, c.userID)
		}
	}
	close(c.send)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		h.unregister(c)
	}
}

// Online reports whether userID has at least one open connection here.
func (h *Hub) Online(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID]) > 0
}
