package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// CalendarEvent is pushed to every socket watching an expert's calendar when
// that calendar changes. Payload carries the affected row as it would appear
// in the corresponding REST response.
type CalendarEvent struct {
	Type          string      `json:"type"` // slots_created, slot_deleted, slot_booked, appointment_updated
	ExpertID      uint        `json:"expert_id"`
	AppointmentID uint        `json:"appointment_id,omitempty"`
	Status        string      `json:"status,omitempty"`
	Payload       interface{} `json:"payload,omitempty"`
}

type client struct {
	expertID uint
	conn     *websocket.Conn
	send     chan []byte
}

// Hub fans calendar events out to connected watchers, keyed by expert ID.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint][]*client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[uint][]*client),
	}
}

func (h *Hub) register(expertID uint, conn *websocket.Conn) *client {
	c := &client{
		expertID: expertID,
		conn:     conn,
		send:     make(chan []byte, 16),
	}

	h.mu.Lock()
	h.clients[expertID] = append(h.clients[expertID], c)
	h.mu.Unlock()

	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	watchers := h.clients[c.expertID]
	// The send channel stays open; the write pump exits on its own once the
	// connection is closed.
	for i, watcher := range watchers {
		if watcher == c {
			h.clients[c.expertID] = append(watchers[:i], watchers[i+1:]...)
			break
		}
	}
	if len(h.clients[c.expertID]) == 0 {
		delete(h.clients, c.expertID)
	}
}

// Broadcast sends an event to everyone watching the expert's calendar.
// Slow consumers are skipped rather than blocking the mutation path.
func (h *Hub) Broadcast(event CalendarEvent) {
	msg, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error encoding calendar event: %v", err)
		return
	}

	h.mu.RLock()
	watchers := h.clients[event.ExpertID]
	h.mu.RUnlock()

	for _, c := range watchers {
		select {
		case c.send <- msg:
		default:
		}
	}
}
