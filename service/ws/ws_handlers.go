package ws

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/Arnack/wisely-2/cmd/utils"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // You might want to implement proper origin checking
	},
}

type CalendarFeedHandler struct {
	hub *Hub
}

func NewCalendarFeedHandler(hub *Hub) *CalendarFeedHandler {
	return &CalendarFeedHandler{hub: hub}
}

func (h *CalendarFeedHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws/calendar/{expertId}", utils.AuthMiddleware(h.HandleCalendarFeed))
}

// HandleCalendarFeed upgrades the connection and streams calendar events for
// one expert until the client goes away.
func (h *CalendarFeedHandler) HandleCalendarFeed(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	expertID, err := strconv.ParseUint(vars["expertId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid expert ID", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Error upgrading calendar feed connection: %v", err)
		return
	}

	c := h.hub.register(uint(expertID), conn)
	go h.writePump(c)
	h.readPump(c)
}

func (h *CalendarFeedHandler) writePump(c *client) {
	ticker := time.NewTicker(45 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards incoming frames; the feed is one-way. Reading is still
// required to notice closes and answer pings.
func (h *CalendarFeedHandler) readPump(c *client) {
	defer func() {
		h.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
