package api

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/mwelling79/pumpwatch/pkg/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is served from a different origin than the API.
	CheckOrigin: func(*http.Request) bool { return true },
}

// feedClient serializes writes to one connection. gorilla/websocket
// allows at most one concurrent writer per connection, and broadcasts
// arrive from concurrent API requests.
type feedClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *feedClient) send(records []models.AnomalyRecord) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return c.conn.WriteJSON(records)
}

// FeedHub pushes each freshly computed anomaly feed to connected
// dashboard clients.
type FeedHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]*feedClient
}

func NewFeedHub() *FeedHub {
	return &FeedHub{clients: make(map[*websocket.Conn]*feedClient)}
}

// Register upgrades the request and tracks the connection until its
// reader loop sees it close.
func (h *FeedHub) Register(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = &feedClient{conn: conn}
	h.mu.Unlock()

	go h.drain(conn)
}

// drain discards client messages and removes the connection on error.
func (h *FeedHub) drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.remove(conn)
			return
		}
	}
}

func (h *FeedHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()

	_ = conn.Close()
}

// Broadcast sends the feed to every connected client, dropping any whose
// write fails. Safe for concurrent callers: writes to each client are
// serialized by its own mutex.
func (h *FeedHub) Broadcast(records []models.AnomalyRecord) {
	h.mu.Lock()
	clients := make([]*feedClient, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		if err := client.send(records); err != nil {
			log.Printf("websocket write failed, dropping client: %v", err)
			h.remove(client.conn)
		}
	}
}

// ClientCount reports the number of connected clients.
func (h *FeedHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}
