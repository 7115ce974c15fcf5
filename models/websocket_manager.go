package models

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second

	// sendBuffer is how many messages may wait for a client before it is considered
	// too slow and dropped.
	sendBuffer = 64
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// WebSocketManager owns every write to the connected clients. Each client has its own
// queue drained by one writer goroutine, so Send never waits on the network and
// messages reach a client in the order they were sent.
type WebSocketManager struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]*client
	closed  bool
}

// NewWebSocketManager creates a new WebSocket manager
func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients: make(map[*websocket.Conn]*client),
	}
}

// Start begins the WebSocket manager. When ctx is cancelled every client is flushed and
// closed, and later registrations are refused.
func (wsm *WebSocketManager) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		wsm.mu.Lock()
		defer wsm.mu.Unlock()
		wsm.closed = true
		for conn, c := range wsm.clients {
			close(c.send)
			delete(wsm.clients, conn)
		}
	}()
}

// Send marshals msg and queues it for conn. Messages for unknown clients are dropped;
// a client whose queue is full is disconnected.
func (wsm *WebSocketManager) Send(conn *websocket.Conn, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal websocket message: %v", err)
		return
	}

	wsm.mu.Lock()
	defer wsm.mu.Unlock()
	c, ok := wsm.clients[conn]
	if !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		log.Printf("WebSocket client too slow, disconnecting")
		wsm.removeLocked(conn)
		conn.Close()
	}
}

// Clients returns the number of connected clients.
func (wsm *WebSocketManager) Clients() int {
	wsm.mu.Lock()
	defer wsm.mu.Unlock()
	return len(wsm.clients)
}

// RegisterClient registers a new WebSocket client
func (wsm *WebSocketManager) RegisterClient(conn *websocket.Conn) {
	wsm.mu.Lock()
	if wsm.closed {
		wsm.mu.Unlock()
		conn.Close()
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	wsm.clients[conn] = c
	n := len(wsm.clients)
	wsm.mu.Unlock()

	log.Printf("New WebSocket client connected. Total clients: %d", n)
	go wsm.writePump(c)
}

// UnregisterClient unregisters a WebSocket client. Messages already queued are still
// written before the connection is closed.
func (wsm *WebSocketManager) UnregisterClient(conn *websocket.Conn) {
	wsm.mu.Lock()
	ok := wsm.removeLocked(conn)
	n := len(wsm.clients)
	wsm.mu.Unlock()
	if ok {
		log.Printf("WebSocket client disconnected. Remaining clients: %d", n)
	}
}

func (wsm *WebSocketManager) removeLocked(conn *websocket.Conn) bool {
	c, ok := wsm.clients[conn]
	if !ok {
		return false
	}
	delete(wsm.clients, conn)
	close(c.send)
	return true
}

func (wsm *WebSocketManager) writePump(c *client) {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("Error sending message to client: %v", err)
			wsm.mu.Lock()
			wsm.removeLocked(c.conn)
			wsm.mu.Unlock()
			for range c.send {
			}
			return
		}
	}
}
