package receiver

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/healthrelay/healthrelay-cli/internal/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// LiveFeed pushes every accepted payload to connected WebSocket clients,
// for watching an agent's output in real time during development.
type LiveFeed struct {
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
}

// NewLiveFeed creates an empty feed.
func NewLiveFeed() *LiveFeed {
	return &LiveFeed{clients: make(map[*websocket.Conn]bool)}
}

// HandleWS upgrades the connection and holds it until the client leaves.
func (f *LiveFeed) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	f.mu.Lock()
	f.clients[conn] = true
	count := len(f.clients)
	f.mu.Unlock()

	log.Printf("Live feed client connected from %s (total: %d)", r.RemoteAddr, count)

	defer func() {
		f.mu.Lock()
		delete(f.clients, conn)
		count := len(f.clients)
		f.mu.Unlock()

		conn.Close()
		log.Printf("Live feed client disconnected (total: %d)", count)
	}()

	// Clients only listen; drain until the connection drops.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Broadcast sends a payload to every connected client. Write failures are
// logged and left to the connection handler to clean up. The exclusive lock
// serializes writes: import handlers run concurrently, and a websocket
// connection tolerates only one writer at a time.
func (f *LiveFeed) Broadcast(payload *models.HealthPayload) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal payload for live feed: %v", err)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for client := range f.clients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("Failed to send to live feed client: %v", err)
		}
	}
}

// ClientCount returns the number of connected clients.
func (f *LiveFeed) ClientCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

// CloseAll drops every client connection.
func (f *LiveFeed) CloseAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for client := range f.clients {
		client.Close()
	}
	f.clients = make(map[*websocket.Conn]bool)
}
