package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"chatlink/auth"
	"chatlink/chat"
)

// Manager tracks connected clients by user id. A user may hold several
// connections (multiple tabs); events addressed to a user fan out to
// all of them.
type Manager struct {
	chat   *chat.Service
	secret string

	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewManager(svc *chat.Service, jwtSecret string) *Manager {
	return &Manager{
		chat:       svc,
		secret:     jwtSecret,
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (m *Manager) Start() {
	for {
		select {
		case client := <-m.register:
			m.mu.Lock()
			if m.clients[client.userID] == nil {
				m.clients[client.userID] = make(map[*Client]bool)
			}
			m.clients[client.userID][client] = true
			total := len(m.clients)
			m.mu.Unlock()
			log.Printf("WebSocket client registered for %s. Users online: %d", client.userID, total)

		case client := <-m.unregister:
			m.mu.Lock()
			if conns, ok := m.clients[client.userID]; ok {
				if _, ok := conns[client]; ok {
					delete(conns, client)
					close(client.send)
					if len(conns) == 0 {
						delete(m.clients, client.userID)
					}
				}
			}
			total := len(m.clients)
			m.mu.Unlock()
			log.Printf("WebSocket client unregistered for %s. Users online: %d", client.userID, total)
		}
	}
}

// SendToUser delivers an envelope to every connection a user holds.
// Slow connections get dropped rather than stalling the sender.
func (m *Manager) SendToUser(userID string, eventType string, payload any) {
	data, err := json.Marshal(map[string]any{
		"type":    eventType,
		"payload": payload,
	})
	if err != nil {
		log.Printf("error marshaling WebSocket message: %v", err)
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for client := range m.clients[userID] {
		select {
		case client.send <- data:
		default:
			go func(c *Client) { m.unregister <- c }(client)
		}
	}
}

func (m *Manager) GetConnectedUsers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Handler upgrades the connection after validating the session token
// passed as ?token=.
func Handler(manager *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "Token required", http.StatusUnauthorized)
			return
		}

		claims, err := auth.ParseToken(token, manager.secret)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed: %v", err)
			return
		}

		client := newClient(manager, conn, claims.UserID)
		manager.register <- client
		client.start()
	}
}
