package ws

import (
	"log"
	"sync"

	"tradeup_backend/internal/services"
)

// Manager is the connection registry. A user may hold several open
// channels at once (multiple tabs or devices), so clients are kept as
// a set per user id. It implements services.DeliveryRouter.
type Manager struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run processes register/unregister events. Call it once, in its own
// goroutine.
func (m *Manager) Run() {
	for {
		select {
		case client := <-m.register:
			m.addClient(client)
		case client := <-m.unregister:
			m.removeClient(client)
		}
	}
}

func (m *Manager) addClient(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.clients[client.UserID]
	if !ok {
		set = make(map[*Client]bool)
		m.clients[client.UserID] = set
	}
	set[client] = true
	log.Printf("ws client registered: user=%s connections=%d", client.UserID, len(set))
}

func (m *Manager) removeClient(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.clients[client.UserID]
	if !ok || !set[client] {
		return
	}
	close(client.Send)
	delete(set, client)
	if len(set) == 0 {
		delete(m.clients, client.UserID)
	}
	log.Printf("ws client unregistered: user=%s connections=%d", client.UserID, len(set))
}

// SendToUser delivers an event to every open channel of one user.
// No open channels is a silent no-op; durability lives in the store,
// not here.
func (m *Manager) SendToUser(userID string, event services.Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for client := range m.clients[userID] {
		select {
		case client.Send <- event:
		default:
			// Send buffer full: the client is too slow, drop it.
			go func(c *Client) {
				m.unregister <- c
			}(client)
		}
	}
}

// Broadcast fans SendToUser out over the given user ids. There is no
// cross-recipient ordering guarantee.
func (m *Manager) Broadcast(userIDs []string, event services.Event) {
	for _, userID := range userIDs {
		m.SendToUser(userID, event)
	}
}

// ConnectionCount reports the number of open channels for a user.
func (m *Manager) ConnectionCount(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients[userID])
}

// IsConnected reports whether a user has at least one open channel.
func (m *Manager) IsConnected(userID string) bool {
	return m.ConnectionCount(userID) > 0
}
