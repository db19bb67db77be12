package websockets

import (
	"sync"

	"github.com/google/uuid"
)

const (
	STATUS_UNAUTHENTICATED = iota
	STATUS_AUTHENTICATED
)

type Hub struct {
	register   chan *Client
	unregister chan *Client
	clients    map[string]*Client
	mutex      sync.RWMutex
}

func (h *Hub) run(m *Manager) {
	for {
		select {
		case client := <-h.register:
			m.registerClient(client)

		case client := <-h.unregister:
			m.unregisterClient(client)
		}
	}
}

func (m *Manager) registerClient(client *Client) {
	m.hub.mutex.Lock()
	defer m.hub.mutex.Unlock()

	m.hub.clients[client.ID] = client
	m.log.Function("registerClient").Debug("Client registered", "clientID", client.ID)
}

// unregisterClient is called from both pumps, so the send channel is only
// closed for the first call.
func (m *Manager) unregisterClient(client *Client) {
	m.hub.mutex.Lock()
	defer m.hub.mutex.Unlock()

	if _, ok := m.hub.clients[client.ID]; !ok {
		return
	}
	delete(m.hub.clients, client.ID)
	close(client.send)

	m.log.Function("unregisterClient").Info(
		"Client unregistered",
		"clientID", client.ID,
		"userID", client.UserID,
	)
}

func (m *Manager) promoteClientToAuthenticated(client *Client, userID uuid.UUID) {
	m.hub.mutex.Lock()
	client.UserID = userID
	client.Status = STATUS_AUTHENTICATED
	m.hub.mutex.Unlock()

	m.log.Function("promoteClientToAuthenticated").Info(
		"Client promoted to authenticated",
		"clientID", client.ID,
		"userID", userID,
	)
}

func (m *Manager) statusOf(client *Client) int {
	m.hub.mutex.RLock()
	defer m.hub.mutex.RUnlock()
	return client.Status
}

func (m *Manager) SendMessageToUser(userID uuid.UUID, message Message) {
	log := m.log.Function("SendMessageToUser")

	m.hub.mutex.RLock()
	defer m.hub.mutex.RUnlock()

	sentCount := 0
	totalUserConnections := 0

	for clientID, client := range m.hub.clients {
		if client.Status != STATUS_AUTHENTICATED || client.UserID != userID {
			continue
		}

		totalUserConnections++
		select {
		case client.send <- message:
			sentCount++
		default:
			log.Warn("Client send channel full, dropping message", "clientID", clientID, "userID", userID)
		}
	}

	if totalUserConnections == 0 {
		log.Debug("No connections found for user", "userID", userID)
		return
	}

	log.Info(
		"Message sent to user connections",
		"userID", userID,
		"messageID", message.ID,
		"sentTo", sentCount,
		"totalConnections", totalUserConnections,
	)
}
