package websockets

import (
	"context"
	"time"

	"cleanbook/config"
	"cleanbook/internal/events"
	"cleanbook/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	MESSAGE_TYPE_PING        = "ping"
	MESSAGE_TYPE_PONG        = "pong"
	MESSAGE_TYPE_JOB_UPDATED = "job_updated"
	MESSAGE_TYPE_ERROR       = "error"
	PING_INTERVAL            = 30 * time.Second
	PONG_TIMEOUT             = 60 * time.Second
	WRITE_TIMEOUT            = 10 * time.Second
	MAX_MESSAGE_SIZE         = 64 * 1024
	SEND_CHANNEL_SIZE        = 64
)

type Message struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Channel   string         `json:"channel,omitempty"`
	Action    string         `json:"action,omitempty"`
	UserID    string         `json:"userId,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type Client struct {
	ID         string
	UserID     uuid.UUID
	Connection *websocket.Conn
	Manager    *Manager
	Status     int
	send       chan Message
}

// Authenticator resolves a session token sent over the socket to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

type Subscriber interface {
	Subscribe(channel events.Channel, handler events.EventHandler) error
}

type Manager struct {
	hub           *Hub
	config        config.Config
	log           logger.Logger
	authenticator Authenticator
}

func New(
	subscriber Subscriber,
	config config.Config,
	authenticator Authenticator,
) (*Manager, error) {
	log := logger.New("websockets")

	manager := &Manager{
		hub: &Hub{
			register:   make(chan *Client),
			unregister: make(chan *Client),
			clients:    make(map[string]*Client),
		},
		config:        config,
		log:           log,
		authenticator: authenticator,
	}

	log.Function("New").Info("Starting websocket hub")
	go manager.hub.run(manager)

	if err := subscriber.Subscribe(events.JOBS_CHANNEL, manager.deliverJobEvent); err != nil {
		return nil, log.Function("New").Err("failed to subscribe to job events", err)
	}

	return manager, nil
}

func (m *Manager) HandleWebSocket(c *websocket.Conn) {
	log := m.log.Function("HandleWebSocket")

	client := &Client{
		ID:         uuid.New().String(),
		UserID:     uuid.Nil,
		Connection: c,
		Manager:    m,
		Status:     STATUS_UNAUTHENTICATED,
		send:       make(chan Message, SEND_CHANNEL_SIZE),
	}

	if err := client.sendAuthRequest(); err != nil {
		if err := c.Close(); err != nil {
			log.Er("failed to close connection", err)
		}
		return
	}

	m.hub.register <- client
	client.startAuthTimeout()
	defer func() {
		log.Info("Client disconnected", "clientID", client.ID)
		m.hub.unregister <- client
		_ = c.Close()
	}()

	go client.readPump()
	client.writePump()
}

// deliverJobEvent forwards a job event to every open connection of its
// recipients. Events without recipients are dropped.
func (m *Manager) deliverJobEvent(event events.Event) error {
	log := m.log.Function("deliverJobEvent")

	if len(event.Recipients) == 0 {
		log.Debug("job event without recipients", "eventID", event.ID)
		return nil
	}

	action, _ := event.Data["action"].(events.JobAction)
	if action == "" {
		if raw, ok := event.Data["action"].(string); ok {
			action = events.JobAction(raw)
		}
	}

	message := Message{
		ID:        event.ID,
		Type:      MESSAGE_TYPE_JOB_UPDATED,
		Channel:   events.JOBS_CHANNEL.String(),
		Action:    string(action),
		Data:      event.Data,
		Timestamp: event.Timestamp,
	}
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}

	for _, userID := range event.Recipients {
		m.SendMessageToUser(userID, message)
	}
	return nil
}

func (c *Client) readPump() {
	log := c.Manager.log.Function("readPump")
	defer func() {
		c.Manager.hub.unregister <- c
		_ = c.Connection.Close()
	}()

	c.Connection.SetReadLimit(MAX_MESSAGE_SIZE)
	if err := c.Connection.SetReadDeadline(time.Now().Add(PONG_TIMEOUT)); err != nil {
		log.Er("failed to set read deadline", err, "clientID", c.ID)
	}
	c.Connection.SetPongHandler(func(string) error {
		return c.Connection.SetReadDeadline(time.Now().Add(PONG_TIMEOUT))
	})

	for {
		var message Message
		if err := c.Connection.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
			) {
				log.Er("Unexpected close error", err, "clientID", c.ID)
			}
			break
		}

		message.Timestamp = time.Now()
		c.routeMessage(message)
	}
}

func (c *Client) routeMessage(message Message) {
	log := c.Manager.log.Function("routeMessage")

	if message.Type == AUTH_RESPONSE {
		c.handleAuthResponse(message)
		return
	}

	if c.Status != STATUS_AUTHENTICATED {
		c.handleUnauthenticatedMessage(message)
		return
	}

	switch message.Type {
	case MESSAGE_TYPE_PING:
		c.queue(Message{
			ID:        uuid.New().String(),
			Type:      MESSAGE_TYPE_PONG,
			Timestamp: time.Now(),
		})
	default:
		log.Warn("Unknown message type", "clientID", c.ID, "type", message.Type)
	}
}

// queue hands a message to the write pump without blocking the reader.
// Messages for clients that already left are dropped.
func (c *Client) queue(message Message) {
	c.Manager.hub.mutex.RLock()
	defer c.Manager.hub.mutex.RUnlock()

	if _, ok := c.Manager.hub.clients[c.ID]; !ok {
		return
	}

	select {
	case c.send <- message:
	default:
		c.Manager.log.Function("queue").Warn("Client send channel full, dropping message", "clientID", c.ID)
	}
}

func (c *Client) writePump() {
	log := c.Manager.log.Function("writePump")

	ticker := time.NewTicker(PING_INTERVAL)
	defer func() {
		ticker.Stop()
		_ = c.Connection.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.Connection.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT)); err != nil {
				log.Er("failed to set write deadline", err, "clientID", c.ID)
			}
			if !ok {
				_ = c.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Connection.WriteJSON(message); err != nil {
				log.Er("WebSocket write error", err, "clientID", c.ID)
				return
			}

		case <-ticker.C:
			if err := c.Connection.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT)); err != nil {
				log.Er("failed to set write deadline for ping", err, "clientID", c.ID)
			}
			if err := c.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
