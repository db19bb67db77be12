package websockets

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	AUTH_REQUEST           = "auth_request"
	AUTH_RESPONSE          = "auth_response"
	AUTH_SUCCESS           = "auth_success"
	AUTH_FAILURE           = "auth_failure"
	AUTH_HANDSHAKE_TIMEOUT = 10 * time.Second
	SYSTEM_CHANNEL         = "system"
)

// startAuthTimeout closes the connection when no valid token arrives in time.
func (c *Client) startAuthTimeout() {
	log := c.Manager.log.Function("startAuthTimeout")

	go func() {
		time.Sleep(AUTH_HANDSHAKE_TIMEOUT)
		if c.Manager.statusOf(c) != STATUS_UNAUTHENTICATED {
			return
		}

		log.Warn("Client failed to authenticate within timeout, disconnecting",
			"clientID", c.ID,
			"timeout", AUTH_HANDSHAKE_TIMEOUT)
		c.sendAuthFailure("Authentication timeout")
	}()
}

func (c *Client) handleAuthResponse(message Message) {
	log := c.Manager.log.Function("handleAuthResponse")

	if c.Manager.statusOf(c) != STATUS_UNAUTHENTICATED {
		log.Warn("Auth response from already authenticated client", "clientID", c.ID)
		return
	}

	token, ok := message.Data["token"].(string)
	if !ok || token == "" {
		log.Warn("Invalid token in auth response", "clientID", c.ID)
		c.sendAuthFailure("Invalid token format")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), AUTH_HANDSHAKE_TIMEOUT)
	defer cancel()

	user, err := c.Manager.authenticator.Authenticate(ctx, token)
	if err != nil {
		log.Info("WebSocket token validation failed", "clientID", c.ID, "error", err.Error())
		c.sendAuthFailure("Authentication failed")
		return
	}

	c.Manager.promoteClientToAuthenticated(c, user.ID)

	c.queue(Message{
		ID:        uuid.New().String(),
		Type:      AUTH_SUCCESS,
		Channel:   SYSTEM_CHANNEL,
		Action:    "authenticated",
		UserID:    user.ID.String(),
		Data:      map[string]any{"userId": user.ID.String()},
		Timestamp: time.Now(),
	})
}

func (c *Client) sendAuthFailure(reason string) {
	log := c.Manager.log.Function("sendAuthFailure")

	c.queue(Message{
		ID:        uuid.New().String(),
		Type:      AUTH_FAILURE,
		Channel:   SYSTEM_CHANNEL,
		Action:    "authentication_failed",
		Data:      map[string]any{"reason": reason},
		Timestamp: time.Now(),
	})

	log.Info("Auth failure sent, closing connection", "clientID", c.ID, "reason", reason)

	go func() {
		time.Sleep(100 * time.Millisecond)
		if c.Connection != nil {
			_ = c.Connection.Close()
		}
	}()
}

func (c *Client) sendAuthRequest() error {
	log := c.Manager.log.Function("sendAuthRequest")

	authRequest := Message{
		ID:        uuid.New().String(),
		Type:      AUTH_REQUEST,
		Channel:   SYSTEM_CHANNEL,
		Action:    "authenticate",
		Timestamp: time.Now(),
	}

	if err := c.Connection.WriteJSON(authRequest); err != nil {
		return log.Err("failed to send auth request", err, "clientID", c.ID)
	}
	return nil
}

func (c *Client) handleUnauthenticatedMessage(message Message) {
	c.Manager.log.Function("handleUnauthenticatedMessage").Warn(
		"Blocking message from unauthenticated client",
		"clientID", c.ID,
		"messageType", message.Type,
	)

	c.queue(Message{
		ID:        uuid.New().String(),
		Type:      AUTH_FAILURE,
		Channel:   SYSTEM_CHANNEL,
		Action:    "authentication_required",
		Data:      map[string]any{"reason": "Authentication required"},
		Timestamp: time.Now(),
	})
}
