package middleware

import (
	"context"
	"strings"

	"cleanbook/internal/models"
	"cleanbook/internal/types"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/gofiber/fiber/v2"
)

// AuthContextKey is used to store auth info in context
type AuthContextKey string

const (
	UserKey      AuthContextKey = "user"
	UserKeyFiber string         = "User"
)

// RequireAuth validates the Clerk session token and loads the local user,
// creating it on the first request.
func (m *Middleware) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		log := logger.New("middleware").TraceFromContext(c.UserContext()).Function("RequireAuth")

		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return types.Unauthorized("Authorization header required")
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" || tokenParts[1] == "" {
			return types.Unauthorized("Invalid authorization header format")
		}

		user, err := m.auth.Authenticate(c.UserContext(), tokenParts[1])
		if err != nil {
			log.Info("authentication failed", "error", err.Error())
			if appErr, ok := types.AsAppError(err); ok && appErr.Category == types.CategoryUnauthorized {
				return appErr
			}
			return types.Unauthorized("Invalid token")
		}

		c.Locals(UserKeyFiber, user)

		// preserve the trace id set by the TraceID middleware
		ctx := context.WithValue(c.UserContext(), UserKey, user)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// GetUser extracts user from Fiber context
func GetUser(c *fiber.Ctx) *models.User {
	user, ok := c.Locals(UserKeyFiber).(*models.User)
	if !ok {
		return nil
	}
	return user
}
