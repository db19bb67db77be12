package middleware

import (
	"cleanbook/internal/types"

	"github.com/gofiber/fiber/v2"
)

// RequireAdmin must run after RequireAuth. Every admin request that changes
// state is written to the log with the acting admin, so payout releases and
// cleaner approvals can be traced back to a person.
func (m *Middleware) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		log := m.log.TraceFromContext(c.UserContext()).Function("RequireAdmin")

		user := GetUser(c)
		if user == nil {
			return types.Unauthorized("Authentication required")
		}

		if !user.IsAdmin {
			log.Warn("admin route denied", "userID", user.ID, "method", c.Method(), "path", c.Path())
			return types.Forbidden("Admin access required")
		}

		err := c.Next()
		if c.Method() != fiber.MethodGet {
			log.Info("admin action",
				"adminID", user.ID,
				"method", c.Method(),
				"path", c.Path(),
				"status", c.Response().StatusCode(),
				"failed", err != nil,
			)
		}
		return err
	}
}
