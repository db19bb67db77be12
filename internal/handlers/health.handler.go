package handlers

import (
	"context"
	"time"

	"cleanbook/config"
	"cleanbook/internal/database"

	"github.com/gofiber/fiber/v2"
)

const healthPingTimeout = 2 * time.Second

// HealthHandler reports 503 when the primary database does not answer a ping,
// so load balancers stop routing to an instance that cannot serve bookings.
func HealthHandler(router fiber.Router, db database.DB, config config.Config) {
	router.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthPingTimeout)
		defer cancel()

		status, code, dbStatus := "ok", fiber.StatusOK, "ok"
		if err := pingDatabase(ctx, db); err != nil {
			status, code, dbStatus = "degraded", fiber.StatusServiceUnavailable, "unreachable"
		}

		return c.Status(code).JSON(fiber.Map{
			"status":   status,
			"version":  config.GeneralVersion,
			"service":  "cleanbook_api",
			"database": dbStatus,
		})
	})
}

func pingDatabase(ctx context.Context, db database.DB) error {
	if db.SQL == nil {
		return fiber.ErrServiceUnavailable
	}
	sqlDB, err := db.SQL.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
