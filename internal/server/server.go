package server

import (
	"context"
	"fmt"
	"time"

	"cleanbook/internal/app"
	"cleanbook/internal/handlers"
	"cleanbook/internal/handlers/middleware"

	logger "github.com/Bparsons0904/goLogger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberLogs "github.com/gofiber/fiber/v2/middleware/logger"
	fiberRecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/helmet/v2"
)

const (
	bodyLimit       = 1 * 1024 * 1024
	healthPath      = "/api/health"
	shutdownTimeout = 10 * time.Second
)

type AppServer struct {
	FiberApp *fiber.App
	log      logger.Logger
}

func New(app *app.App) (*AppServer, error) {
	log := logger.New("server").Function("New")

	config := fiber.Config{
		ServerHeader:             "cleanbook/" + app.Config.GeneralVersion,
		AppName:                  "cleanbook_api",
		BodyLimit:                bodyLimit,
		EnableSplittingOnParsers: true,
		EnableTrustedProxyCheck:  true,
		ReadTimeout:              15 * time.Second,
		WriteTimeout:             15 * time.Second,
		IdleTimeout:              60 * time.Second,
		DisableStartupMessage:    app.Config.Environment != "development",
		EnablePrintRoutes:        app.Config.Environment == "development",
		ErrorHandler:             middleware.ErrorHandler,
	}

	server := fiber.New(config)

	// recover sits outermost so a panicking handler still gets a trace id and
	// the standard error body
	server.Use(fiberRecover.New(fiberRecover.Config{
		EnableStackTrace: app.Config.Environment == "development",
	}))
	server.Use(app.Middleware.TraceID())
	server.Use(fiberLogs.New(fiberLogs.Config{
		Format: "${time} ${status} ${method} ${path} ${latency} trace=${respHeader:X-Trace-ID}\n",
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == healthPath
		},
	}))
	server.Use(cors.New(cors.Config{
		AllowOrigins:     app.Config.CorsAllowOrigins,
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, X-Trace-ID",
		AllowCredentials: true,
		ExposeHeaders:    "X-Trace-ID",
		MaxAge:           300,
	}))
	server.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))
	server.Use(helmet.New(securityHeaders()))

	if err := handlers.Router(server, app); err != nil {
		return nil, log.Err("failed to register routes", err)
	}

	log.Info("server initialized", "environment", app.Config.Environment)
	return &AppServer{FiberApp: server, log: log}, nil
}

// the API only serves JSON, so the document-oriented CSP is left to the
// frontend host
func securityHeaders() helmet.Config {
	return helmet.Config{
		XSSProtection:             "0",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		ReferrerPolicy:            "no-referrer",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "same-site",
		OriginAgentCluster:        "?1",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
		HSTSMaxAge:                31536000,
	}
}

func (s *AppServer) Listen(port int) error {
	log := s.log.Function("Listen")

	if port < 1 || port > 65535 {
		return log.Error("invalid server port", "port", port)
	}

	log.Info("listening", "port", port)
	return s.FiberApp.Listen(fmt.Sprintf(":%d", port))
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires. A ctx without a deadline gets shutdownTimeout.
func (s *AppServer) Shutdown(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
	}

	if err := s.FiberApp.ShutdownWithContext(ctx); err != nil {
		return s.log.Function("Shutdown").Err("server forced to shutdown", err)
	}
	return nil
}
