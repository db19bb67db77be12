package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"cleanbook/internal/app"
	"cleanbook/internal/server"

	logger "github.com/Bparsons0904/goLogger"
)

func main() {
	log := logger.New("main")

	if err := run(log); err != nil {
		log.Er("cleanbook api stopped", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// run owns the app lifetime: the server runs until it fails or a SIGINT or
// SIGTERM arrives, and the app is closed after the server has drained.
func run(log logger.Logger) error {
	application, err := app.New()
	if err != nil {
		return log.Err("failed to start app", err)
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.Er("failed to close app", err)
		}
	}()

	appServer, err := server.New(application)
	if err != nil {
		return log.Err("failed to create server", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- appServer.Listen(application.Config.ServerPort)
	}()

	select {
	case err := <-listenErr:
		return err
	case <-ctx.Done():
		stop()
		log.Info("signal received, draining requests")
	}

	return appServer.Shutdown(context.Background())
}
