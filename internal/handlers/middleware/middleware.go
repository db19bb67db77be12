package middleware

import (
	"context"

	"cleanbook/config"
	"cleanbook/internal/database"
	"cleanbook/internal/models"

	logger "github.com/Bparsons0904/goLogger"
)

// Authenticator turns a bearer token into the local user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

type Middleware struct {
	DB     database.DB
	Config config.Config
	auth   Authenticator
	log    logger.Logger
}

func New(
	db database.DB,
	config config.Config,
	auth Authenticator,
) Middleware {
	return Middleware{
		DB:     db,
		Config: config,
		auth:   auth,
		log:    logger.New("middleware"),
	}
}
