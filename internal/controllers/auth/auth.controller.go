package authController

import (
	"context"
	"errors"
	"time"

	"cleanbook/internal/database"
	"cleanbook/internal/models"
	"cleanbook/internal/repositories"
	"cleanbook/internal/services"
	"cleanbook/internal/types"

	logger "github.com/Bparsons0904/goLogger"
)

// loginRefreshInterval limits how often profile claims are written back.
const loginRefreshInterval = time.Hour

// AuthController resolves session tokens to local users
type AuthController struct {
	verifier services.TokenVerifier
	userRepo repositories.UserRepository
	db       database.DB
	log      logger.Logger
}

type AuthControllerInterface interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

func New(
	verifier services.TokenVerifier,
	userRepo repositories.UserRepository,
	db database.DB,
) AuthControllerInterface {
	return &AuthController{
		verifier: verifier,
		userRepo: userRepo,
		db:       db,
		log:      logger.New("authController"),
	}
}

// Authenticate verifies the token and returns the user for its subject. The
// user row is created on the first authenticated request.
func (c *AuthController) Authenticate(ctx context.Context, token string) (*models.User, error) {
	log := c.log.TraceFromContext(ctx).Function("Authenticate")

	claims, err := c.verifier.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	tx := c.db.SQLWithContext(ctx)
	user, err := c.userRepo.GetByAuthSubject(ctx, tx, claims.Subject)
	if err != nil {
		if !errors.Is(err, types.NotFound("")) {
			return nil, err
		}
		return c.createUser(ctx, claims)
	}

	if !user.IsActive {
		return nil, types.Unauthorized("user is deactivated")
	}

	if user.LastLoginAt == nil || time.Since(*user.LastLoginAt) > loginRefreshInterval {
		user.UpdateFromClaims(claims.Email, claims.FirstName, claims.LastName)
		if err := c.userRepo.Update(ctx, tx, user, map[string]any{
			"email":         user.Email,
			"first_name":    user.FirstName,
			"last_name":     user.LastName,
			"full_name":     user.FullName,
			"display_name":  user.DisplayName,
			"last_login_at": user.LastLoginAt,
		}); err != nil {
			log.Warn("failed to refresh user from claims", "userID", user.ID, "error", err)
		}
	}

	return user, nil
}

func (c *AuthController) createUser(ctx context.Context, claims *services.SessionClaims) (*models.User, error) {
	log := c.log.TraceFromContext(ctx).Function("createUser")

	now := time.Now()
	user := &models.User{
		AuthSubject: claims.Subject,
		FirstName:   claims.FirstName,
		LastName:    claims.LastName,
		Email:       claims.Email,
		IsActive:    true,
		LastLoginAt: &now,
	}

	if err := c.userRepo.Create(ctx, c.db.SQLWithContext(ctx), user); err != nil {
		// a concurrent first request may have created the row already
		existing, getErr := c.userRepo.GetByAuthSubject(ctx, c.db.SQLWithContext(ctx), claims.Subject)
		if getErr == nil {
			return existing, nil
		}
		return nil, log.Err("failed to create user", err, "subject", claims.Subject)
	}

	log.Info("user created on first sign in", "userID", user.ID)
	return user, nil
}
