package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"cleanbook/config"
	"cleanbook/internal/types"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

const clerkLeeway = 30 * time.Second

// SessionClaims is the subset of a Clerk session token the API relies on.
type SessionClaims struct {
	Subject   string
	SessionID string
	Email     *string
	FirstName string
	LastName  string
	ExpiresAt time.Time
}

// TokenVerifier validates bearer tokens issued by the auth provider.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*SessionClaims, error)
}

type ClerkService struct {
	issuer string
	keys   jwt.Keyfunc
	parser *jwt.Parser
	log    logger.Logger
}

// NewClerkService loads signing keys from the instance JWKS endpoint, which
// defaults to <issuer>/.well-known/jwks.json.
func NewClerkService(cfg config.Config) (*ClerkService, error) {
	log := logger.New("ClerkService").Function("NewClerkService")

	issuer := normalizeIssuer(cfg.ClerkIssuer)
	if issuer == "" {
		return nil, log.ErrMsg("CLERK_ISSUER is required")
	}

	jwksURL := strings.TrimSpace(cfg.ClerkJWKSURL)
	if jwksURL == "" {
		jwksURL = issuer + "/.well-known/jwks.json"
	}

	provider, err := keyfunc.NewDefault([]string{jwksURL})
	if err != nil {
		return nil, log.Err("failed to initialize JWKS keyfunc", err, "jwksURL", jwksURL)
	}

	log.Info("Clerk verifier initialized", "issuer", issuer)
	return newClerkService(issuer, provider.Keyfunc), nil
}

func newClerkService(issuer string, keys jwt.Keyfunc) *ClerkService {
	return &ClerkService{
		issuer: issuer,
		keys:   keys,
		parser: jwt.NewParser(
			jwt.WithIssuer(issuer),
			jwt.WithLeeway(clerkLeeway),
			jwt.WithExpirationRequired(),
			jwt.WithValidMethods([]string{
				jwt.SigningMethodRS256.Name,
				jwt.SigningMethodRS384.Name,
				jwt.SigningMethodRS512.Name,
			}),
		),
		log: logger.New("ClerkService"),
	}
}

func (s *ClerkService) Verify(ctx context.Context, tokenString string) (*SessionClaims, error) {
	log := s.log.TraceFromContext(ctx).Function("Verify")

	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, types.Unauthorized("missing session token")
	}

	token, err := s.parser.Parse(tokenString, s.keys)
	if err != nil {
		log.Debug("token rejected", "error", err)
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, types.Unauthorized("session has expired").WithCause(err)
		}
		return nil, types.Unauthorized("invalid session token").WithCause(err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, types.Unauthorized("invalid session token")
	}

	claims := &SessionClaims{
		Subject:   readClaim(mapClaims, "sub"),
		SessionID: readClaim(mapClaims, "sid"),
		FirstName: readClaim(mapClaims, "first_name"),
		LastName:  readClaim(mapClaims, "last_name"),
	}
	if email := readClaim(mapClaims, "email"); email != "" {
		claims.Email = &email
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}

	if claims.Subject == "" {
		return nil, types.Unauthorized("session token has no subject")
	}

	return claims, nil
}

func normalizeIssuer(issuer string) string {
	return strings.TrimRight(strings.TrimSpace(issuer), "/")
}

func readClaim(claims jwt.MapClaims, key string) string {
	if s, ok := claims[key].(string); ok {
		return s
	}
	return ""
}
