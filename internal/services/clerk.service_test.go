package services

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"cleanbook/internal/types"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIssuer = "https://clerk.cleanbook.test"

func newTestClerk(t *testing.T) (*ClerkService, *rsa.PrivateKey) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	service := newClerkService(testIssuer, func(token *jwt.Token) (any, error) {
		return &key.PublicKey, nil
	})
	return service, key
}

func signToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestClerkService_Verify(t *testing.T) {
	service, key := newTestClerk(t)
	now := time.Now()

	token := signToken(t, key, jwt.MapClaims{
		"iss":        testIssuer,
		"sub":        "user_2abc",
		"sid":        "sess_1",
		"email":      "kari@example.no",
		"first_name": "Kari",
		"last_name":  "Nordmann",
		"exp":        now.Add(time.Hour).Unix(),
		"iat":        now.Unix(),
	})

	claims, err := service.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user_2abc", claims.Subject)
	assert.Equal(t, "sess_1", claims.SessionID)
	require.NotNil(t, claims.Email)
	assert.Equal(t, "kari@example.no", *claims.Email)
	assert.Equal(t, "Kari", claims.FirstName)
	assert.Equal(t, "Nordmann", claims.LastName)
	assert.WithinDuration(t, now.Add(time.Hour), claims.ExpiresAt, time.Second)
}

func TestClerkService_VerifyRejects(t *testing.T) {
	service, key := newTestClerk(t)
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-token"},
		{
			name:  "wrong issuer",
			token: signToken(t, key, jwt.MapClaims{"iss": "https://evil.test", "sub": "u", "exp": exp}),
		},
		{
			name: "expired",
			token: signToken(t, key, jwt.MapClaims{
				"iss": testIssuer,
				"sub": "u",
				"exp": time.Now().Add(-time.Hour).Unix(),
			}),
		},
		{
			name:  "missing expiry",
			token: signToken(t, key, jwt.MapClaims{"iss": testIssuer, "sub": "u"}),
		},
		{
			name:  "missing subject",
			token: signToken(t, key, jwt.MapClaims{"iss": testIssuer, "exp": exp}),
		},
		{
			name:  "wrong key",
			token: signToken(t, otherKey, jwt.MapClaims{"iss": testIssuer, "sub": "u", "exp": exp}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.Verify(context.Background(), tt.token)
			assert.Nil(t, claims)
			appErr, ok := types.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, types.CodeUnauthorized, appErr.Code)
		})
	}
}

func TestClerkService_RejectsHMAC(t *testing.T) {
	service, _ := newTestClerk(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": testIssuer,
		"sub": "u",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = service.Verify(context.Background(), signed)
	assert.Error(t, err)
}

func TestNormalizeIssuer(t *testing.T) {
	assert.Equal(t, testIssuer, normalizeIssuer(" "+testIssuer+"/ "))
	assert.Equal(t, "", normalizeIssuer("  "))
}
