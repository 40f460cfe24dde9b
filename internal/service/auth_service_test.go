package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rollcall-api/internal/models"
	appErrors "github.com/noah-isme/rollcall-api/pkg/errors"
)

func TestAuthServiceIssueAndValidate(t *testing.T) {
	svc := NewAuthService(AuthConfig{Secret: "secret", Issuer: "rollcall-api", Expiry: time.Hour})

	token, expiresAt, err := svc.IssueToken("front-desk", models.RoleEditor)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "front-desk", claims.Subject)
	assert.Equal(t, models.RoleEditor, claims.Role)
	assert.True(t, claims.Role.CanWrite())
}

func TestAuthServiceRejectsUnknownRole(t *testing.T) {
	svc := NewAuthService(AuthConfig{Secret: "secret"})

	_, _, err := svc.IssueToken("x", models.ClientRole("admin"))
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAuthServiceRejectsWrongSecret(t *testing.T) {
	issuer := NewAuthService(AuthConfig{Secret: "one", Issuer: "rollcall-api"})
	verifier := NewAuthService(AuthConfig{Secret: "two", Issuer: "rollcall-api"})

	token, _, err := issuer.IssueToken("x", models.RoleReader)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceRejectsExpiredToken(t *testing.T) {
	svc := NewAuthService(AuthConfig{Secret: "secret", Expiry: time.Minute})
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := svc.IssueToken("x", models.RoleReader)
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(token)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceRejectsForeignIssuer(t *testing.T) {
	issuer := NewAuthService(AuthConfig{Secret: "secret", Issuer: "someone-else"})
	verifier := NewAuthService(AuthConfig{Secret: "secret", Issuer: "rollcall-api"})

	token, _, err := issuer.IssueToken("x", models.RoleReader)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}
