package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freightrates/internal/config"
	"freightrates/internal/domain"
)

func newTestService() *TokenService {
	return NewTokenService(&config.AuthConfig{Secret: "test-secret", Issuer: "freightrates", TokenExpiry: time.Hour})
}

func TestIssueAndValidate(t *testing.T) {
	svc := newTestService()

	tok, err := svc.Issue("ops-team", "parse", 0)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.ExpiresAt, 5*time.Second)

	claims, err := svc.ValidateToken(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "ops-team", claims.Subject)
	assert.Equal(t, "parse", claims.Scope)
}

func TestValidate_Expired(t *testing.T) {
	svc := newTestService()
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	tok, err := svc.Issue("ops-team", "", time.Hour)
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(tok.AccessToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestValidate_WrongSecret(t *testing.T) {
	tok, err := newTestService().Issue("ops-team", "", 0)
	require.NoError(t, err)

	other := NewTokenService(&config.AuthConfig{Secret: "other", Issuer: "freightrates"})
	_, err = other.ValidateToken(tok.AccessToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestValidate_WrongIssuer(t *testing.T) {
	tok, err := newTestService().Issue("ops-team", "", 0)
	require.NoError(t, err)

	other := NewTokenService(&config.AuthConfig{Secret: "test-secret", Issuer: "someone-else"})
	_, err = other.ValidateToken(tok.AccessToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestValidate_RejectsNoneAlgorithm(t *testing.T) {
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "ops-team",
		Issuer:    "freightrates",
		Audience:  jwt.ClaimStrings{audience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newTestService().ValidateToken(unsigned)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestIssue_RequiresSubject(t *testing.T) {
	_, err := newTestService().Issue("", "", 0)
	assert.Error(t, err)
}
