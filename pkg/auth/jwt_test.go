package auth

import (
	"testing"
	"time"

	"github.com/careslot/careslot/internal/config"
	"github.com/careslot/careslot/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:          "test-secret-key-of-sufficient-length",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "careslot-test",
	}
}

func testClaims() *domain.Claims {
	pid := uuid.New()
	return &domain.Claims{
		UserID:    uuid.New(),
		Email:     "pat@example.com",
		Role:      domain.RolePatient,
		PatientID: &pid,
	}
}

func TestTokenPairRoundTrip(t *testing.T) {
	m := NewJWTManager(testJWTConfig())
	in := testClaims()

	pair, err := m.GenerateTokenPair(in)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "Bearer", pair.TokenType)

	out, err := m.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)

	assert.Equal(t, in.UserID, out.UserID)
	assert.Equal(t, in.Email, out.Email)
	assert.Equal(t, in.Role, out.Role)
	require.NotNil(t, out.PatientID)
	assert.Equal(t, *in.PatientID, *out.PatientID)
	assert.Nil(t, out.DoctorID)
}

func TestTokenTypeEnforced(t *testing.T) {
	m := NewJWTManager(testJWTConfig())

	pair, err := m.GenerateTokenPair(testClaims())
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenTypeMismatch)

	_, err = m.ValidateRefreshToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenTypeMismatch)
}

func TestExpiredTokenRejected(t *testing.T) {
	cfg := testJWTConfig()
	cfg.AccessTokenTTL = -time.Minute
	m := NewJWTManager(cfg)

	pair, err := m.GenerateTokenPair(testClaims())
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestWrongSecretRejected(t *testing.T) {
	m := NewJWTManager(testJWTConfig())

	pair, err := m.GenerateTokenPair(testClaims())
	require.NoError(t, err)

	other := testJWTConfig()
	other.Secret = "a-completely-different-signing-secret"

	_, err = NewJWTManager(other).ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestWrongIssuerRejected(t *testing.T) {
	cfg := testJWTConfig()
	m := NewJWTManager(cfg)

	pair, err := m.GenerateTokenPair(testClaims())
	require.NoError(t, err)

	cfg.Issuer = "someone-else"
	_, err = NewJWTManager(cfg).ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestGarbageTokenRejected(t *testing.T) {
	m := NewJWTManager(testJWTConfig())

	_, err := m.ValidateAccessToken("not.a.jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
