package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mines-miniapp-backend/internal/config"
)

func TestJWTRoundTrip(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	svc := NewJWTService(cfg)

	token, err := svc.GenerateToken(42, "session-abc")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "session-abc", claims.SessionID)
}

func TestJWTRejectsForeignToken(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	other := *cfg
	other.JWTSecret = "a-different-secret"

	token, err := NewJWTService(&other).GenerateToken(42, "session-abc")
	require.NoError(t, err)

	_, err = NewJWTService(cfg).ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTRejectsGarbage(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	svc := NewJWTService(cfg)

	_, err = svc.ValidateToken("not.a.token")
	assert.Error(t, err)

	_, err = svc.ValidateToken("")
	assert.Error(t, err)
}
