package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c42705/stargety-oasis-sub008/config"
)

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()
	return NewAuthService(setupTestDB(t), &config.AuthConfig{
		JWTSecret:     "test-secret",
		TokenExpiry:   1,
		RefreshExpiry: 24,
	})
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestAuthService(t)

	user, err := svc.Register("alice@example.com", "alice", "hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", user.Password)

	_, err = svc.Register("alice@example.com", "alice2", "x")
	assert.ErrorIs(t, err, ErrUserExists)
	_, err = svc.Register("other@example.com", "alice", "x")
	assert.ErrorIs(t, err, ErrUserExists)

	tokens, err := svc.Login("alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", tokens.TokenType)
	assert.NotEmpty(t, tokens.AccessToken)

	_, err = svc.Login("alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login("nobody", "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateToken(t *testing.T) {
	svc := newTestAuthService(t)

	user, err := svc.Register("alice@example.com", "alice", "hunter2")
	require.NoError(t, err)
	tokens, err := svc.GenerateTokens(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)

	_, err = svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokens(t *testing.T) {
	svc := newTestAuthService(t)

	user, err := svc.Register("alice@example.com", "alice", "hunter2")
	require.NoError(t, err)
	tokens, err := svc.GenerateTokens(user)
	require.NoError(t, err)

	fresh, err := svc.RefreshTokens(tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, fresh.User.ID)

	_, err = svc.RefreshTokens("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSettingsRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSettingsService(db)

	// 没有记录时返回空设置而不是错误
	settings, err := svc.GetSettings(1)
	require.NoError(t, err)
	assert.Empty(t, settings.Settings)

	_, err = svc.SaveSettings(1, map[string]interface{}{"theme": "dark"})
	require.NoError(t, err)
	_, err = svc.SaveSettings(1, map[string]interface{}{"theme": "light"})
	require.NoError(t, err)

	settings, err = svc.GetSettings(1)
	require.NoError(t, err)
	assert.Equal(t, "light", settings.Settings["theme"])
}
