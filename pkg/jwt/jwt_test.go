package jwt

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_GenerateAndValidate(t *testing.T) {
	manager := NewManager("test-secret", 60)
	userID := uuid.New().String()

	token, err := manager.GenerateAccessToken(userID, "reader@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := manager.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "reader@example.com", claims.Email)
}

func TestManager_RejectsWrongSecret(t *testing.T) {
	token, err := NewManager("secret-a", 60).GenerateAccessToken(uuid.New().String(), "a@b.c")
	require.NoError(t, err)

	_, err = NewManager("secret-b", 60).ValidateToken(token)
	assert.Error(t, err)
}

func TestManager_RejectsExpiredToken(t *testing.T) {
	manager := NewManager("test-secret", -1)

	token, err := manager.GenerateAccessToken(uuid.New().String(), "a@b.c")
	require.NoError(t, err)

	_, err = manager.ValidateToken(token)
	assert.Error(t, err)
}

func TestManager_RejectsGarbage(t *testing.T) {
	_, err := NewManager("test-secret", 60).ValidateToken("not.a.token")
	assert.Error(t, err)
}
