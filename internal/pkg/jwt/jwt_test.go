package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_RoundTrip(t *testing.T) {
	s := New("secret", time.Hour)
	tok, err := s.GenerateToken("user-1", "student")
	require.NoError(t, err)

	claims, err := s.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "student", claims.Role)
}

func TestService_RejectsOtherSecretAndExpired(t *testing.T) {
	tok, err := New("secret", time.Hour).GenerateToken("user-1", "student")
	require.NoError(t, err)

	_, err = New("other", time.Hour).ValidateToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := New("secret", -time.Minute).GenerateToken("user-1", "student")
	require.NoError(t, err)
	_, err = New("secret", time.Hour).ValidateToken(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_RejectsMissingUser(t *testing.T) {
	s := New("secret", time.Hour)
	tok, err := s.GenerateToken("", "student")
	require.NoError(t, err)

	_, err = s.ValidateToken(tok)
	assert.ErrorIs(t, err, ErrInvalidClaims)
}
