package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	m := NewManager("test-secret")

	token, err := m.IssueToken(42, time.Minute)
	require.NoError(t, err)

	userID, err := m.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), userID)
}

func TestVerify_WrongSecret(t *testing.T) {
	token, err := NewManager("secret-a").IssueToken(1, time.Minute)
	require.NoError(t, err)

	_, err = NewManager("secret-b").VerifyToken(token)
	assert.Error(t, err)
}

func TestVerify_Expired(t *testing.T) {
	m := NewManager("test-secret")

	token, err := m.IssueToken(7, -time.Minute)
	require.NoError(t, err)

	_, err = m.VerifyToken(token)
	assert.Error(t, err)
}

func TestVerify_Garbage(t *testing.T) {
	_, err := NewManager("test-secret").VerifyToken("not.a.token")
	assert.Error(t, err)
}
