package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, opts Options) *Manager {
	t.Helper()
	if opts.SigningKey == nil {
		opts.SigningKey = []byte("test-signing-key")
	}
	m, err := NewManager(opts)
	require.NoError(t, err)
	return m
}

func TestIssueAndParse(t *testing.T) {
	m := newTestManager(t, Options{Issuer: "orderwatch", Audience: "orderwatch-client"})

	signed, issued, err := m.Issue(IssueInput{Subject: "user-42", Upstream: "upstream-token"})
	require.NoError(t, err)
	assert.Equal(t, DefaultScopes, issued.Scopes)

	claims, err := m.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.Subject)
	assert.Equal(t, "upstream-token", claims.Upstream)
	assert.True(t, claims.HasScope(ScopeOrdersWatch))
	assert.False(t, claims.HasScope("orders:write"))
}

func TestParse_Expired(t *testing.T) {
	m := newTestManager(t, Options{})
	signed, _, err := m.Issue(IssueInput{Subject: "user", TTL: time.Millisecond})
	require.NoError(t, err)

	time.Sleep(1100 * time.Millisecond)
	_, err = m.Parse(signed)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestParse_WrongKeyOrAudience(t *testing.T) {
	issuer := newTestManager(t, Options{Audience: "a"})
	signed, _, err := issuer.Issue(IssueInput{Subject: "user"})
	require.NoError(t, err)

	otherKey := newTestManager(t, Options{SigningKey: []byte("other"), Audience: "a"})
	_, err = otherKey.Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	otherAudience := newTestManager(t, Options{Audience: "b"})
	_, err = otherAudience.Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.Parse("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewManager_Validation(t *testing.T) {
	_, err := NewManager(Options{})
	assert.Error(t, err)

	_, err = NewManager(Options{SigningKey: []byte("k"), SigningAlg: "RS256"})
	assert.Error(t, err)

	_, _, err = newTestManager(t, Options{}).Issue(IssueInput{Subject: "  "})
	assert.Error(t, err)
}
