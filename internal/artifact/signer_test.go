package artifact

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSigner_RequiresSecret(t *testing.T) {
	_, err := NewSigner("")
	assert.Error(t, err)
}

func TestSigner_Verify(t *testing.T) {
	s, err := NewSigner("secret")
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	exp := now.Add(10 * time.Minute)
	expStr := strconv.FormatInt(exp.Unix(), 10)
	sig := s.Sign("a.txt", exp)

	assert.NoError(t, s.Verify("a.txt", expStr, sig, now))
	assert.ErrorIs(t, s.Verify("b.txt", expStr, sig, now), ErrInvalidSignature)
	assert.ErrorIs(t, s.Verify("a.txt", expStr, "deadbeef", now), ErrInvalidSignature)
	assert.ErrorIs(t, s.Verify("a.txt", "soon", sig, now), ErrInvalidSignature)
	assert.ErrorIs(t, s.Verify("a.txt", expStr, sig, exp), ErrLinkExpired)

	other, _ := NewSigner("other")
	assert.ErrorIs(t, other.Verify("a.txt", expStr, sig, now), ErrInvalidSignature)
}
