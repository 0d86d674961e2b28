package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrincipalContext(t *testing.T) {
	ctx := context.Background()

	_, ok := PrincipalFromContext(ctx)
	assert.False(t, ok)
	_, err := MustPrincipal(ctx)
	assert.ErrorIs(t, err, ErrNoPrincipal)

	p := Principal{Subject: "alice", Role: RoleAdmin, TenantID: "t1"}
	ctx = WithPrincipal(ctx, p)

	got, err := MustPrincipal(ctx)
	require.NoError(t, err)
	assert.Equal(t, p, got)
	assert.True(t, got.HasRole(RoleUser, RoleAdmin))
	assert.False(t, got.HasRole(RoleUser))
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" admin ")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, r)

	_, err = ParseRole("SYSTEM")
	assert.Error(t, err)
}

func TestTokenIssuer(t *testing.T) {
	_, err := NewTokenIssuer("", "doclife", time.Hour)
	require.Error(t, err)

	issuer, err := NewTokenIssuer("s3cret", "doclife", time.Hour)
	require.NoError(t, err)

	p := Principal{Subject: "bob", Role: RoleUser, TenantID: "t2"}

	t.Run("round trip", func(t *testing.T) {
		tok, exp, err := issuer.Issue(p)
		require.NoError(t, err)
		assert.True(t, exp.After(time.Now()))

		got, err := issuer.Parse(tok)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	})

	t.Run("missing tenant", func(t *testing.T) {
		_, _, err := issuer.Issue(Principal{Subject: "x", Role: RoleUser})
		assert.Error(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, _ := NewTokenIssuer("other", "doclife", time.Hour)
		tok, _, err := other.Issue(p)
		require.NoError(t, err)

		_, err = issuer.Parse(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		old, _ := NewTokenIssuer("s3cret", "doclife", time.Minute)
		old.now = func() time.Time { return time.Now().Add(-time.Hour) }
		tok, _, err := old.Issue(p)
		require.NoError(t, err)

		_, err = issuer.Parse(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unknown role", func(t *testing.T) {
		claims := Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "doclife",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			Role:     "ROOT",
			TenantID: "t2",
		}
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s3cret"))
		require.NoError(t, err)

		_, err = issuer.Parse(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
