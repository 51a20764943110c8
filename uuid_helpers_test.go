package identity_test

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	identity "github.com/goliatone/go-identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountUUID(t *testing.T) {
	t.Run("uid claim", func(t *testing.T) {
		id := uuid.New()
		got, err := identity.AccountUUID(&identity.JWTClaims{UID: id.String()})
		require.NoError(t, err)
		assert.Equal(t, id, got)
	})

	t.Run("falls back to subject", func(t *testing.T) {
		id := uuid.New()
		claims := &identity.JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: id.String()},
		}
		got, err := identity.AccountUUID(claims)
		require.NoError(t, err)
		assert.Equal(t, id, got)
	})

	t.Run("non uuid subject", func(t *testing.T) {
		_, err := identity.AccountUUID(&identity.JWTClaims{UID: "external|12345"})
		assert.ErrorIs(t, err, identity.ErrUnableToMapClaims)
	})

	t.Run("nil claims", func(t *testing.T) {
		_, err := identity.AccountUUID(nil)
		assert.ErrorIs(t, err, identity.ErrUnableToMapClaims)
	})
}

func TestHasAccountUUID(t *testing.T) {
	assert.True(t, identity.HasAccountUUID(&identity.JWTClaims{UID: uuid.New().String()}))
	assert.False(t, identity.HasAccountUUID(&identity.JWTClaims{UID: "nope"}))
	assert.False(t, identity.HasAccountUUID(nil))
}
