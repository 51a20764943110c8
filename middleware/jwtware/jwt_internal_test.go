package jwtware

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyfuncOptionsRefreshErrorHandlerIsSafe(t *testing.T) {
	opts := keyfuncOptions(nil)
	require.NotNil(t, opts.RefreshErrorHandler)
	require.NotPanics(t, func() {
		opts.RefreshErrorHandler(errors.New("refresh failed"))
	})

	require.Equal(t, time.Hour, opts.RefreshInterval)
	require.Equal(t, 5*time.Minute, opts.RefreshRateLimit)
	require.Equal(t, 10*time.Second, opts.RefreshTimeout)
	require.True(t, opts.RefreshUnknownKID)
}

func TestGetExtractors(t *testing.T) {
	tests := []struct {
		name   string
		lookup string
		count  int
	}{
		{"single header source", "header:Authorization", 1},
		{"all four sources", "header:Authorization,query:auth_token,param:token,cookie:jwt", 4},
		{"whitespace is tolerated", " header : Authorization , cookie : jwt ", 2},
		{"unknown sources are ignored", "header:Authorization,body:token", 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			extractors := GetExtractors(tc.lookup, "Bearer")
			assert.Len(t, extractors, tc.count)
		})
	}
}

type roleClaims struct {
	role string
}

func (c roleClaims) Subject() string   { return "subject" }
func (c roleClaims) UserID() string    { return "user-id" }
func (c roleClaims) SessionID() string { return "session-id" }
func (c roleClaims) Role() string      { return c.role }

func (c roleClaims) HasRole(role string) bool {
	return c.role == role
}

func (c roleClaims) IsAtLeast(minRole string) bool {
	ranks := map[string]int{"user": 1, "admin": 2}
	return ranks[c.role] >= ranks[minRole]
}

func TestPerformAuthorizationChecks(t *testing.T) {
	tests := []struct {
		name    string
		claims  AuthClaims
		cfg     Config
		wantErr bool
	}{
		{
			name:   "no RBAC config skips checks",
			claims: roleClaims{role: "user"},
			cfg:    Config{},
		},
		{
			name:   "required role matches",
			claims: roleClaims{role: "admin"},
			cfg:    Config{RequiredRole: "admin"},
		},
		{
			name:    "required role missing",
			claims:  roleClaims{role: "user"},
			cfg:     Config{RequiredRole: "admin"},
			wantErr: true,
		},
		{
			name:   "minimum role met by higher rank",
			claims: roleClaims{role: "admin"},
			cfg:    Config{MinimumRole: "user"},
		},
		{
			name:    "minimum role not met",
			claims:  roleClaims{role: "user"},
			cfg:     Config{MinimumRole: "admin"},
			wantErr: true,
		},
		{
			name:   "role checker approves",
			claims: roleClaims{role: "admin"},
			cfg: Config{
				RequiredRole: "admin",
				RoleChecker: func(claims AuthClaims, role string) bool {
					return claims.HasRole(role)
				},
			},
		},
		{
			name:   "role checker rejects",
			claims: roleClaims{role: "admin"},
			cfg: Config{
				RequiredRole: "admin",
				RoleChecker: func(claims AuthClaims, role string) bool {
					return false
				},
			},
			wantErr: true,
		},
		{
			name:   "role checker falls back to minimum role",
			claims: roleClaims{role: "admin"},
			cfg: Config{
				MinimumRole: "user",
				RoleChecker: func(claims AuthClaims, role string) bool {
					return role == "user"
				},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := performAuthorizationChecks(tc.claims, tc.cfg)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSigningKeyFunc(t *testing.T) {
	key := []byte("test-secret")

	t.Run("matching algorithm returns the key", func(t *testing.T) {
		fn := signingKeyFunc(SigningKey{JWTAlg: "HS256", Key: key})
		token := jwt.New(jwt.SigningMethodHS256)

		got, err := fn(token)
		require.NoError(t, err)
		assert.Equal(t, key, got)
	})

	t.Run("algorithm mismatch is rejected", func(t *testing.T) {
		fn := signingKeyFunc(SigningKey{JWTAlg: "RS256", Key: key})
		token := jwt.New(jwt.SigningMethodHS256)

		_, err := fn(token)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected jwt signing method")
	})

	t.Run("no algorithm pin accepts any method", func(t *testing.T) {
		fn := signingKeyFunc(SigningKey{Key: key})
		token := jwt.New(jwt.SigningMethodHS512)

		got, err := fn(token)
		require.NoError(t, err)
		assert.Equal(t, key, got)
	})
}

type internalStubValidator struct{}

func (internalStubValidator) Validate(string) (AuthClaims, error) {
	return roleClaims{role: "user"}, nil
}

func TestGetDefaultConfig(t *testing.T) {
	t.Run("fills in defaults", func(t *testing.T) {
		cfg := GetDefaultConfig(Config{
			SigningKey:     SigningKey{JWTAlg: "HS256", Key: []byte("test-secret")},
			TokenValidator: internalStubValidator{},
		})

		assert.Equal(t, "user", cfg.ContextKey)
		assert.Equal(t, defaultTokenLookup, cfg.TokenLookup)
		assert.Equal(t, "Bearer", cfg.AuthScheme)
		assert.NotNil(t, cfg.SuccessHandler)
		assert.NotNil(t, cfg.ErrorHandler)
		assert.NotNil(t, cfg.KeyFunc)
	})

	t.Run("panics without a token validator", func(t *testing.T) {
		assert.Panics(t, func() {
			GetDefaultConfig(Config{
				SigningKey: SigningKey{JWTAlg: "HS256", Key: []byte("test-secret")},
			})
		})
	})

	t.Run("panics without key material", func(t *testing.T) {
		assert.Panics(t, func() {
			GetDefaultConfig(Config{TokenValidator: internalStubValidator{}})
		})
	})

	t.Run("builds a keyfunc from signing keys map", func(t *testing.T) {
		cfg := GetDefaultConfig(Config{
			TokenValidator: internalStubValidator{},
			SigningKeys: map[string]SigningKey{
				"key-1": {JWTAlg: "HS256", Key: []byte("secret-one")},
			},
		})
		assert.NotNil(t, cfg.KeyFunc)
	})
}
