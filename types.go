package identity

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated account
type Identity interface {
	ID() string
	Email() string
	Role() string
	Status() AccountStatus
}

// TokenPair is the credential set returned by login and refresh
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// SessionManager orchestrates the token lifecycle against the stores
type SessionManager interface {
	Login(ctx context.Context, email, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, claims AuthClaims) error
}

// TokenService mints and validates signed claim sets
type TokenService interface {
	GenerateAccess(identity Identity, sessionID string) (string, error)
	GenerateRefresh(sessionID string) (string, error)
	GenerateReset(accountID string) (string, error)
	Reissue(claims AuthClaims) (string, error)
	Validate(tokenString string) (AuthClaims, error)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
	// GetAccessTokenTTL is expressed in minutes
	GetAccessTokenTTL() int
	// GetRefreshTokenTTL is expressed in days
	GetRefreshTokenTTL() int
	// GetResetTokenTTL is expressed in minutes
	GetResetTokenTTL() int
}

// Mailer delivers outbound notification emails. Implementations should honor
// the context deadline; callers wrap sends in a bounded timeout.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// MailSendTimeout bounds outbound email delivery so a slow SMTP server
// cannot hold a request open indefinitely.
var MailSendTimeout = 10 * time.Second

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] IDENTITY "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] IDENTITY "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] IDENTITY "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] IDENTITY "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
