package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	resetTTL   time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
}

// NewTokenService creates a new TokenService instance from the shared config
func NewTokenService(cfg Config, logger Logger) TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		signingKey: []byte(cfg.GetSigningKey()),
		accessTTL:  time.Duration(cfg.GetAccessTokenTTL()) * time.Minute,
		refreshTTL: time.Duration(cfg.GetRefreshTokenTTL()) * 24 * time.Hour,
		resetTTL:   time.Duration(cfg.GetResetTokenTTL()) * time.Minute,
		issuer:     cfg.GetIssuer(),
		audience:   cfg.GetAudience(),
		logger:     logger,
	}
}

// GenerateAccess mints a short-lived access token whose claims embed both the
// account id and the session record id
func (ts *TokenServiceImpl) GenerateAccess(identity Identity, sessionID string) (string, error) {
	if identity == nil {
		return "", errors.New("identity must not be nil", errors.CategoryInternal)
	}

	claims := ts.newClaims(identity.ID(), ts.accessTTL)
	claims.UID = identity.ID()
	claims.SID = sessionID
	claims.UserRole = identity.Role()

	return ts.SignClaims(claims)
}

// GenerateRefresh mints a long-lived refresh token bound to a session record
func (ts *TokenServiceImpl) GenerateRefresh(sessionID string) (string, error) {
	claims := ts.newClaims(sessionID, ts.refreshTTL)
	claims.SID = sessionID

	return ts.SignClaims(claims)
}

// GenerateReset mints a short-lived token carrying only the account id, used
// in password reset links
func (ts *TokenServiceImpl) GenerateReset(accountID string) (string, error) {
	claims := ts.newClaims(accountID, ts.resetTTL)
	claims.UID = accountID

	return ts.SignClaims(claims)
}

// Reissue rotates a refresh token: the replacement carries the same session
// id and the ORIGINAL expiry, so a refreshed session cannot outlive the
// lifetime window set at first login.
func (ts *TokenServiceImpl) Reissue(old AuthClaims) (string, error) {
	if old == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	expires := old.Expires()
	if expires.IsZero() {
		return "", ErrTokenMalformed
	}

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   old.Subject(),
			Audience:  ts.claimAudience(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		UID: old.UserID(),
		SID: old.SessionID(),
	}

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary JWT claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string, returning structured claims
func (ts *TokenServiceImpl) Validate(tokenString string) (AuthClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode or validate claims")
	return nil, ErrUnableToMapClaims
}

func (ts *TokenServiceImpl) newClaims(subject string, ttl time.Duration) *JWTClaims {
	now := time.Now()
	return &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   subject,
			Audience:  ts.claimAudience(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func (ts *TokenServiceImpl) claimAudience() jwt.ClaimStrings {
	if len(ts.audience) == 0 {
		return nil
	}
	aud := make(jwt.ClaimStrings, len(ts.audience))
	copy(aud, ts.audience)
	return aud
}
