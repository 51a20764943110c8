package identity

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// Auther orchestrates login, refresh, and logout against the token service
// and the two stores, enforcing the account and session state machines.
type Auther struct {
	repo   RepositoryManager
	tokens TokenService
	hasher PasswordAuthenticator
	logger Logger
}

var _ SessionManager = (*Auther)(nil)

// NewAuthenticator returns a new Auther
func NewAuthenticator(repo RepositoryManager, cfg Config) *Auther {
	return &Auther{
		repo:   repo,
		tokens: NewTokenService(cfg, defLogger{}),
		hasher: NewPasswordAuthenticator(),
		logger: defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithTokenService overrides the token service, useful for tests or
// externally issued keys.
func (s *Auther) WithTokenService(tokens TokenService) *Auther {
	if tokens != nil {
		s.tokens = tokens
	}
	return s
}

// WithPasswordAuthenticator overrides the password hasher.
func (s *Auther) WithPasswordAuthenticator(hasher PasswordAuthenticator) *Auther {
	if hasher != nil {
		s.hasher = hasher
	}
	return s
}

// TokenService returns the TokenService instance used by this Auther
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

// Login verifies credentials and opens a new session. Every successful call
// creates a brand-new session record; concurrent sessions per account are
// supported.
//
// Order of checks matters: a suspended account is rejected before password
// verification ever runs.
func (s *Auther) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	account, err := s.repo.Accounts().GetByEmail(ctx, email)
	if err != nil {
		s.logger.Error("Login account lookup failed", "email", email, "error", err)
		return nil, err
	}

	if account.Status == AccountStatusSuspended {
		s.logger.Warn("Login blocked for suspended account", "account_id", account.ID.String())
		return nil, ErrAccountSuspended
	}

	if err := s.hasher.ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		s.logger.Warn("Login password verification failed", "account_id", account.ID.String())
		return nil, ErrMismatchedHashAndPassword
	}

	var pair *TokenPair
	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record := &SessionRecord{
			AccountID: account.ID,
			Status:    SessionStatusActive,
		}

		record, err := s.repo.Sessions().CreateTx(ctx, tx, record)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create session record")
		}

		refresh, err := s.tokens.GenerateRefresh(record.ID.String())
		if err != nil {
			return err
		}

		if err := s.repo.Sessions().RotateTokenTx(ctx, tx, record.ID, refresh); err != nil {
			return err
		}

		access, err := s.tokens.GenerateAccess(IdentityFromAccount(account), record.ID.String())
		if err != nil {
			return err
		}

		pair = &TokenPair{AccessToken: access, RefreshToken: refresh}
		return nil
	})

	if err != nil {
		return nil, normalizeTxError(err, "login transaction failed")
	}

	s.logger.Info("Login succeeded", "account_id", account.ID.String())
	return pair, nil
}

// Refresh exchanges a refresh token for a new access/refresh pair. The token
// is decoded only to recover its claims; the session is matched by the STORED
// token string. The replacement token keeps the original expiry, so a session
// can never slide past the window set at first login.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.Validate(refreshToken)
	if err != nil {
		s.logger.Warn("Refresh token validation failed", "error", err)
		return nil, err
	}

	var pair *TokenPair
	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := s.repo.Sessions().GetByTokenTx(ctx, tx, refreshToken)
		if err != nil {
			return err
		}

		if !record.IsActive() {
			return ErrSessionRevoked
		}

		account, err := s.repo.Accounts().GetByIDTx(ctx, tx, record.AccountID.String())
		if err != nil {
			return err
		}

		next, err := s.tokens.Reissue(claims)
		if err != nil {
			return err
		}

		if err := s.repo.Sessions().RotateTokenTx(ctx, tx, record.ID, next); err != nil {
			return err
		}

		access, err := s.tokens.GenerateAccess(IdentityFromAccount(account), record.ID.String())
		if err != nil {
			return err
		}

		pair = &TokenPair{AccessToken: access, RefreshToken: next}
		return nil
	})

	if err != nil {
		return nil, normalizeTxError(err, "refresh transaction failed")
	}

	return pair, nil
}

// Logout marks the session carried by the (already validated) access-token
// claims as no-longer-active. The claims come from the authorization
// middleware; the token is not re-decoded here. A second logout on the same
// session fails with an auth error, the account itself is untouched.
func (s *Auther) Logout(ctx context.Context, claims AuthClaims) error {
	if claims == nil || claims.SessionID() == "" {
		return ErrSessionNotFound
	}

	record, err := s.repo.Sessions().GetByID(ctx, claims.SessionID())
	if err != nil {
		return err
	}

	if !record.IsActive() {
		return ErrSessionRevoked
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return s.repo.Sessions().RevokeTx(ctx, tx, record.ID)
	})

	if err != nil {
		return normalizeTxError(err, "logout transaction failed")
	}

	s.logger.Info("Logout", "session_id", record.ID.String())
	return nil
}

// normalizeTxError preserves structured errors and wraps anything else as a
// storage failure: partial writes were already rolled back by RunInTx.
func normalizeTxError(err error, msg string) error {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}
