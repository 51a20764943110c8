package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountStatus is the account lifecycle state. Transitions are enforced by
// the state machine in state_machine.go; deleted is terminal.
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusSuspended AccountStatus = "suspended"
	AccountStatusDeleted   AccountStatus = "deleted"
)

// IsValid checks the status against the closed set
func (s AccountStatus) IsValid() bool {
	switch s {
	case AccountStatusActive, AccountStatusSuspended, AccountStatusDeleted:
		return true
	default:
		return false
	}
}

// SessionStatus tracks revocation state of a session record. The transition
// is monotonic: active records become revoked and never come back.
type SessionStatus string

const (
	SessionStatusActive  SessionStatus = "active"
	SessionStatusRevoked SessionStatus = "revoked"
)

// Account is the user account model. Email and phone are unique only among
// non-deleted accounts; soft deletion frees both for reuse.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acct"`
	ID            uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role          AccountRole   `bun:"role,notnull" json:"role,omitempty"`
	Name          string        `bun:"name,notnull" json:"name,omitempty"`
	Email         string        `bun:"email,notnull" json:"email,omitempty"`
	Phone         string        `bun:"phone,notnull" json:"phone,omitempty"`
	Address       string        `bun:"address" json:"address,omitempty"`
	DateOfBirth   *time.Time    `bun:"date_of_birth,nullzero" json:"date_of_birth,omitempty"`
	PasswordHash  string        `bun:"password_hash" json:"-"`
	Status        AccountStatus `bun:"status,notnull" json:"status,omitempty"`
	SuspendedAt   *time.Time    `bun:"suspended_at,nullzero" json:"suspended_at,omitempty"`
	DeletedAt     *time.Time    `bun:"deleted_at,nullzero" json:"deleted_at,omitempty"`
	CreatedAt     *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time    `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EnsureStatus defaults a zero status to active
func (a *Account) EnsureStatus() {
	if a.Status == "" {
		a.Status = AccountStatusActive
	}
}

// IsActive reports whether the account can authenticate and mutate state
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive || a.Status == ""
}

// SessionRecord binds one login session to an account. The record id doubles
// as the access session id embedded in access tokens. The token column holds
// the refresh token string at time of issuance and is mutated in place on
// rotation; the record itself is never deleted on logout, only marked
// revoked, so it remains an audit trail of sessions.
type SessionRecord struct {
	bun.BaseModel `bun:"table:session_records,alias:sess"`
	ID            uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	AccountID     uuid.UUID     `bun:"account_id,notnull,type:uuid" json:"account_id,omitempty"`
	Account       *Account      `bun:"rel:belongs-to,join:account_id=id" json:"account,omitempty"`
	Token         string        `bun:"token,notnull" json:"-"`
	Status        SessionStatus `bun:"status,notnull" json:"status,omitempty"`
	CreatedAt     *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time    `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	RevokedAt     *time.Time    `bun:"revoked_at,nullzero" json:"revoked_at,omitempty"`
}

// EnsureStatus defaults a zero status to active
func (s *SessionRecord) EnsureStatus() {
	if s.Status == "" {
		s.Status = SessionStatusActive
	}
}

// IsActive reports whether the session can still be refreshed or logged out
func (s *SessionRecord) IsActive() bool {
	return s.Status == SessionStatusActive || s.Status == ""
}

// accountIdentity adapts an Account row to the Identity interface
type accountIdentity struct {
	id     string
	email  string
	role   string
	status AccountStatus
}

func (a accountIdentity) ID() string            { return a.id }
func (a accountIdentity) Email() string         { return a.email }
func (a accountIdentity) Role() string          { return a.role }
func (a accountIdentity) Status() AccountStatus { return a.status }

// IdentityFromAccount exposes an account as an Identity value
func IdentityFromAccount(acct *Account) Identity {
	if acct == nil {
		return nil
	}
	acct.EnsureStatus()
	return accountIdentity{
		id:     acct.ID.String(),
		email:  acct.Email,
		role:   string(acct.Role),
		status: acct.Status,
	}
}
