package identity_test

import (
	"context"
	"database/sql"

	identity "github.com/goliatone/go-identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockConfig implements identity.Config
type MockConfig struct {
	mock.Mock
}

func (m *MockConfig) GetSigningKey() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetSigningMethod() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetContextKey() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetTokenLookup() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetAuthScheme() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetIssuer() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetAudience() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

func (m *MockConfig) GetAccessTokenTTL() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockConfig) GetRefreshTokenTTL() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockConfig) GetResetTokenTTL() int {
	args := m.Called()
	return args.Int(0)
}

// MockRepositoryManager implements identity.RepositoryManager
type MockRepositoryManager struct {
	mock.Mock
}

func (m *MockRepositoryManager) Validate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRepositoryManager) MustValidate() {
	m.Called()
}

// RunInTx executes the closure with a zero bun.Tx the way a live manager
// would run it against the database, propagating the closure error. An
// explicit non-nil Return short-circuits without running the closure, which
// models a transaction that fails to open.
func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	args := m.Called(ctx, opts, f)
	if err := args.Error(0); err != nil {
		return err
	}
	var tx bun.Tx
	return f(ctx, tx)
}

func (m *MockRepositoryManager) Accounts() identity.Accounts {
	args := m.Called()
	return args.Get(0).(identity.Accounts)
}

func (m *MockRepositoryManager) Sessions() identity.Sessions {
	args := m.Called()
	return args.Get(0).(identity.Sessions)
}

// expectRunInTx registers the standard RunInTx expectation.
func expectRunInTx(repo *MockRepositoryManager) *mock.Call {
	return repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).Return(nil)
}

// MockAccounts implements identity.Accounts
type MockAccounts struct {
	mock.Mock
}

func (m *MockAccounts) GetByID(ctx context.Context, id string) (*identity.Account, error) {
	args := m.Called(ctx, id)
	if acct, ok := args.Get(0).(*identity.Account); ok {
		return acct, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccounts) GetByIDTx(ctx context.Context, tx bun.IDB, id string) (*identity.Account, error) {
	args := m.Called(ctx, tx, id)
	if acct, ok := args.Get(0).(*identity.Account); ok {
		return acct, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccounts) GetByEmail(ctx context.Context, email string) (*identity.Account, error) {
	args := m.Called(ctx, email)
	if acct, ok := args.Get(0).(*identity.Account); ok {
		return acct, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccounts) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*identity.Account, error) {
	args := m.Called(ctx, tx, email)
	if acct, ok := args.Get(0).(*identity.Account); ok {
		return acct, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccounts) Create(ctx context.Context, record *identity.Account) (*identity.Account, error) {
	args := m.Called(ctx, record)
	if acct, ok := args.Get(0).(*identity.Account); ok {
		return acct, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccounts) CreateTx(ctx context.Context, tx bun.IDB, record *identity.Account) (*identity.Account, error) {
	args := m.Called(ctx, tx, record)
	if acct, ok := args.Get(0).(*identity.Account); ok {
		return acct, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccounts) IdentifierTakenTx(ctx context.Context, tx bun.IDB, email, phone string, excludeID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tx, email, phone, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccounts) PhoneTakenTx(ctx context.Context, tx bun.IDB, phone string, excludeID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tx, phone, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccounts) UpdateFieldsTx(ctx context.Context, tx bun.IDB, id uuid.UUID, fields map[string]any) (*identity.Account, error) {
	args := m.Called(ctx, tx, id, fields)
	if acct, ok := args.Get(0).(*identity.Account); ok {
		return acct, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccounts) UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status identity.AccountStatus, opts ...identity.StatusUpdateOption) (*identity.Account, error) {
	args := m.Called(ctx, tx, id, status)
	if acct, ok := args.Get(0).(*identity.Account); ok {
		return acct, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccounts) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, tx, id, passwordHash)
	return args.Error(0)
}

func (m *MockAccounts) Search(ctx context.Context, limit, page int, query string) ([]*identity.Account, error) {
	args := m.Called(ctx, limit, page, query)
	if accts, ok := args.Get(0).([]*identity.Account); ok {
		return accts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccounts) CountSearch(ctx context.Context, query string) (int, error) {
	args := m.Called(ctx, query)
	return args.Int(0), args.Error(1)
}

// MockSessions implements identity.Sessions
type MockSessions struct {
	mock.Mock
}

func (m *MockSessions) Create(ctx context.Context, record *identity.SessionRecord) (*identity.SessionRecord, error) {
	args := m.Called(ctx, record)
	if rec, ok := args.Get(0).(*identity.SessionRecord); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessions) CreateTx(ctx context.Context, tx bun.IDB, record *identity.SessionRecord) (*identity.SessionRecord, error) {
	args := m.Called(ctx, tx, record)
	if rec, ok := args.Get(0).(*identity.SessionRecord); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessions) GetByID(ctx context.Context, id string) (*identity.SessionRecord, error) {
	args := m.Called(ctx, id)
	if rec, ok := args.Get(0).(*identity.SessionRecord); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessions) GetByIDTx(ctx context.Context, tx bun.IDB, id string) (*identity.SessionRecord, error) {
	args := m.Called(ctx, tx, id)
	if rec, ok := args.Get(0).(*identity.SessionRecord); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessions) GetByToken(ctx context.Context, token string) (*identity.SessionRecord, error) {
	args := m.Called(ctx, token)
	if rec, ok := args.Get(0).(*identity.SessionRecord); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessions) GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*identity.SessionRecord, error) {
	args := m.Called(ctx, tx, token)
	if rec, ok := args.Get(0).(*identity.SessionRecord); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessions) RotateTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string) error {
	args := m.Called(ctx, tx, id, token)
	return args.Error(0)
}

func (m *MockSessions) RevokeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func (m *MockSessions) RevokeAllForAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) error {
	args := m.Called(ctx, tx, accountID)
	return args.Error(0)
}

func (m *MockSessions) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*identity.SessionRecord, error) {
	args := m.Called(ctx, accountID)
	if recs, ok := args.Get(0).([]*identity.SessionRecord); ok {
		return recs, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockTokenService implements identity.TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) GenerateAccess(id identity.Identity, sessionID string) (string, error) {
	args := m.Called(id, sessionID)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) GenerateRefresh(sessionID string) (string, error) {
	args := m.Called(sessionID)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) GenerateReset(accountID string) (string, error) {
	args := m.Called(accountID)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) Reissue(claims identity.AuthClaims) (string, error) {
	args := m.Called(claims)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) Validate(tokenString string) (identity.AuthClaims, error) {
	args := m.Called(tokenString)
	if claims, ok := args.Get(0).(identity.AuthClaims); ok {
		return claims, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPasswordAuthenticator implements identity.PasswordAuthenticator
type MockPasswordAuthenticator struct {
	mock.Mock
}

func (m *MockPasswordAuthenticator) HashPassword(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordAuthenticator) ComparePasswordAndHash(password, hash string) error {
	args := m.Called(password, hash)
	return args.Error(0)
}

// MockMailer implements identity.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, to, subject, body string) error {
	args := m.Called(ctx, to, subject, body)
	return args.Error(0)
}

// MockActivitySink implements identity.ActivitySink
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event identity.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
