package identity

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Accounts is the persistence surface for account rows. Finders that take an
// email or phone only consider non-deleted accounts: soft deletion frees both
// identifiers for reuse.
type Accounts interface {
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)
	Create(ctx context.Context, record *Account) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error)
	IdentifierTakenTx(ctx context.Context, tx bun.IDB, email, phone string, excludeID uuid.UUID) (bool, error)
	PhoneTakenTx(ctx context.Context, tx bun.IDB, phone string, excludeID uuid.UUID) (bool, error)
	UpdateFieldsTx(ctx context.Context, tx bun.IDB, id uuid.UUID, fields map[string]any) (*Account, error)
	UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status AccountStatus, opts ...StatusUpdateOption) (*Account, error)
	ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error
	Search(ctx context.Context, limit, page int, query string) ([]*Account, error)
	CountSearch(ctx context.Context, query string) (int, error)
}

type accounts struct {
	repository.Repository[*Account]
	db *bun.DB
}

var _ Accounts = (*accounts)(nil)

// NewAccountsRepository builds the bun-backed Accounts repository
func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &accounts{
		Repository: repo,
		db:         db,
	}
}

func (a *accounts) GetByID(ctx context.Context, id string) (*Account, error) {
	return a.GetByIDTx(ctx, a.db, id)
}

func (a *accounts) GetByIDTx(ctx context.Context, tx bun.IDB, id string) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", strings.TrimSpace(id)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrIdentityNotFound.WithMetadata(map[string]any{"id": id})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load account")
	}

	return record, nil
}

func (a *accounts) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *accounts) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where("lower(?TableAlias.email) = lower(?)", strings.TrimSpace(email)).
		Where("?TableAlias.status != ?", AccountStatusDeleted).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrIdentityNotFound.WithMetadata(map[string]any{"email": email})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load account")
	}

	return record, nil
}

func (a *accounts) Create(ctx context.Context, record *Account) (*Account, error) {
	return a.CreateTx(ctx, a.db, record)
}

func (a *accounts) CreateTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error) {
	prepareAccountDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record)
}

// IdentifierTakenTx reports whether a non-deleted account other than
// excludeID already holds the email or the phone.
func (a *accounts) IdentifierTakenTx(ctx context.Context, tx bun.IDB, email, phone string, excludeID uuid.UUID) (bool, error) {
	q := tx.NewSelect().
		Model((*Account)(nil)).
		Where("?TableAlias.status != ?", AccountStatusDeleted).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			q = q.Where("lower(?TableAlias.email) = lower(?)", strings.TrimSpace(email))
			if phone != "" {
				q = q.WhereOr("?TableAlias.phone = ?", phone)
			}
			return q
		})

	if excludeID != uuid.Nil {
		q = q.Where("?TableAlias.id != ?", excludeID)
	}

	exists, err := q.Exists(ctx)
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check identifier uniqueness")
	}

	return exists, nil
}

func (a *accounts) PhoneTakenTx(ctx context.Context, tx bun.IDB, phone string, excludeID uuid.UUID) (bool, error) {
	q := tx.NewSelect().
		Model((*Account)(nil)).
		Where("?TableAlias.status != ?", AccountStatusDeleted).
		Where("?TableAlias.phone = ?", phone)

	if excludeID != uuid.Nil {
		q = q.Where("?TableAlias.id != ?", excludeID)
	}

	exists, err := q.Exists(ctx)
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check phone uniqueness")
	}

	return exists, nil
}

// UpdateFieldsTx applies a partial update: only the supplied columns change.
func (a *accounts) UpdateFieldsTx(ctx context.Context, tx bun.IDB, id uuid.UUID, fields map[string]any) (*Account, error) {
	if len(fields) == 0 {
		return nil, ErrEmptyUpdate
	}

	record := &Account{}
	q := tx.NewUpdate().
		Model(record).
		Where("?TableAlias.id = ?", id)

	for column, value := range fields {
		q = q.Set("? = ?", bun.Ident(column), value)
	}

	q = q.Set("updated_at = ?", time.Now()).Returning("*")

	res, err := q.Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update account fields")
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return nil, ErrIdentityNotFound.WithMetadata(map[string]any{"id": id.String()})
	}

	return record, nil
}

func (a *accounts) UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status AccountStatus, opts ...StatusUpdateOption) (*Account, error) {
	record := &Account{
		ID:     id,
		Status: status,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(record)
		}
	}

	updated, err := a.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(id.String()))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrIdentityNotFound.WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update account status")
	}

	return updated, nil
}

var resetAccountPasswordSQL = `UPDATE "accounts" AS "acct"
SET
	"password_hash" = ?,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"acct"."status" = 'active'
AND (
	"acct"."id" = ?
) RETURNING *;`

func (a *accounts) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	res, err := a.Repository.RawTx(ctx, tx, resetAccountPasswordSQL, passwordHash, id.String())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to reset password")
	}

	if len(res) == 0 {
		return ErrIdentityNotFound.WithMetadata(map[string]any{"id": id.String()})
	}

	return nil
}

// Search runs a paginated substring match against name and email,
// case-insensitive, skipping deleted accounts.
func (a *accounts) Search(ctx context.Context, limit, page int, query string) ([]*Account, error) {
	if limit <= 0 {
		limit = 10
	}
	if page <= 0 {
		page = 1
	}

	records := []*Account{}
	err := a.searchQuery(a.db, query).
		Model(&records).
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Scan(ctx)

	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to search accounts")
	}

	return records, nil
}

func (a *accounts) CountSearch(ctx context.Context, query string) (int, error) {
	count, err := a.searchQuery(a.db, query).
		Model((*Account)(nil)).
		Count(ctx)

	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to count accounts")
	}

	return count, nil
}

func (a *accounts) searchQuery(tx bun.IDB, query string) *bun.SelectQuery {
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	return tx.NewSelect().
		Where("?TableAlias.status != ?", AccountStatusDeleted).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("lower(?TableAlias.name) LIKE ?", pattern).
				WhereOr("lower(?TableAlias.email) LIKE ?", pattern)
		})
}

// StatusUpdateOption mutates the account record before persisting status changes.
type StatusUpdateOption func(*Account)

// WithSuspendedAt sets the SuspendedAt timestamp during a status transition.
func WithSuspendedAt(at *time.Time) StatusUpdateOption {
	return func(a *Account) {
		a.SuspendedAt = at
	}
}

// WithDeletedAt sets the DeletedAt timestamp during a status transition.
func WithDeletedAt(at *time.Time) StatusUpdateOption {
	return func(a *Account) {
		a.DeletedAt = at
	}
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleUser
	}

	record.EnsureStatus()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
