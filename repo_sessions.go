package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Sessions is the persistence surface for session records. Records are an
// audit trail: logout and bulk revocation flip status, nothing is deleted.
type Sessions interface {
	Create(ctx context.Context, record *SessionRecord) (*SessionRecord, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *SessionRecord) (*SessionRecord, error)
	GetByID(ctx context.Context, id string) (*SessionRecord, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id string) (*SessionRecord, error)
	GetByToken(ctx context.Context, token string) (*SessionRecord, error)
	GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*SessionRecord, error)
	RotateTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string) error
	RevokeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
	RevokeAllForAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) error
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*SessionRecord, error)
}

type sessions struct {
	repository.Repository[*SessionRecord]
	db *bun.DB
}

var _ Sessions = (*sessions)(nil)

// NewSessionsRepository builds the bun-backed Sessions repository
func NewSessionsRepository(db *bun.DB) Sessions {
	repo := repository.NewRepository[*SessionRecord](db, repository.ModelHandlers[*SessionRecord]{
		NewRecord: func() *SessionRecord { return &SessionRecord{} },
		GetID: func(s *SessionRecord) uuid.UUID {
			if s == nil {
				return uuid.Nil
			}
			return s.ID
		},
		SetID: func(s *SessionRecord, id uuid.UUID) {
			if s != nil {
				s.ID = id
			}
		},
	})

	return &sessions{
		Repository: repo,
		db:         db,
	}
}

func (s *sessions) Create(ctx context.Context, record *SessionRecord) (*SessionRecord, error) {
	return s.CreateTx(ctx, s.db, record)
}

func (s *sessions) CreateTx(ctx context.Context, tx bun.IDB, record *SessionRecord) (*SessionRecord, error) {
	if record != nil {
		record.EnsureStatus()
		if record.ID == uuid.Nil {
			record.ID = uuid.New()
		}
	}
	return s.Repository.CreateTx(ctx, tx, record)
}

func (s *sessions) GetByID(ctx context.Context, id string) (*SessionRecord, error) {
	return s.GetByIDTx(ctx, s.db, id)
}

func (s *sessions) GetByIDTx(ctx context.Context, tx bun.IDB, id string) (*SessionRecord, error) {
	record := &SessionRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrSessionNotFound.WithMetadata(map[string]any{"id": id})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load session record")
	}

	return record, nil
}

func (s *sessions) GetByToken(ctx context.Context, token string) (*SessionRecord, error) {
	return s.GetByTokenTx(ctx, s.db, token)
}

// GetByTokenTx matches against the STORED token string, not the record id:
// a rotated-out token no longer matches anything even though its signature
// and expiry may still verify.
func (s *sessions) GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*SessionRecord, error) {
	record := &SessionRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.token = ?", token).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load session record")
	}

	return record, nil
}

// RotateTokenTx swaps the refresh token string in place, preserving the
// record identity.
func (s *sessions) RotateTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string) error {
	res, err := tx.NewUpdate().
		Model((*SessionRecord)(nil)).
		Set("token = ?", token).
		Set("updated_at = ?", time.Now()).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.status = ?", SessionStatusActive).
		Exec(ctx)

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to rotate session token")
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return ErrSessionRevoked
	}

	return nil
}

// RevokeTx marks a session no-longer-active. The transition is monotonic:
// revoking an already revoked record reports ErrSessionRevoked.
func (s *sessions) RevokeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	now := time.Now()
	res, err := tx.NewUpdate().
		Model((*SessionRecord)(nil)).
		Set("status = ?", SessionStatusRevoked).
		Set("revoked_at = ?", now).
		Set("updated_at = ?", now).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.status = ?", SessionStatusActive).
		Exec(ctx)

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to revoke session")
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return ErrSessionRevoked
	}

	return nil
}

// RevokeAllForAccountTx bulk-revokes every active session of an account.
// Callers run this inside the same transaction as the status change that
// triggered it, so a failure rolls both back together.
func (s *sessions) RevokeAllForAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) error {
	now := time.Now()
	_, err := tx.NewUpdate().
		Model((*SessionRecord)(nil)).
		Set("status = ?", SessionStatusRevoked).
		Set("revoked_at = ?", now).
		Set("updated_at = ?", now).
		Where("?TableAlias.account_id = ?", accountID).
		Where("?TableAlias.status = ?", SessionStatusActive).
		Exec(ctx)

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to revoke account sessions")
	}

	return nil
}

func (s *sessions) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*SessionRecord, error) {
	records := []*SessionRecord{}
	err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.account_id = ?", accountID).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list account sessions")
	}

	return records, nil
}
