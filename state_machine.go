package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	textCodeInvalidTransition = "INVALID_ACCOUNT_STATE_TRANSITION"
	textCodeTerminalState     = "TERMINAL_ACCOUNT_STATE"
)

// ErrInvalidTransition is returned when a requested status change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid account state transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrTerminalState is returned when attempting to move away from deleted.
var ErrTerminalState = goerrors.New("account state is terminal", goerrors.CategoryConflict).
	WithTextCode(textCodeTerminalState).
	WithCode(goerrors.CodeConflict)

// ActorRef identifies who/what triggered a transition.
type ActorRef struct {
	ID   string
	Type string
}

// TransitionMetadata captures extra context for a transition.
type TransitionMetadata struct {
	Reason   string
	Metadata map[string]any
}

// TransitionOption customizes state machine behavior.
type TransitionOption func(*transitionOptions)

// AccountStateMachine defines lifecycle operations for accounts.
type AccountStateMachine interface {
	Transition(ctx context.Context, tx bun.IDB, actor ActorRef, account *Account, target AccountStatus, opts ...TransitionOption) (*Account, error)
	CurrentStatus(account *Account) AccountStatus
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*accountStateMachine)

// WithStateMachineClock injects a custom clock (useful for tests).
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *accountStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithStateMachineLogger overrides the logger.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *accountStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// WithTransitionReason sets the human-readable reason for the transition.
func WithTransitionReason(reason string) TransitionOption {
	return func(opts *transitionOptions) {
		opts.metadata.Reason = reason
	}
}

// WithTransitionMetadata merges metadata into the transition context.
func WithTransitionMetadata(metadata map[string]any) TransitionOption {
	return func(opts *transitionOptions) {
		if len(metadata) == 0 {
			return
		}
		if opts.metadata.Metadata == nil {
			opts.metadata.Metadata = make(map[string]any, len(metadata))
		}
		for k, v := range metadata {
			opts.metadata.Metadata[k] = v
		}
	}
}

// WithForceTransition bypasses validation rules (use sparingly).
func WithForceTransition() TransitionOption {
	return func(opts *transitionOptions) {
		opts.force = true
	}
}

// accountStatusStore is the slice of the Accounts repository the state
// machine needs to persist transitions.
type accountStatusStore interface {
	UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status AccountStatus, opts ...StatusUpdateOption) (*Account, error)
}

// NewAccountStateMachine returns the default implementation backed by the
// provided status store. Reactivation of suspended accounts is deliberately
// absent from the transition table; it is not implemented anywhere in the
// service yet.
func NewAccountStateMachine(accounts accountStatusStore, opts ...StateMachineOption) AccountStateMachine {
	sm := &accountStateMachine{
		accounts: accounts,
		transitions: map[AccountStatus]map[AccountStatus]struct{}{
			AccountStatusActive: {
				AccountStatusSuspended: {},
				AccountStatusDeleted:   {},
			},
			AccountStatusSuspended: {},
		},
		now:    time.Now,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type accountStateMachine struct {
	accounts    accountStatusStore
	transitions map[AccountStatus]map[AccountStatus]struct{}
	now         func() time.Time
	logger      Logger
}

type transitionOptions struct {
	metadata TransitionMetadata
	force    bool
}

func (sm *accountStateMachine) Transition(ctx context.Context, tx bun.IDB, actor ActorRef, account *Account, target AccountStatus, opts ...TransitionOption) (*Account, error) {
	if account == nil {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"target": target,
			"reason": "account is nil",
		})
	}

	account.EnsureStatus()
	from := account.Status
	if target == "" || !target.IsValid() {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"reason": "target status is empty or unknown",
		})
	}

	if from == target {
		return account, nil
	}

	options := &transitionOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	if from == AccountStatusDeleted && !options.force {
		return nil, ErrTerminalState.WithMetadata(map[string]any{
			"from": from,
			"to":   target,
		})
	}

	if !options.force && !sm.canTransition(from, target) {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"from": from,
			"to":   target,
		})
	}

	statusOpts := sm.buildStatusOptions(target)

	updated, err := sm.accounts.UpdateStatusTx(ctx, tx, account.ID, target, statusOpts...)
	if err != nil {
		return nil, err
	}

	account.Status = target
	if updated != nil {
		account.SuspendedAt = updated.SuspendedAt
		account.DeletedAt = updated.DeletedAt
	}

	sm.logger.Info("account status changed",
		"account_id", account.ID.String(),
		"actor", actor.ID,
		"from", from,
		"to", target,
		"reason", options.metadata.Reason,
	)

	return account, nil
}

func (sm *accountStateMachine) CurrentStatus(account *Account) AccountStatus {
	if account == nil {
		return ""
	}
	account.EnsureStatus()
	return account.Status
}

func (sm *accountStateMachine) canTransition(from, to AccountStatus) bool {
	targets, ok := sm.transitions[from]
	if !ok {
		return false
	}
	_, allowed := targets[to]
	return allowed
}

func (sm *accountStateMachine) buildStatusOptions(target AccountStatus) []StatusUpdateOption {
	now := sm.now()

	switch target {
	case AccountStatusSuspended:
		return []StatusUpdateOption{WithSuspendedAt(&now)}
	case AccountStatusDeleted:
		return []StatusUpdateOption{WithDeletedAt(&now)}
	default:
		return nil
	}
}
