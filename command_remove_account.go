package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RemoveAccountMessage closes an account. When the actor targets their own
// account it is marked deleted; when an admin targets someone else the
// account is suspended instead. Either way every open session for the
// target is revoked in the same transaction.
type RemoveAccountMessage struct {
	ActorID    uuid.UUID `json:"-"`
	ActorRole  string    `json:"-"`
	TargetID   uuid.UUID `json:"target_id"`
	Reason     string    `json:"reason"`
	OnResponse func(account *Account)
}

func (e RemoveAccountMessage) Type() string { return "account.remove" }

type RemoveAccountHandler struct {
	repo     RepositoryManager
	machine  AccountStateMachine
	activity ActivitySink
	logger   Logger
}

func NewRemoveAccountHandler(repo RepositoryManager) *RemoveAccountHandler {
	return &RemoveAccountHandler{
		repo:     repo,
		machine:  NewAccountStateMachine(repo.Accounts()),
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

func (h *RemoveAccountHandler) WithActivitySink(sink ActivitySink) *RemoveAccountHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

func (h *RemoveAccountHandler) WithLogger(logger Logger) *RemoveAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithStateMachine overrides the account state machine.
func (h *RemoveAccountHandler) WithStateMachine(machine AccountStateMachine) *RemoveAccountHandler {
	if machine != nil {
		h.machine = machine
	}
	return h
}

func (h *RemoveAccountHandler) Execute(ctx context.Context, event RemoveAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account removal",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RemoveAccountHandler) execute(ctx context.Context, event RemoveAccountMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	selfRemoval := event.ActorID == event.TargetID
	actorIsAdmin := AccountRole(event.ActorRole).IsAdmin()

	// Admins cannot remove themselves, someone else has to do it. Everyone
	// else can only remove themselves.
	if selfRemoval && actorIsAdmin {
		return ErrAdminSelfDelete
	}
	if !selfRemoval && !actorIsAdmin {
		return ErrAdminRequired
	}

	target := AccountStatusSuspended
	if selfRemoval {
		target = AccountStatusDeleted
	}

	actor := ActorRef{ID: event.ActorID.String(), Type: "account"}

	account := &Account{}
	var fromStatus AccountStatus

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current, err := h.repo.Accounts().GetByIDTx(ctx, tx, event.TargetID.String())
		if err != nil {
			return err
		}

		fromStatus = current.Status

		opts := []TransitionOption{}
		if event.Reason != "" {
			opts = append(opts, WithTransitionReason(event.Reason))
		}

		account, err = h.machine.Transition(ctx, tx, actor, current, target, opts...)
		if err != nil {
			return err
		}

		if err := h.repo.Sessions().RevokeAllForAccountTx(ctx, tx, account.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to revoke sessions for removed account")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account removal transaction failed")
	}

	h.recordActivity(ctx, actor, account, fromStatus)

	if event.OnResponse != nil {
		event.OnResponse(account)
	}

	return nil
}

func (h *RemoveAccountHandler) recordActivity(ctx context.Context, actor ActorRef, account *Account, from AccountStatus) {
	if account == nil {
		return
	}

	event := ActivityEvent{
		EventType:  ActivityEventAccountStatusChanged,
		Actor:      actor,
		AccountID:  account.ID.String(),
		FromStatus: from,
		ToStatus:   account.Status,
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during account removal: %v", err)
	}
}
