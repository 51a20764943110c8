package identity_test

import (
	"context"
	"testing"
	"time"

	identity "github.com/goliatone/go-identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAccountStateMachineTransition(t *testing.T) {
	ctx := context.Background()
	actor := identity.ActorRef{ID: uuid.New().String(), Type: "account"}

	t.Run("active to suspended records the suspension time", func(t *testing.T) {
		accounts := &MockAccounts{}
		now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		sm := identity.NewAccountStateMachine(accounts, identity.WithStateMachineClock(func() time.Time { return now }))

		account := &identity.Account{ID: uuid.New(), Status: identity.AccountStatusActive}
		accounts.On("UpdateStatusTx", mock.Anything, mock.Anything, account.ID, identity.AccountStatusSuspended).
			Return(&identity.Account{
				ID:          account.ID,
				Status:      identity.AccountStatusSuspended,
				SuspendedAt: &now,
			}, nil).Once()

		updated, err := sm.Transition(ctx, nil, actor, account, identity.AccountStatusSuspended,
			identity.WithTransitionReason("policy violation"))
		require.NoError(t, err)
		assert.Equal(t, identity.AccountStatusSuspended, updated.Status)
		require.NotNil(t, updated.SuspendedAt)
		assert.Equal(t, now, *updated.SuspendedAt)

		accounts.AssertExpectations(t)
	})

	t.Run("active to deleted records the deletion time", func(t *testing.T) {
		accounts := &MockAccounts{}
		now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		sm := identity.NewAccountStateMachine(accounts, identity.WithStateMachineClock(func() time.Time { return now }))

		account := &identity.Account{ID: uuid.New(), Status: identity.AccountStatusActive}
		accounts.On("UpdateStatusTx", mock.Anything, mock.Anything, account.ID, identity.AccountStatusDeleted).
			Return(&identity.Account{
				ID:        account.ID,
				Status:    identity.AccountStatusDeleted,
				DeletedAt: &now,
			}, nil).Once()

		updated, err := sm.Transition(ctx, nil, actor, account, identity.AccountStatusDeleted)
		require.NoError(t, err)
		assert.Equal(t, identity.AccountStatusDeleted, updated.Status)
		require.NotNil(t, updated.DeletedAt)
	})

	t.Run("suspended accounts cannot be reactivated", func(t *testing.T) {
		accounts := &MockAccounts{}
		sm := identity.NewAccountStateMachine(accounts)

		account := &identity.Account{ID: uuid.New(), Status: identity.AccountStatusSuspended}

		_, err := sm.Transition(ctx, nil, actor, account, identity.AccountStatusActive)
		assert.ErrorIs(t, err, identity.ErrInvalidTransition)

		accounts.AssertNotCalled(t, "UpdateStatusTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("deleted is terminal", func(t *testing.T) {
		accounts := &MockAccounts{}
		sm := identity.NewAccountStateMachine(accounts)

		account := &identity.Account{ID: uuid.New(), Status: identity.AccountStatusDeleted}

		_, err := sm.Transition(ctx, nil, actor, account, identity.AccountStatusActive)
		assert.ErrorIs(t, err, identity.ErrTerminalState)
	})

	t.Run("force bypasses the transition table", func(t *testing.T) {
		accounts := &MockAccounts{}
		sm := identity.NewAccountStateMachine(accounts)

		account := &identity.Account{ID: uuid.New(), Status: identity.AccountStatusSuspended}
		accounts.On("UpdateStatusTx", mock.Anything, mock.Anything, account.ID, identity.AccountStatusActive).
			Return(&identity.Account{ID: account.ID, Status: identity.AccountStatusActive}, nil).Once()

		updated, err := sm.Transition(ctx, nil, actor, account, identity.AccountStatusActive,
			identity.WithForceTransition())
		require.NoError(t, err)
		assert.Equal(t, identity.AccountStatusActive, updated.Status)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		accounts := &MockAccounts{}
		sm := identity.NewAccountStateMachine(accounts)

		account := &identity.Account{ID: uuid.New(), Status: identity.AccountStatusActive}
		updated, err := sm.Transition(ctx, nil, actor, account, identity.AccountStatusActive)
		require.NoError(t, err)
		assert.Same(t, account, updated)

		accounts.AssertNotCalled(t, "UpdateStatusTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown target status", func(t *testing.T) {
		sm := identity.NewAccountStateMachine(&MockAccounts{})
		account := &identity.Account{ID: uuid.New(), Status: identity.AccountStatusActive}

		_, err := sm.Transition(ctx, nil, actor, account, identity.AccountStatus("archived"))
		assert.ErrorIs(t, err, identity.ErrInvalidTransition)
	})

	t.Run("nil account", func(t *testing.T) {
		sm := identity.NewAccountStateMachine(&MockAccounts{})
		_, err := sm.Transition(ctx, nil, actor, nil, identity.AccountStatusSuspended)
		assert.ErrorIs(t, err, identity.ErrInvalidTransition)
	})
}

func TestAccountStateMachineCurrentStatus(t *testing.T) {
	sm := identity.NewAccountStateMachine(&MockAccounts{})

	assert.Equal(t, identity.AccountStatus(""), sm.CurrentStatus(nil))
	assert.Equal(t, identity.AccountStatusActive, sm.CurrentStatus(&identity.Account{}))
	assert.Equal(t, identity.AccountStatusSuspended, sm.CurrentStatus(&identity.Account{Status: identity.AccountStatusSuspended}))
}
