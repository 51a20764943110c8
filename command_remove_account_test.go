package identity_test

import (
	"context"
	"testing"

	identity "github.com/goliatone/go-identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRemoveAccountHandler(t *testing.T) {
	ctx := context.Background()

	setup := func() (*MockRepositoryManager, *MockAccounts, *MockSessions) {
		repo := &MockRepositoryManager{}
		accounts := &MockAccounts{}
		sessions := &MockSessions{}
		repo.On("Accounts").Return(accounts)
		repo.On("Sessions").Return(sessions)
		return repo, accounts, sessions
	}

	t.Run("self removal deletes the account and revokes sessions", func(t *testing.T) {
		repo, accounts, sessions := setup()
		expectRunInTx(repo).Once()

		accountID := uuid.New()
		current := &identity.Account{
			ID:     accountID,
			Role:   identity.RoleUser,
			Status: identity.AccountStatusActive,
		}

		accounts.On("GetByIDTx", mock.Anything, mock.Anything, accountID.String()).
			Return(current, nil).Once()
		accounts.On("UpdateStatusTx", mock.Anything, mock.Anything, accountID, identity.AccountStatusDeleted).
			Return(&identity.Account{ID: accountID, Status: identity.AccountStatusDeleted}, nil).Once()
		sessions.On("RevokeAllForAccountTx", mock.Anything, mock.Anything, accountID).
			Return(nil).Once()

		event := identity.RemoveAccountMessage{
			ActorID:   accountID,
			ActorRole: string(identity.RoleUser),
			TargetID:  accountID,
			Reason:    "leaving",
		}

		require.NoError(t, identity.NewRemoveAccountHandler(repo).Execute(ctx, event))

		accounts.AssertExpectations(t)
		sessions.AssertExpectations(t)
	})

	t.Run("admin removal of another account suspends it", func(t *testing.T) {
		repo, accounts, sessions := setup()
		expectRunInTx(repo).Once()

		adminID := uuid.New()
		targetID := uuid.New()
		current := &identity.Account{
			ID:     targetID,
			Role:   identity.RoleUser,
			Status: identity.AccountStatusActive,
		}

		accounts.On("GetByIDTx", mock.Anything, mock.Anything, targetID.String()).
			Return(current, nil).Once()
		accounts.On("UpdateStatusTx", mock.Anything, mock.Anything, targetID, identity.AccountStatusSuspended).
			Return(&identity.Account{ID: targetID, Status: identity.AccountStatusSuspended}, nil).Once()
		sessions.On("RevokeAllForAccountTx", mock.Anything, mock.Anything, targetID).
			Return(nil).Once()

		var got *identity.Account
		event := identity.RemoveAccountMessage{
			ActorID:    adminID,
			ActorRole:  string(identity.RoleAdmin),
			TargetID:   targetID,
			Reason:     "policy violation",
			OnResponse: func(acct *identity.Account) { got = acct },
		}

		require.NoError(t, identity.NewRemoveAccountHandler(repo).Execute(ctx, event))
		require.NotNil(t, got)
		assert.Equal(t, identity.AccountStatusSuspended, got.Status)
	})

	t.Run("non admin cannot remove another account", func(t *testing.T) {
		repo, accounts, _ := setup()

		event := identity.RemoveAccountMessage{
			ActorID:   uuid.New(),
			ActorRole: string(identity.RoleUser),
			TargetID:  uuid.New(),
		}

		err := identity.NewRemoveAccountHandler(repo).Execute(ctx, event)
		assert.ErrorIs(t, err, identity.ErrAdminRequired)

		accounts.AssertNotCalled(t, "GetByIDTx", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("admin cannot remove themselves", func(t *testing.T) {
		repo, _, _ := setup()

		adminID := uuid.New()
		event := identity.RemoveAccountMessage{
			ActorID:   adminID,
			ActorRole: string(identity.RoleAdmin),
			TargetID:  adminID,
		}

		err := identity.NewRemoveAccountHandler(repo).Execute(ctx, event)
		assert.ErrorIs(t, err, identity.ErrAdminSelfDelete)
	})

	t.Run("already deleted target is terminal", func(t *testing.T) {
		repo, accounts, sessions := setup()
		expectRunInTx(repo).Once()

		targetID := uuid.New()
		accounts.On("GetByIDTx", mock.Anything, mock.Anything, targetID.String()).
			Return(&identity.Account{ID: targetID, Status: identity.AccountStatusDeleted}, nil).Once()

		event := identity.RemoveAccountMessage{
			ActorID:   uuid.New(),
			ActorRole: string(identity.RoleAdmin),
			TargetID:  targetID,
		}

		err := identity.NewRemoveAccountHandler(repo).Execute(ctx, event)
		assert.ErrorIs(t, err, identity.ErrTerminalState)

		sessions.AssertNotCalled(t, "RevokeAllForAccountTx", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("status change event is emitted", func(t *testing.T) {
		repo, accounts, sessions := setup()
		sink := &MockActivitySink{}
		expectRunInTx(repo).Once()

		accountID := uuid.New()
		accounts.On("GetByIDTx", mock.Anything, mock.Anything, accountID.String()).
			Return(&identity.Account{ID: accountID, Status: identity.AccountStatusActive}, nil).Once()
		accounts.On("UpdateStatusTx", mock.Anything, mock.Anything, accountID, identity.AccountStatusDeleted).
			Return(&identity.Account{ID: accountID, Status: identity.AccountStatusDeleted}, nil).Once()
		sessions.On("RevokeAllForAccountTx", mock.Anything, mock.Anything, accountID).
			Return(nil).Once()

		sink.On("Record", mock.Anything, mock.MatchedBy(func(evt identity.ActivityEvent) bool {
			return evt.EventType == identity.ActivityEventAccountStatusChanged &&
				evt.FromStatus == identity.AccountStatusActive &&
				evt.ToStatus == identity.AccountStatusDeleted &&
				evt.AccountID == accountID.String()
		})).Return(nil).Once()

		event := identity.RemoveAccountMessage{
			ActorID:   accountID,
			ActorRole: string(identity.RoleUser),
			TargetID:  accountID,
		}

		handler := identity.NewRemoveAccountHandler(repo).WithActivitySink(sink)
		require.NoError(t, handler.Execute(ctx, event))
		sink.AssertExpectations(t)
	})
}
