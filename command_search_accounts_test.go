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

func TestSearchAccountsHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("first page carries the total", func(t *testing.T) {
		repo := &MockRepositoryManager{}
		accounts := &MockAccounts{}
		repo.On("Accounts").Return(accounts)

		found := []*identity.Account{
			{ID: uuid.New(), Name: "Pepe Rone"},
			{ID: uuid.New(), Name: "Pepe Roni"},
		}
		accounts.On("Search", mock.Anything, 25, 1, "pepe").
			Return(found, nil).Once()
		accounts.On("CountSearch", mock.Anything, "pepe").
			Return(42, nil).Once()

		var resp *identity.SearchAccountsResponse
		event := identity.SearchAccountsMessage{
			ActorRole:  string(identity.RoleAdmin),
			Query:      "pepe",
			OnResponse: func(r *identity.SearchAccountsResponse) { resp = r },
		}

		require.NoError(t, identity.NewSearchAccountsHandler(repo).Execute(ctx, event))

		require.NotNil(t, resp)
		assert.Len(t, resp.Accounts, 2)
		assert.Equal(t, 1, resp.Page)
		assert.Equal(t, 25, resp.Limit)
		assert.Equal(t, 42, resp.Total)
	})

	t.Run("later pages skip the count", func(t *testing.T) {
		repo := &MockRepositoryManager{}
		accounts := &MockAccounts{}
		repo.On("Accounts").Return(accounts)

		accounts.On("Search", mock.Anything, 10, 3, "").
			Return([]*identity.Account{}, nil).Once()

		var resp *identity.SearchAccountsResponse
		event := identity.SearchAccountsMessage{
			ActorRole:  string(identity.RoleAdmin),
			Limit:      10,
			Page:       3,
			OnResponse: func(r *identity.SearchAccountsResponse) { resp = r },
		}

		require.NoError(t, identity.NewSearchAccountsHandler(repo).Execute(ctx, event))

		require.NotNil(t, resp)
		assert.Equal(t, -1, resp.Total)
		accounts.AssertNotCalled(t, "CountSearch", mock.Anything, mock.Anything)
	})

	t.Run("limit is clamped", func(t *testing.T) {
		repo := &MockRepositoryManager{}
		accounts := &MockAccounts{}
		repo.On("Accounts").Return(accounts)

		accounts.On("Search", mock.Anything, 100, 1, "").
			Return([]*identity.Account{}, nil).Once()
		accounts.On("CountSearch", mock.Anything, "").
			Return(0, nil).Once()

		event := identity.SearchAccountsMessage{
			ActorRole: string(identity.RoleAdmin),
			Limit:     5000,
		}

		require.NoError(t, identity.NewSearchAccountsHandler(repo).Execute(ctx, event))
		accounts.AssertExpectations(t)
	})

	t.Run("non admin actors are rejected", func(t *testing.T) {
		repo := &MockRepositoryManager{}
		accounts := &MockAccounts{}
		repo.On("Accounts").Return(accounts)

		event := identity.SearchAccountsMessage{
			ActorRole: string(identity.RoleUser),
			Query:     "pepe",
		}

		err := identity.NewSearchAccountsHandler(repo).Execute(ctx, event)
		assert.ErrorIs(t, err, identity.ErrAdminRequired)

		accounts.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
