package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	searchDefaultLimit = 25
	searchMaxLimit     = 100
)

type SearchAccountsMessage struct {
	ActorRole  string `json:"-"`
	Query      string `json:"query"`
	Limit      int    `json:"limit"`
	Page       int    `json:"page"`
	OnResponse func(resp *SearchAccountsResponse)
}

func (p SearchAccountsMessage) Type() string { return "account.search" }

type SearchAccountsResponse struct {
	Accounts []*Account `json:"accounts"`
	Page     int        `json:"page"`
	Limit    int        `json:"limit"`
	// Total is only counted on the first page, later pages return -1.
	Total int `json:"total"`
}

// SearchAccountsHandler serves the admin listing. Matches against name and
// email, newest first.
type SearchAccountsHandler struct {
	repo   RepositoryManager
	logger Logger
}

func NewSearchAccountsHandler(repo RepositoryManager) *SearchAccountsHandler {
	return &SearchAccountsHandler{
		repo:   repo,
		logger: defLogger{},
	}
}

func (h *SearchAccountsHandler) WithLogger(logger Logger) *SearchAccountsHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *SearchAccountsHandler) Execute(ctx context.Context, event SearchAccountsMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account search",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SearchAccountsHandler) execute(ctx context.Context, event SearchAccountsMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if !AccountRole(event.ActorRole).IsAdmin() {
		return ErrAdminRequired
	}

	limit := event.Limit
	if limit <= 0 {
		limit = searchDefaultLimit
	}
	if limit > searchMaxLimit {
		limit = searchMaxLimit
	}

	page := event.Page
	if page <= 0 {
		page = 1
	}

	accounts, err := h.repo.Accounts().Search(ctx, limit, page, event.Query)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account search failed")
	}

	total := -1
	if page == 1 {
		total, err = h.repo.Accounts().CountSearch(ctx, event.Query)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "account count failed")
		}
	}

	if event.OnResponse != nil {
		event.OnResponse(&SearchAccountsResponse{
			Accounts: accounts,
			Page:     page,
			Limit:    limit,
			Total:    total,
		})
	}

	return nil
}
