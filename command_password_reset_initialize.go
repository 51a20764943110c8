package identity

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type InitializePasswordResetMessage struct {
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Account email."`
	BaseURL    string `json:"-"`
	OnResponse func(resp *InitializePasswordResetResponse)
}

func (p InitializePasswordResetMessage) Type() string { return "account.password_reset" }

type InitializePasswordResetResponse struct {
	AccountID string
	Token     string
	Success   bool
}

// InitializePasswordResetHandler issues a short lived reset token and mails
// the reset link to the account holder.
type InitializePasswordResetHandler struct {
	repo     RepositoryManager
	tokens   TokenService
	mailer   Mailer
	activity ActivitySink
	logger   Logger
}

func NewInitializePasswordResetHandler(repo RepositoryManager, tokens TokenService, mailer Mailer) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{
		repo:     repo,
		tokens:   tokens,
		mailer:   mailer,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

func (h *InitializePasswordResetHandler) WithActivitySink(sink ActivitySink) *InitializePasswordResetHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	resp := &InitializePasswordResetResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	account, err := h.repo.Accounts().GetByEmail(ctx, event.Email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrResetNotPermitted
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for password reset")
	}

	if account.Status != AccountStatusActive {
		return ErrAccountNotActive
	}

	token, err := h.tokens.GenerateReset(account.ID.String())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mint password reset token")
	}

	if err := h.deliver(ctx, account.Email, event.BaseURL, token); err != nil {
		return err
	}

	resp.AccountID = account.ID.String()
	resp.Token = token
	resp.Success = true

	h.recordActivity(ctx, account)

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *InitializePasswordResetHandler) deliver(ctx context.Context, email, baseURL, token string) error {
	ctx, cancel := context.WithTimeout(ctx, MailSendTimeout)
	defer cancel()

	link := fmt.Sprintf("%s/auth/form/reset-password?token=%s", baseURL, token)
	body := fmt.Sprintf("Follow this link to choose a new password:\n\n%s\n\nThe link expires shortly. If you did not request a reset you can ignore this message.", link)

	if err := h.mailer.Send(ctx, email, "Reset your password", body); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to send password reset email")
	}

	return nil
}

func (h *InitializePasswordResetHandler) recordActivity(ctx context.Context, account *Account) {
	event := ActivityEvent{
		EventType: ActivityEventPasswordResetRequest,
		Actor: ActorRef{
			ID:   account.ID.String(),
			Type: "account",
		},
		AccountID:  account.ID.String(),
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during password reset request: %v", err)
	}
}
