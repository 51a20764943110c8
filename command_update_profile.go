package identity

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UpdateProfileMessage carries a partial profile update. Nil fields are left
// untouched, a pointer to the zero value clears the column.
type UpdateProfileMessage struct {
	AccountID   uuid.UUID `json:"-"`
	Name        *string   `json:"name"`
	Email       *string   `json:"email"`
	Phone       *string   `json:"phone"`
	Address     *string   `json:"address"`
	DateOfBirth *string   `json:"date_of_birth"`
	OnResponse  func(account *Account)
}

func (e UpdateProfileMessage) Type() string { return "account.profile.update" }

type UpdateProfileHandler struct {
	repo     RepositoryManager
	activity ActivitySink
	logger   Logger
}

func NewUpdateProfileHandler(repo RepositoryManager) *UpdateProfileHandler {
	return &UpdateProfileHandler{
		repo:     repo,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

func (h *UpdateProfileHandler) WithActivitySink(sink ActivitySink) *UpdateProfileHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

func (h *UpdateProfileHandler) WithLogger(logger Logger) *UpdateProfileHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *UpdateProfileHandler) Execute(ctx context.Context, event UpdateProfileMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during profile update",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdateProfileHandler) execute(ctx context.Context, event UpdateProfileMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	fields, err := h.buildFields(event)
	if err != nil {
		return err
	}

	if len(fields) == 0 {
		return ErrEmptyUpdate
	}

	account := &Account{}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current, err := h.repo.Accounts().GetByIDTx(ctx, tx, event.AccountID.String())
		if err != nil {
			return err
		}

		if current.Status != AccountStatusActive {
			return ErrAccountNotActive
		}

		if email, ok := fields["email"].(string); ok && email != current.Email {
			taken, err := h.repo.Accounts().IdentifierTakenTx(ctx, tx, email, "", current.ID)
			if err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
			}
			if taken {
				return ErrDuplicateIdentity
			}
		}

		if phone, ok := fields["phone"].(string); ok && phone != "" && phone != current.Phone {
			taken, err := h.repo.Accounts().PhoneTakenTx(ctx, tx, phone, current.ID)
			if err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check phone availability")
			}
			if taken {
				return ErrDuplicateIdentity
			}
		}

		account, err = h.repo.Accounts().UpdateFieldsTx(ctx, tx, current.ID, fields)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to apply profile update")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "profile update transaction failed")
	}

	h.recordActivity(ctx, account, fields)

	if event.OnResponse != nil {
		event.OnResponse(account)
	}

	return nil
}

func (h *UpdateProfileHandler) buildFields(event UpdateProfileMessage) (map[string]any, error) {
	fields := map[string]any{}

	if event.Name != nil {
		fields["name"] = *event.Name
	}

	if event.Email != nil {
		fields["email"] = strings.ToLower(strings.TrimSpace(*event.Email))
	}

	if event.Phone != nil {
		phone, err := NormalizePhone(*event.Phone)
		if err != nil {
			return nil, err
		}
		fields["phone"] = phone
	}

	if event.Address != nil {
		fields["address"] = *event.Address
	}

	if event.DateOfBirth != nil {
		if *event.DateOfBirth == "" {
			fields["date_of_birth"] = nil
		} else {
			dob, err := time.Parse("2006-01-02", *event.DateOfBirth)
			if err != nil {
				return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid date of birth, expected YYYY-MM-DD")
			}
			fields["date_of_birth"] = dob
		}
	}

	return fields, nil
}

func (h *UpdateProfileHandler) recordActivity(ctx context.Context, account *Account, fields map[string]any) {
	if account == nil {
		return
	}

	changed := make([]string, 0, len(fields))
	for name := range fields {
		changed = append(changed, name)
	}

	event := ActivityEvent{
		EventType: ActivityEventProfileUpdated,
		Actor: ActorRef{
			ID:   account.ID.String(),
			Type: "account",
		},
		AccountID: account.ID.String(),
		Metadata: map[string]any{
			"fields": changed,
		},
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during profile update: %v", err)
	}
}
