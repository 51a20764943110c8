package identity

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

type RegisterAccountMessage struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	DateOfBirth string `json:"date_of_birth"`
	Role        string `json:"role"`
	Password    string `json:"password"`
	UseHashid   bool
	OnResponse  func(account *Account)
}

func (e RegisterAccountMessage) Type() string { return "account.register" }

// RegisterAccountHandler creates a new account. Registration never opens a
// session, the caller still has to log in.
type RegisterAccountHandler struct {
	repo     RepositoryManager
	activity ActivitySink
	logger   Logger
}

func NewRegisterAccountHandler(repo RepositoryManager) *RegisterAccountHandler {
	return &RegisterAccountHandler{
		repo:     repo,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithActivitySink sets the sink used to emit registration events.
func (h *RegisterAccountHandler) WithActivitySink(sink ActivitySink) *RegisterAccountHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RegisterAccountHandler) WithLogger(logger Logger) *RegisterAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterAccountHandler) Execute(ctx context.Context, event RegisterAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterAccountHandler) execute(ctx context.Context, event RegisterAccountMessage) error {
	account := &Account{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		phone, err := NormalizePhone(event.Phone)
		if err != nil {
			return err
		}

		taken, err := h.repo.Accounts().IdentifierTakenTx(ctx, tx, event.Email, phone, account.ID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check identifier availability")
		}

		if taken {
			return ErrDuplicateIdentity
		}

		account.PasswordHash = hash
		account.Email = strings.ToLower(strings.TrimSpace(event.Email))
		account.Phone = phone
		account.Name = event.Name
		account.Address = event.Address
		account.Status = AccountStatusActive

		role, ok := ParseRole(event.Role)
		if !ok {
			role = RoleUser
		}
		account.Role = role

		if event.DateOfBirth != "" {
			dob, err := time.Parse("2006-01-02", event.DateOfBirth)
			if err != nil {
				return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid date of birth, expected YYYY-MM-DD")
			}
			account.DateOfBirth = &dob
		}

		if event.UseHashid {
			if id, err := hashid.NewUUID(account.Email); err == nil {
				account.ID = id
			}
		}

		if account, err = h.repo.Accounts().CreateTx(ctx, tx, account); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create account")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account registration transaction failed")
	}

	h.recordActivity(ctx, account)

	if event.OnResponse != nil {
		event.OnResponse(account)
	}

	return nil
}

func (h *RegisterAccountHandler) recordActivity(ctx context.Context, account *Account) {
	if account == nil {
		return
	}

	event := ActivityEvent{
		EventType: ActivityEventAccountRegistered,
		Actor: ActorRef{
			ID:   account.ID.String(),
			Type: "account",
		},
		AccountID:  account.ID.String(),
		ToStatus:   account.Status,
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during registration: %v", err)
	}
}

// NormalizePhone canonicalizes a phone number to E.164. Empty input is
// allowed, phone is an optional identifier.
func NormalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	num, err := phonenumbers.Parse(raw, "US")
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid phone number").
			WithMetadata(map[string]any{"phone": raw})
	}

	if !phonenumbers.IsValidNumber(num) {
		return "", goerrors.New("invalid phone number", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"phone": raw})
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}
