package identity

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// Controller exposes the account and session API over go-router. All
// endpoints speak JSON except the password reset form, which renders a
// template so the emailed link works in a browser.
type Controller struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Auther       SessionManager
	Tokens       TokenService
	Mailer       Mailer
	Config       Config
	BaseURL      string
	Routes       *ControllerRoutes
	Views        *ControllerViews
	ErrorHandler router.ErrorHandler
}

type ControllerRoutes struct {
	Register       string
	Login          string
	Refresh        string
	Logout         string
	Profile        string
	ForgetPassword string
	ResetForm      string
	ResetPassword  string
	ChangePassword string
	Users          string
}

type ControllerViews struct {
	ResetPassword string
}

type ControllerOption func(*Controller) *Controller

func WithControllerLogger(logger Logger) ControllerOption {
	return func(c *Controller) *Controller {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerMailer(mailer Mailer) ControllerOption {
	return func(c *Controller) *Controller {
		if mailer != nil {
			c.Mailer = mailer
		}
		return c
	}
}

func WithControllerBaseURL(baseURL string) ControllerOption {
	return func(c *Controller) *Controller {
		c.BaseURL = baseURL
		return c
	}
}

func WithControllerDebug(debug bool) ControllerOption {
	return func(c *Controller) *Controller {
		c.Debug = debug
		return c
	}
}

func NewController(repo RepositoryManager, auther SessionManager, tokens TokenService, cfg Config, opts ...ControllerOption) *Controller {
	c := &Controller{
		Logger: defLogger{},
		Repo:   repo,
		Auther: auther,
		Tokens: tokens,
		Config: cfg,
		Mailer: LoggerMailer{},
		Routes: &ControllerRoutes{
			Register:       "/auth/register",
			Login:          "/auth/login",
			Refresh:        "/auth/refresh",
			Logout:         "/auth/logout",
			Profile:        "/auth",
			ForgetPassword: "/auth/forget-password",
			ResetForm:      "/auth/form/reset-password",
			ResetPassword:  "/auth/reset-password",
			ChangePassword: "/auth/change-password",
			Users:          "/users",
		},
		Views: &ControllerViews{
			ResetPassword: "reset_password",
		},
	}

	c.ErrorHandler = c.defaultErrHandler

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in identity controller...")
	}

	if c.Auther == nil {
		panic("Missing SessionManager in identity controller...")
	}

	return c
}

// RegisterRoutes wires the controller into the given router. Protected
// endpoints go through the guard, the admin listing additionally requires
// the admin role.
func RegisterRoutes[T any](app router.Router[T], c *Controller, guard *RouteGuard) {
	protected := guard.ProtectedRoute()
	admin := guard.AdminRoute()

	app.Post(c.Routes.Register, c.Register).SetName("auth.register")
	app.Post(c.Routes.Login, c.Login).SetName("auth.login")
	app.Post(c.Routes.Refresh, c.Refresh).SetName("auth.refresh")
	app.Post(c.Routes.Logout, protected(c.Logout)).SetName("auth.logout")

	app.Get(c.Routes.Profile, protected(c.Profile)).SetName("auth.profile")
	app.Patch(c.Routes.Profile, protected(c.UpdateProfile)).SetName("auth.profile.update")
	app.Delete(c.Routes.Profile, protected(c.RemoveAccount)).SetName("auth.remove")

	app.Post(c.Routes.ForgetPassword, c.ForgetPassword).SetName("auth.pwd-forget")
	app.Get(c.Routes.ResetForm, c.ResetPasswordForm).SetName("auth.pwd-reset.form")
	app.Post(c.Routes.ResetPassword, c.ResetPassword).SetName("auth.pwd-reset.post")
	app.Post(c.Routes.ChangePassword, protected(c.ChangePassword)).SetName("auth.pwd-change")

	app.Get(c.Routes.Users, admin(c.SearchAccounts)).SetName("accounts.search")
}

// RegisterPayload is the registration body
type RegisterPayload struct {
	Name            string `form:"name" json:"name"`
	Email           string `form:"email" json:"email"`
	Phone           string `form:"phone" json:"phone"`
	Address         string `form:"address" json:"address"`
	DateOfBirth     string `form:"date_of_birth" json:"date_of_birth"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r RegisterPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.DateOfBirth, validation.Date("2006-01-02")),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *Controller) Register(ctx router.Context) error {
	payload := new(RegisterPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.validationFailed(ctx, err)
	}

	if a.Debug {
		fmt.Println("======= IDENTITY REGISTER =======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=================================")
	}

	var account *Account

	req := RegisterAccountMessage{
		Name:        payload.Name,
		Email:       payload.Email,
		Phone:       payload.Phone,
		Address:     payload.Address,
		DateOfBirth: payload.DateOfBirth,
		Password:    payload.Password,
		OnResponse: func(acct *Account) {
			account = acct
		},
	}

	register := NewRegisterAccountHandler(a.Repo).WithLogger(a.Logger)
	if err := register.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("register account error: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return a.respond(ctx, router.StatusCreated, router.ViewContext{
		"account": account,
	})
}

// LoginPayload is the credential body
type LoginPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *Controller) Login(ctx router.Context) error {
	payload := new(LoginPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.validationFailed(ctx, err)
	}

	pair, err := a.Auther.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		a.Logger.Error("login error: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return a.respond(ctx, router.StatusOK, router.ViewContext{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

// RefreshPayload carries the refresh token
type RefreshPayload struct {
	RefreshToken string `form:"refresh_token" json:"refresh_token"`
}

// Validate will run validation rules
func (r RefreshPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

// Refresh expects the refresh token as a bearer credential. A JSON body is
// accepted as a fallback for clients that cannot set the header.
func (a *Controller) Refresh(ctx router.Context) error {
	token := bearerToken(ctx)
	if token == "" {
		payload := new(RefreshPayload)

		if err := ctx.Bind(payload); err != nil {
			return a.badRequest(ctx, err)
		}

		if err := payload.Validate(); err != nil {
			return a.validationFailed(ctx, err)
		}

		token = payload.RefreshToken
	}

	pair, err := a.Auther.Refresh(ctx.Context(), token)
	if err != nil {
		a.Logger.Error("refresh error: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return a.respond(ctx, router.StatusOK, router.ViewContext{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

// bearerToken pulls a bearer credential off the Authorization header, or ""
// when the header is absent or uses a different scheme.
func bearerToken(ctx router.Context) string {
	const scheme = "Bearer"
	header := ctx.GetString(router.HeaderAuthorization, "")
	if len(header) > len(scheme)+1 && strings.EqualFold(header[:len(scheme)], scheme) {
		return strings.TrimSpace(header[len(scheme):])
	}
	return ""
}

// Profile returns the account that owns the validated access token.
func (a *Controller) Profile(ctx router.Context) error {
	claims, ok := GetRouterClaims(ctx, a.Config.GetContextKey())
	if !ok {
		return a.ErrorHandler(ctx, ErrUnableToMapClaims)
	}

	accountID, err := AccountUUID(claims)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	account, err := a.Repo.Accounts().GetByID(ctx.Context(), accountID.String())
	if err != nil {
		a.Logger.Error("profile lookup error: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return a.respond(ctx, router.StatusOK, router.ViewContext{
		"account": account,
	})
}

func (a *Controller) Logout(ctx router.Context) error {
	claims, ok := GetRouterClaims(ctx, a.Config.GetContextKey())
	if !ok {
		return a.ErrorHandler(ctx, ErrUnableToMapClaims)
	}

	if err := a.Auther.Logout(ctx.Context(), claims); err != nil {
		a.Logger.Error("logout error: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.Status(router.StatusNoContent).SendString("")
}

// UpdateProfilePayload is the partial profile body
type UpdateProfilePayload struct {
	Name        *string `form:"name" json:"name"`
	Email       *string `form:"email" json:"email"`
	Phone       *string `form:"phone" json:"phone"`
	Address     *string `form:"address" json:"address"`
	DateOfBirth *string `form:"date_of_birth" json:"date_of_birth"`
}

// Validate will run validation rules
func (r UpdateProfilePayload) Validate() error {
	fields := []*validation.FieldRules{}
	if r.Email != nil {
		fields = append(fields, validation.Field(&r.Email, is.Email))
	}
	if r.DateOfBirth != nil && *r.DateOfBirth != "" {
		fields = append(fields, validation.Field(&r.DateOfBirth, validation.Date("2006-01-02")))
	}
	if len(fields) == 0 {
		return nil
	}
	return validation.ValidateStruct(&r, fields...)
}

func (a *Controller) UpdateProfile(ctx router.Context) error {
	claims, ok := GetRouterClaims(ctx, a.Config.GetContextKey())
	if !ok {
		return a.ErrorHandler(ctx, ErrUnableToMapClaims)
	}

	accountID, err := AccountUUID(claims)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(UpdateProfilePayload)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.validationFailed(ctx, err)
	}

	var account *Account

	req := UpdateProfileMessage{
		AccountID:   accountID,
		Name:        payload.Name,
		Email:       payload.Email,
		Phone:       payload.Phone,
		Address:     payload.Address,
		DateOfBirth: payload.DateOfBirth,
		OnResponse: func(acct *Account) {
			account = acct
		},
	}

	update := NewUpdateProfileHandler(a.Repo).WithLogger(a.Logger)
	if err := update.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("profile update error: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return a.respond(ctx, router.StatusOK, router.ViewContext{
		"account": account,
	})
}

func (a *Controller) RemoveAccount(ctx router.Context) error {
	claims, ok := GetRouterClaims(ctx, a.Config.GetContextKey())
	if !ok {
		return a.ErrorHandler(ctx, ErrUnableToMapClaims)
	}

	actorID, err := AccountUUID(claims)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	targetID := actorID
	if raw := ctx.Query("id", ""); raw != "" {
		targetID, err = uuid.Parse(raw)
		if err != nil {
			return a.badRequest(ctx, goerrors.New("invalid account id", goerrors.CategoryBadInput))
		}
	}

	req := RemoveAccountMessage{
		ActorID:   actorID,
		ActorRole: claims.Role(),
		TargetID:  targetID,
		Reason:    ctx.Query("reason", ""),
	}

	remove := NewRemoveAccountHandler(a.Repo).WithLogger(a.Logger)
	if err := remove.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("account removal error: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.Status(router.StatusNoContent).SendString("")
}

// ForgetPasswordPayload holds the reset request email
type ForgetPasswordPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will run validation rules
func (r ForgetPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *Controller) ForgetPassword(ctx router.Context) error {
	payload := new(ForgetPasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.validationFailed(ctx, err)
	}

	req := InitializePasswordResetMessage{
		Email:   payload.Email,
		BaseURL: a.BaseURL,
	}

	initReset := NewInitializePasswordResetHandler(a.Repo, a.Tokens, a.Mailer).WithLogger(a.Logger)
	if err := initReset.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("password reset request error: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return a.respond(ctx, router.StatusAccepted, router.ViewContext{
		"message": "reset instructions sent",
	})
}

func (a *Controller) ResetPasswordForm(ctx router.Context) error {
	token := ctx.Query("token", "")
	if token == "" {
		return ctx.Status(router.StatusBadRequest).Render(a.Views.ResetPassword, router.ViewContext{
			"errors": map[string]string{"token": "missing reset token"},
		})
	}

	return ctx.Render(a.Views.ResetPassword, router.ViewContext{
		"errors": map[string]string{},
		"token":  token,
		"action": a.Routes.ResetPassword,
	})
}

// ResetPasswordPayload holds values for password reset
type ResetPasswordPayload struct {
	Token           string `form:"token" json:"token"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r ResetPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *Controller) ResetPassword(ctx router.Context) error {
	payload := new(ResetPasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.validationFailed(ctx, err)
	}

	req := FinalizePasswordResetMessage{
		Token:    payload.Token,
		Password: payload.Password,
	}

	finalize := NewFinalizePasswordResetHandler(a.Repo, a.Tokens).WithLogger(a.Logger)
	if err := finalize.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("password reset error: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return a.respond(ctx, router.StatusOK, router.ViewContext{
		"message": "password updated",
	})
}

// ChangePasswordPayload holds values for an authenticated password change
type ChangePasswordPayload struct {
	CurrentPassword string `form:"current_password" json:"current_password"`
	NewPassword     string `form:"new_password" json:"new_password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r ChangePasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.NewPassword)),
		),
	)
}

func (a *Controller) ChangePassword(ctx router.Context) error {
	claims, ok := GetRouterClaims(ctx, a.Config.GetContextKey())
	if !ok {
		return a.ErrorHandler(ctx, ErrUnableToMapClaims)
	}

	accountID, err := AccountUUID(claims)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(ChangePasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.validationFailed(ctx, err)
	}

	req := ChangePasswordMessage{
		AccountID:       accountID,
		CurrentPassword: payload.CurrentPassword,
		NewPassword:     payload.NewPassword,
	}

	change := NewChangePasswordHandler(a.Repo).WithLogger(a.Logger)
	if err := change.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("password change error: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return a.respond(ctx, router.StatusOK, router.ViewContext{
		"message": "password updated",
	})
}

func (a *Controller) SearchAccounts(ctx router.Context) error {
	claims, ok := GetRouterClaims(ctx, a.Config.GetContextKey())
	if !ok {
		return a.ErrorHandler(ctx, ErrUnableToMapClaims)
	}

	limit, _ := strconv.Atoi(ctx.Query("limit", ""))
	page, _ := strconv.Atoi(ctx.Query("page", ""))

	var res *SearchAccountsResponse

	req := SearchAccountsMessage{
		ActorRole: claims.Role(),
		Query:     ctx.Query("q", ""),
		Limit:     limit,
		Page:      page,
		OnResponse: func(resp *SearchAccountsResponse) {
			res = resp
		},
	}

	search := NewSearchAccountsHandler(a.Repo).WithLogger(a.Logger)
	if err := search.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("account search error: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	if a.Debug {
		fmt.Println(print.MaybePrettyJSON(res))
	}

	return a.respond(ctx, router.StatusOK, router.ViewContext{
		"accounts": res.Accounts,
		"page":     res.Page,
		"limit":    res.Limit,
		"total":    res.Total,
	})
}

func (a *Controller) respond(ctx router.Context, status int, data router.ViewContext) error {
	return ctx.JSON(status, router.ViewContext{
		"status": "success",
		"data":   data,
	})
}

func (a *Controller) badRequest(ctx router.Context, err error) error {
	a.Logger.Error("payload parse error: ", "error", err)
	return ctx.JSON(router.StatusBadRequest, router.ViewContext{
		"status":  "error",
		"message": "failed to parse request body",
	})
}

func (a *Controller) validationFailed(ctx router.Context, err error) error {
	return ctx.JSON(router.StatusBadRequest, router.ViewContext{
		"status":  "error",
		"message": "validation failed",
		"errors":  FormatValidationErrorToMap(err),
	})
}

func (a *Controller) defaultErrHandler(c router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "an unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	return c.JSON(StatusFromError(richErr), router.ViewContext{
		"status":  "error",
		"message": richErr.Message,
		"code":    richErr.TextCode,
	})
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field name to message map.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	out["error"] = err.Error()
	return out
}
