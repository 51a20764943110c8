package identity

import (
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-identity/middleware/jwtware"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RouteGuard builds the authorization middleware protecting the HTTP
// surface. Tokens come from the Authorization header by default, the
// lookup string in Config can add cookie or query sources.
type RouteGuard struct {
	cfg          Config
	validator    TokenValidator
	Logger       Logger
	ErrorHandler func(c router.Context, err error) error
}

func NewRouteGuard(validator TokenValidator, cfg Config) *RouteGuard {
	g := &RouteGuard{
		cfg:       cfg,
		validator: validator,
		Logger:    defLogger{},
	}
	g.ErrorHandler = g.defaultErrHandler
	return g
}

// ProtectedRoute requires a valid access token.
func (g *RouteGuard) ProtectedRoute() router.MiddlewareFunc {
	return g.middleware(jwtware.Config{})
}

// AdminRoute requires a valid access token carrying the admin role.
func (g *RouteGuard) AdminRoute() router.MiddlewareFunc {
	return g.middleware(jwtware.Config{
		RequiredRole: string(RoleAdmin),
	})
}

func (g *RouteGuard) middleware(base jwtware.Config) router.MiddlewareFunc {
	base.ErrorHandler = g.handleAuthError
	base.SigningKey = jwtware.SigningKey{
		Key:    []byte(g.cfg.GetSigningKey()),
		JWTAlg: g.cfg.GetSigningMethod(),
	}
	base.AuthScheme = g.cfg.GetAuthScheme()
	base.ContextKey = g.cfg.GetContextKey()
	base.TokenLookup = g.cfg.GetTokenLookup()
	base.TokenValidator = TokenValidatorAdapter(g.validator)
	base.ContextEnricher = ContextEnricherAdapter
	return jwtware.New(base)
}

func (g *RouteGuard) handleAuthError(ctx router.Context, err error) error {
	var richErr *errors.Error

	if IsTokenExpiredError(err) {
		richErr = ErrTokenExpired
	} else if IsMalformedError(err) {
		richErr = ErrTokenMalformed
	} else {
		richErr = errors.Wrap(err, errors.CategoryAuth, "invalid authentication token").
			WithCode(errors.CodeUnauthorized)
	}

	return g.ErrorHandler(ctx, richErr)
}

func (g *RouteGuard) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "an unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	g.Logger.Info(
		"Request rejected",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	return c.JSON(StatusFromError(richErr), router.ViewContext{
		"status":  "error",
		"message": richErr.Message,
		"code":    richErr.TextCode,
	})
}
