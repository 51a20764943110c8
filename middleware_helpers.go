package identity

import (
	"context"

	"github.com/goliatone/go-identity/middleware/jwtware"
)

// ValidationListener aliases the jwtware listener so consumers can use identity helpers directly.
type ValidationListener = jwtware.ValidationListener

// ContextEnricherAdapter adapts jwtware.AuthClaims to identity.AuthClaims and
// stores the claims in the standard context for downstream use.
func ContextEnricherAdapter(c context.Context, claims jwtware.AuthClaims) context.Context {
	authClaims, ok := claims.(AuthClaims)
	if !ok {
		return c
	}
	return WithClaimsContext(c, authClaims)
}

// TokenValidatorAdapter exposes a TokenValidator under the jwtware contract.
func TokenValidatorAdapter(validator TokenValidator) jwtware.TokenValidator {
	return jwtValidatorAdapter{validator: validator}
}

type jwtValidatorAdapter struct {
	validator TokenValidator
}

func (a jwtValidatorAdapter) Validate(tokenString string) (jwtware.AuthClaims, error) {
	if a.validator == nil {
		return nil, ErrTokenMalformed
	}
	claims, err := a.validator.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// RegisterValidationListeners appends listeners to a jwtware.Config in a safe, reusable way.
func RegisterValidationListeners(cfg *jwtware.Config, listeners ...ValidationListener) {
	if cfg == nil || len(listeners) == 0 {
		return
	}
	cfg.ValidationListeners = append(cfg.ValidationListeners, listeners...)
}
