package identity

// TokenValidator turns a raw token string into structured claims. The route
// guard and the JWT middleware both consume this interface, so access tokens
// minted here and tokens minted by an external issuer can share one chain.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// TokenValidatorFunc adapts a plain function into a TokenValidator.
type TokenValidatorFunc func(tokenString string) (AuthClaims, error)

// Validate calls the wrapped function. A nil function rejects every token.
func (f TokenValidatorFunc) Validate(tokenString string) (AuthClaims, error) {
	if f == nil {
		return nil, ErrTokenMalformed
	}
	return f(tokenString)
}

// MultiTokenValidator runs a chain of validators against the same token.
// A malformed result means "not one of mine" and moves on to the next
// validator; any other failure (expired, revoked signing key) is a verdict
// about the token itself and ends the chain.
type MultiTokenValidator struct {
	chain []TokenValidator
}

// NewMultiTokenValidator builds a chain, dropping nil entries.
func NewMultiTokenValidator(validators ...TokenValidator) *MultiTokenValidator {
	m := &MultiTokenValidator{}
	for _, v := range validators {
		if v != nil {
			m.chain = append(m.chain, v)
		}
	}
	return m
}

// Validate tries each validator in order. When every validator reports
// malformed, the last such error is returned; an empty chain rejects all
// tokens.
func (m *MultiTokenValidator) Validate(tokenString string) (AuthClaims, error) {
	err := error(ErrTokenMalformed)
	for _, v := range m.chain {
		claims, vErr := v.Validate(tokenString)
		if vErr == nil {
			return claims, nil
		}
		if !IsMalformedError(vErr) {
			return nil, vErr
		}
		err = vErr
	}
	return nil, err
}
