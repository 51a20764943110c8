package identity

import (
	"github.com/google/uuid"
)

// AccountUUID extracts the account id carried by the claims as a UUID.
// External identity providers can issue non-UUID subjects, so this can fail
// even for otherwise valid claims.
func AccountUUID(claims AuthClaims) (uuid.UUID, error) {
	if claims == nil {
		return uuid.Nil, ErrUnableToMapClaims
	}
	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return uuid.Nil, ErrUnableToMapClaims
	}
	return id, nil
}

// HasAccountUUID reports whether AccountUUID will succeed.
func HasAccountUUID(claims AuthClaims) bool {
	_, err := AccountUUID(claims)
	return err == nil
}
