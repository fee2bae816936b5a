package domain

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the body of a sandbox access token. The gateway reads sub,
// usr and exp back when it reports session status.
type AccessClaims struct {
	Username string `json:"usr"`
	jwt.RegisteredClaims
}

func NewAccessClaims(user Account, tokenID string, issuedAt time.Time, ttl time.Duration) AccessClaims {
	return AccessClaims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(user.ID),
			ID:        tokenID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}
}

var ErrAnonymousToken = errors.New("access token names no user")

// Validate runs after the registered claims passed.
func (c AccessClaims) Validate() error {
	if c.Subject == "" || c.Username == "" {
		return ErrAnonymousToken
	}
	return nil
}

func (c AccessClaims) UserID() UserID {
	return UserID(c.Subject)
}
