package domain

import "time"

type UserID string

// Account is a configured sandbox login. Only the bcrypt hash of the
// password is kept.
type Account struct {
	ID           UserID
	Username     string
	PasswordHash string
}

// RefreshToken is the server side record of an issued refresh token. The
// raw value goes to the client once and only its hash is kept.
type RefreshToken struct {
	Hash      string
	UserID    UserID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (t RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
