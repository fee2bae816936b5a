package domain

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// CredentialPair is the access/refresh token pair of one terminal session.
// A stored pair is either complete or empty.
type CredentialPair struct {
	AccessToken  string `json:"access_token"  validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (p CredentialPair) IsEmpty() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// Held reports whether either token is present.
func (p CredentialPair) Held() bool {
	return !p.IsEmpty()
}

func (p CredentialPair) Validate() error {
	if err := validate.Struct(p); err != nil {
		return ErrPartialCredential.WithCause(err)
	}
	return nil
}
