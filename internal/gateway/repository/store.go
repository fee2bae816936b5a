package repository

import (
	"context"
	"errors"

	"github.com/Falconext/pos-web-sub003/internal/gateway/domain"
)

// CredentialStore persists the terminal's credential pair. Get returns the
// zero pair when nothing is stored. Set writes both tokens in one step.
//
// CompareAndSwap replaces the pair with next only while the stored refresh
// token still equals refreshToken; an empty next clears it under the same
// condition. It reports whether the pair was replaced.
type CredentialStore interface {
	Get(ctx context.Context) (domain.CredentialPair, error)
	Set(ctx context.Context, pair domain.CredentialPair) error
	Clear(ctx context.Context) error
	CompareAndSwap(ctx context.Context, refreshToken string, next domain.CredentialPair) (bool, error)
}

var ErrCorruptCredentials = errors.New("stored credentials are corrupt")
