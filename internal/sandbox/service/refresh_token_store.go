package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/Falconext/pos-web-sub003/internal/common/clock"
	"github.com/Falconext/pos-web-sub003/internal/common/constants"
	"github.com/Falconext/pos-web-sub003/internal/sandbox/domain"
)

// RefreshTokenStore keeps issued refresh tokens by hash. Raw tokens are never
// stored.
type RefreshTokenStore struct {
	tokens sync.Map
	clock  clock.Clock
}

func NewRefreshTokenStore(clock clock.Clock) *RefreshTokenStore {
	return &RefreshTokenStore{clock: clock}
}

func (s *RefreshTokenStore) Save(token domain.RefreshToken) {
	s.tokens.Store(token.Hash, token)
}

// Take removes and returns the token stored under hash. Two concurrent calls
// for one hash never both succeed.
func (s *RefreshTokenStore) Take(hash string) (domain.RefreshToken, bool) {
	v, ok := s.tokens.LoadAndDelete(hash)
	if !ok {
		return domain.RefreshToken{}, false
	}
	return v.(domain.RefreshToken), true
}

func (s *RefreshTokenStore) Delete(hash string) {
	s.tokens.Delete(hash)
}

func (s *RefreshTokenStore) Len() int {
	n := 0
	s.tokens.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (s *RefreshTokenStore) DeleteExpired(ctx context.Context) (int64, error) {
	now := s.clock.Now()
	var removed int64
	s.tokens.Range(func(key, value any) bool {
		if ctx.Err() != nil {
			return false
		}
		if value.(domain.RefreshToken).Expired(now) {
			s.tokens.Delete(key)
			removed++
		}
		return true
	})
	return removed, ctx.Err()
}

func GenerateRefreshToken() (string, error) {
	b := make([]byte, constants.RefreshTokenSize)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
