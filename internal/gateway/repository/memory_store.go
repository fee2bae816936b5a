package repository

import (
	"context"
	"sync"

	"github.com/Falconext/pos-web-sub003/internal/gateway/domain"
)

type MemoryStore struct {
	mu   sync.RWMutex
	pair domain.CredentialPair
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(ctx context.Context) (domain.CredentialPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair, nil
}

func (s *MemoryStore) Set(ctx context.Context, pair domain.CredentialPair) error {
	if err := pair.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.pair = pair
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.pair = domain.CredentialPair{}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) CompareAndSwap(ctx context.Context, refreshToken string, next domain.CredentialPair) (bool, error) {
	if !next.IsEmpty() {
		if err := next.Validate(); err != nil {
			return false, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pair.RefreshToken != refreshToken {
		return false, nil
	}
	s.pair = next
	return true, nil
}
