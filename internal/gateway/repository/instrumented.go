package repository

import (
	"context"
	"time"

	"github.com/Falconext/pos-web-sub003/internal/gateway/domain"
	"github.com/Falconext/pos-web-sub003/internal/observability/metrics"
)

// Instrumented records latency, errors and swap outcomes of any backend
// under the backend label.
type Instrumented struct {
	next    CredentialStore
	backend string
}

func Instrument(next CredentialStore, backend string) *Instrumented {
	return &Instrumented{next: next, backend: backend}
}

func (s *Instrumented) Get(ctx context.Context) (domain.CredentialPair, error) {
	defer s.observe("get", time.Now())
	pair, err := s.next.Get(ctx)
	s.countError("get", err)
	return pair, err
}

func (s *Instrumented) Set(ctx context.Context, pair domain.CredentialPair) error {
	defer s.observe("set", time.Now())
	err := s.next.Set(ctx, pair)
	s.countError("set", err)
	return err
}

func (s *Instrumented) Clear(ctx context.Context) error {
	defer s.observe("clear", time.Now())
	err := s.next.Clear(ctx)
	s.countError("clear", err)
	return err
}

func (s *Instrumented) CompareAndSwap(ctx context.Context, refreshToken string, next domain.CredentialPair) (bool, error) {
	defer s.observe("compare_and_swap", time.Now())
	swapped, err := s.next.CompareAndSwap(ctx, refreshToken, next)
	s.countError("compare_and_swap", err)
	if err == nil {
		result := "stale"
		if swapped {
			result = "swapped"
		}
		metrics.CredentialStoreSwaps.WithLabelValues(s.backend, result).Inc()
	}
	return swapped, err
}

func (s *Instrumented) observe(operation string, start time.Time) {
	metrics.CredentialStoreOperationSeconds.WithLabelValues(s.backend, operation).Observe(time.Since(start).Seconds())
}

func (s *Instrumented) countError(operation string, err error) {
	if err != nil {
		metrics.CredentialStoreErrors.WithLabelValues(s.backend, operation).Inc()
	}
}
