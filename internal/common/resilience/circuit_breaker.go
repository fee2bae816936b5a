package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/Falconext/pos-web-sub003/internal/common/clock"
	commonerrors "github.com/Falconext/pos-web-sub003/internal/common/errors"
	"github.com/Falconext/pos-web-sub003/internal/common/logger"
	"github.com/Falconext/pos-web-sub003/internal/observability/metrics"
)

type Breaker interface {
	Call(ctx context.Context, fn func(context.Context) error) error
}

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

type CircuitBreakerConfig struct {
	// Threshold is the number of consecutive failures that opens the
	// circuit. Zero or less disables the breaker.
	Threshold int32
	// Timeout bounds every call made through the breaker. Zero means none.
	Timeout time.Duration
	// ResetAfter is how long the circuit stays open before a single trial
	// call is let through.
	ResetAfter time.Duration
	// IsFailure decides which errors count towards opening the circuit.
	// nil counts every error.
	IsFailure func(error) bool
	Clock     clock.Clock
	Name      string
	Logger    *logger.Logger
}

// CircuitBreaker fails fast once an upstream looks down. After ResetAfter one
// call is admitted (half-open); its outcome closes or re-opens the circuit.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu       sync.Mutex
	state    State
	failures int32
	openedAt time.Time
	trial    bool
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.Clock == nil {
		cfg.Clock = clock.NewRealClock()
	}
	cb := &CircuitBreaker{cfg: cfg}
	cb.publish(StateClosed)
	return cb
}

// State reports the current state, moving open to half-open once the reset
// window has passed.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.expireLocked()
	return cb.state
}

func (cb *CircuitBreaker) IsOpen() bool {
	return cb.State() == StateOpen
}

// Call runs fn under the breaker timeout. A rejected call returns
// commonerrors.ErrCircuitOpen without running fn.
func (cb *CircuitBreaker) Call(ctx context.Context, fn func(context.Context) error) error {
	if !cb.admit() {
		if cb.cfg.Logger != nil {
			cb.cfg.Logger.Warnf("circuit breaker [%s]: rejecting call", cb.cfg.Name)
		}
		return commonerrors.ErrCircuitOpen
	}

	callCtx := ctx
	if cb.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, cb.cfg.Timeout)
		defer cancel()
	}

	err := fn(callCtx)
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) admit() bool {
	if cb.cfg.Threshold <= 0 {
		return true
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.expireLocked()

	switch cb.state {
	case StateOpen:
		return false
	case StateHalfOpen:
		if cb.trial {
			return false
		}
		cb.trial = true
	}
	return true
}

func (cb *CircuitBreaker) record(err error) {
	if cb.cfg.Threshold <= 0 {
		return
	}
	failed := err != nil && (cb.cfg.IsFailure == nil || cb.cfg.IsFailure(err))

	cb.mu.Lock()
	defer cb.mu.Unlock()
	wasTrial := cb.state == StateHalfOpen
	cb.trial = false

	if !failed {
		// errors that are not outages still prove the upstream answers
		cb.failures = 0
		cb.transitionLocked(StateClosed)
		return
	}

	cb.failures++
	if cb.cfg.Name != "" {
		metrics.CircuitBreakerFailures.WithLabelValues(cb.cfg.Name).Inc()
	}
	if wasTrial || cb.failures >= cb.cfg.Threshold {
		cb.openedAt = cb.cfg.Clock.Now()
		cb.transitionLocked(StateOpen)
	}
}

func (cb *CircuitBreaker) expireLocked() {
	if cb.state == StateOpen && cb.cfg.Clock.Since(cb.openedAt) >= cb.cfg.ResetAfter {
		cb.transitionLocked(StateHalfOpen)
	}
}

func (cb *CircuitBreaker) transitionLocked(next State) {
	if cb.state == next {
		return
	}
	if cb.cfg.Logger != nil {
		cb.cfg.Logger.WithFields(context.Background(), logger.Fields{
			"breaker":  cb.cfg.Name,
			"from":     cb.state.String(),
			"to":       next.String(),
			"failures": cb.failures,
		}).Warn("circuit breaker state changed")
	}
	cb.state = next
	cb.publish(next)
}

func (cb *CircuitBreaker) publish(s State) {
	if cb.cfg.Name != "" {
		metrics.CircuitBreakerState.WithLabelValues(cb.cfg.Name).Set(float64(s))
	}
}
