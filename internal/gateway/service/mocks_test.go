package service

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Falconext/pos-web-sub003/internal/common/logger"
	"github.com/Falconext/pos-web-sub003/internal/gateway/domain"
)

const (
	testLoginPath   = "/api/auth/login"
	testRefreshPath = "/api/auth/refresh"
)

type mockTransport struct {
	dispatchFunc func(ctx context.Context, req domain.Request) (domain.Response, error)
	calls        atomic.Int32
	mu           sync.Mutex
	requests     []domain.Request
}

func (m *mockTransport) Dispatch(ctx context.Context, req domain.Request) (domain.Response, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.dispatchFunc != nil {
		return m.dispatchFunc(ctx, req)
	}
	return domain.Response{StatusCode: http.StatusOK}, nil
}

func (m *mockTransport) Requests() []domain.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Request(nil), m.requests...)
}

type mockRefresher struct {
	refreshFunc func(ctx context.Context, refreshToken string) (domain.CredentialPair, error)
	calls       atomic.Int32
}

func (m *mockRefresher) Refresh(ctx context.Context, refreshToken string) (domain.CredentialPair, error) {
	m.calls.Add(1)
	if m.refreshFunc != nil {
		return m.refreshFunc(ctx, refreshToken)
	}
	return domain.CredentialPair{AccessToken: "new-access", RefreshToken: "new-refresh"}, nil
}

type mockStore struct {
	mu       sync.Mutex
	pair     domain.CredentialPair
	getErr   error
	setErr   error
	setCalls int
	clears   int
	// honorCtx makes every call fail once its context is done, like the pg
	// and redis stores.
	honorCtx bool
	gets     int
	afterGet func(n int)
	// beforeSwap runs before a compare-and-swap takes the lock.
	beforeSwap func()
}

func newMockStore(pair domain.CredentialPair) *mockStore {
	return &mockStore{pair: pair}
}

func (m *mockStore) Get(ctx context.Context) (domain.CredentialPair, error) {
	if m.honorCtx && ctx.Err() != nil {
		return domain.CredentialPair{}, ctx.Err()
	}
	m.mu.Lock()
	m.gets++
	n, hook := m.gets, m.afterGet
	pair, err := m.pair, m.getErr
	m.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	if err != nil {
		return domain.CredentialPair{}, err
	}
	return pair, nil
}

func (m *mockStore) Set(ctx context.Context, pair domain.CredentialPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls++
	if m.setErr != nil {
		return m.setErr
	}
	if err := pair.Validate(); err != nil {
		return err
	}
	m.pair = pair
	return nil
}

func (m *mockStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
	m.pair = domain.CredentialPair{}
	return nil
}

func (m *mockStore) CompareAndSwap(ctx context.Context, refreshToken string, next domain.CredentialPair) (bool, error) {
	if m.honorCtx && ctx.Err() != nil {
		return false, ctx.Err()
	}
	if m.beforeSwap != nil {
		m.beforeSwap()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if next.IsEmpty() {
		if m.pair.RefreshToken != refreshToken {
			return false, nil
		}
		m.clears++
		m.pair = domain.CredentialPair{}
		return true, nil
	}
	m.setCalls++
	if m.setErr != nil {
		return false, m.setErr
	}
	if err := next.Validate(); err != nil {
		return false, err
	}
	if m.pair.RefreshToken != refreshToken {
		return false, nil
	}
	m.pair = next
	return true, nil
}

// login replaces the stored pair the way SessionService.Login does.
func (m *mockStore) login(pair domain.CredentialPair) {
	m.mu.Lock()
	m.pair = pair
	m.mu.Unlock()
}

func (m *mockStore) snapshot() (domain.CredentialPair, int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pair, m.setCalls, m.clears
}

type logoutRecorder struct {
	calls atomic.Int32
	mu    sync.Mutex
	cause error
}

func (r *logoutRecorder) signal(ctx context.Context, cause error) {
	r.calls.Add(1)
	r.mu.Lock()
	r.cause = cause
	r.mu.Unlock()
}

func testLogger() *logger.Logger {
	return logger.NewWithWriter(&bytes.Buffer{}, "gateway-test", "debug")
}

func newTestGateway(t *testing.T, tr *mockTransport, rf *mockRefresher, store *mockStore, logout *logoutRecorder) *Gateway {
	t.Helper()
	return NewGateway(
		tr,
		rf,
		store,
		nil,
		Config{
			LoginPath:         testLoginPath,
			RefreshPath:       testRefreshPath,
			ExpiredTokenCodes: []int{21},
		},
		logout.signal,
		testLogger(),
	)
}

func bearer(req domain.Request) string {
	return req.Header.Get(domain.HeaderAuthorization)
}

func unauthorized() error {
	return &domain.StatusError{StatusCode: http.StatusUnauthorized, Code: "21", Message: "token expired"}
}

// tokenGatedDispatch accepts only requests carrying "Bearer "+valid.
func tokenGatedDispatch(valid string) func(ctx context.Context, req domain.Request) (domain.Response, error) {
	return func(ctx context.Context, req domain.Request) (domain.Response, error) {
		if bearer(req) != "Bearer "+valid {
			return domain.Response{}, unauthorized()
		}
		return domain.Response{StatusCode: http.StatusOK, Body: []byte(req.Path)}, nil
	}
}
