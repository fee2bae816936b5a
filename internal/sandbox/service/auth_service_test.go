package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Falconext/pos-web-sub003/internal/common/clock"
	commoncrypto "github.com/Falconext/pos-web-sub003/internal/common/crypto"
	commonerrors "github.com/Falconext/pos-web-sub003/internal/common/errors"
	"github.com/Falconext/pos-web-sub003/internal/common/logger"
	"github.com/Falconext/pos-web-sub003/internal/sandbox/domain"
)

const testSecret = "sandbox-test-secret-sandbox-test-secret"

type mockIDGenerator struct {
	newIDFunc func() (string, error)
}

func (m *mockIDGenerator) NewID() (string, error) {
	if m.newIDFunc != nil {
		return m.newIDFunc()
	}
	return "id-1", nil
}

func setupAuthService(t *testing.T) (*AuthService, *TokenIssuer, *RefreshTokenStore, *clock.MockClock) {
	t.Helper()
	clk := clock.NewMockClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	log := logger.NewWithWriter(&bytes.Buffer{}, "sandbox-test", "debug")
	issuer := NewTokenIssuer(testSecret, commoncrypto.NewUUIDGenerator(), 15*time.Minute, clk)
	store := NewRefreshTokenStore(clk)

	svc, err := NewAuthService(
		map[string]string{"cashier": "cashier123"},
		&commoncrypto.BcryptHasher{Cost: bcrypt.MinCost},
		commoncrypto.NewUUIDGenerator(),
		issuer,
		store,
		time.Hour,
		clk,
		log,
	)
	require.NoError(t, err)
	return svc, issuer, store, clk
}

func TestAuthService_Login_Success(t *testing.T) {
	svc, issuer, store, _ := setupAuthService(t)

	result, err := svc.Login(context.Background(), LoginInput{Username: "cashier", Password: "cashier123"})

	require.NoError(t, err)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, 1, store.Len())

	claims, err := issuer.Verify(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "cashier", claims.Username)
	assert.NotEmpty(t, claims.TokenID)
}

func TestAuthService_Login_Failures(t *testing.T) {
	svc, _, _, _ := setupAuthService(t)

	_, err := svc.Login(context.Background(), LoginInput{Username: "cashier", Password: "wrong"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), LoginInput{Username: "ghost", Password: "cashier123"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), LoginInput{Username: "cashier"})
	assert.ErrorIs(t, err, domain.ErrLoginInput)
}

func TestAuthService_Refresh_RotatesToken(t *testing.T) {
	svc, _, store, _ := setupAuthService(t)
	first, err := svc.Login(context.Background(), LoginInput{Username: "cashier", Password: "cashier123"})
	require.NoError(t, err)

	second, err := svc.RefreshAccessToken(context.Background(), first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.Equal(t, 1, store.Len())

	_, err = svc.RefreshAccessToken(context.Background(), first.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrRefreshTokenUnknown)
}

func TestAuthService_Refresh_ConcurrentReuseWinsOnce(t *testing.T) {
	svc, _, _, _ := setupAuthService(t)
	login, err := svc.Login(context.Background(), LoginInput{Username: "cashier", Password: "cashier123"})
	require.NoError(t, err)

	const n = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.RefreshAccessToken(context.Background(), login.RefreshToken); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestAuthService_Refresh_Expired(t *testing.T) {
	svc, _, _, clk := setupAuthService(t)
	login, err := svc.Login(context.Background(), LoginInput{Username: "cashier", Password: "cashier123"})
	require.NoError(t, err)

	clk.Advance(2 * time.Hour)

	_, err = svc.RefreshAccessToken(context.Background(), login.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrRefreshTokenExpired)
}

func TestAuthService_Refresh_Empty(t *testing.T) {
	svc, _, _, _ := setupAuthService(t)
	_, err := svc.RefreshAccessToken(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrRefreshTokenUnknown)
}

func TestAuthService_Revoke(t *testing.T) {
	svc, _, store, _ := setupAuthService(t)
	login, err := svc.Login(context.Background(), LoginInput{Username: "cashier", Password: "cashier123"})
	require.NoError(t, err)

	svc.RevokeRefreshToken(context.Background(), login.RefreshToken)

	assert.Zero(t, store.Len())
	_, err = svc.RefreshAccessToken(context.Background(), login.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrRefreshTokenUnknown)
}

func TestTokenIssuer_ExpiredAccessToken(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	issuer := NewTokenIssuer(testSecret, &mockIDGenerator{}, time.Minute, clk)

	token, err := issuer.IssueAccessToken(userFixture())
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	require.NoError(t, err)

	clk.Advance(2 * time.Minute)
	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, commonerrors.ErrTokenExpired)
}

func TestTokenIssuer_IDGeneratorFailure(t *testing.T) {
	boom := errors.New("entropy exhausted")
	issuer := NewTokenIssuer(testSecret, &mockIDGenerator{newIDFunc: func() (string, error) { return "", boom }}, time.Minute, clock.NewRealClock())

	_, err := issuer.IssueAccessToken(userFixture())

	assert.ErrorIs(t, err, boom)
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	clk := clock.NewRealClock()
	token, err := NewTokenIssuer(testSecret, &mockIDGenerator{}, time.Minute, clk).IssueAccessToken(userFixture())
	require.NoError(t, err)

	_, err = NewTokenIssuer("another-secret-another-secret-another", &mockIDGenerator{}, time.Minute, clk).Verify(token)
	assert.ErrorIs(t, err, commonerrors.ErrInvalidToken)
}

func TestTokenIssuer_RejectsForgedClaims(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	issuer := NewTokenIssuer(testSecret, &mockIDGenerator{}, time.Minute, clk)
	anonymous := domain.NewAccessClaims(domain.Account{ID: "u-1"}, "id-1", clk.Now(), time.Minute)

	cases := []struct {
		name   string
		method jwt.SigningMethod
		claims jwt.Claims
		key    any
	}{
		{"no username", jwt.SigningMethodHS256, anonymous, []byte(testSecret)},
		{"no expiry", jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u-1", "usr": "cashier"}, []byte(testSecret)},
		{"other hmac", jwt.SigningMethodHS512, domain.NewAccessClaims(userFixture(), "id-1", clk.Now(), time.Minute), []byte(testSecret)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token, err := jwt.NewWithClaims(tc.method, tc.claims).SignedString(tc.key)
			require.NoError(t, err)

			_, err = issuer.Verify(token)

			assert.ErrorIs(t, err, commonerrors.ErrInvalidToken)
		})
	}
}

func TestTokenIssuer_ClaimsReadableByGateway(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	token, err := NewTokenIssuer(testSecret, &mockIDGenerator{}, time.Minute, clk).IssueAccessToken(userFixture())
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)

	assert.Equal(t, "cashier", claims["usr"])
	assert.Equal(t, "id-1", claims["jti"])
	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	assert.True(t, clk.Now().Add(time.Minute).Equal(exp.Time))
}

func TestRefreshTokenStore_DeleteExpired(t *testing.T) {
	svc, _, store, clk := setupAuthService(t)
	_, err := svc.Login(context.Background(), LoginInput{Username: "cashier", Password: "cashier123"})
	require.NoError(t, err)

	deleted, err := store.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.Zero(t, deleted)

	clk.Advance(time.Hour)
	deleted, err = store.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
	assert.Zero(t, store.Len())
}

func TestHashRefreshToken(t *testing.T) {
	raw, err := GenerateRefreshToken()
	require.NoError(t, err)
	assert.Len(t, raw, 64)
	assert.Equal(t, HashRefreshToken(raw), HashRefreshToken(raw))
	assert.NotEqual(t, raw, HashRefreshToken(raw))
}
