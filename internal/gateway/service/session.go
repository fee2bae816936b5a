package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Falconext/pos-web-sub003/internal/common/clock"
	"github.com/Falconext/pos-web-sub003/internal/common/logger"
	"github.com/Falconext/pos-web-sub003/internal/common/resilience"
	"github.com/Falconext/pos-web-sub003/internal/gateway/domain"
)

type Authenticator interface {
	Login(ctx context.Context, username, password string) (domain.CredentialPair, error)
	Logout(ctx context.Context, pair domain.CredentialPair) error
}

type SessionStatus struct {
	Authenticated bool
	Subject       string
	Username      string
	ExpiresAt     time.Time
	TokenExpired  bool
	// SessionLost is set once a refresh wave gave up on the held credentials
	// and stays set until credentials are stored again.
	SessionLost bool
}

// SessionService owns the terminal's login state on top of the credential
// store shared with the Gateway. Logins go through the same breaker as
// refreshes, so both count towards an auth outage.
type SessionService struct {
	auth    Authenticator
	store   CredentialStore
	breaker resilience.Breaker
	clock   clock.Clock
	lost    atomic.Bool
	log     *logger.Logger
}

func NewSessionService(
	auth Authenticator,
	store CredentialStore,
	breaker resilience.Breaker,
	clock clock.Clock,
	log *logger.Logger,
) *SessionService {
	return &SessionService{
		auth:    auth,
		store:   store,
		breaker: breaker,
		clock:   clock,
		log:     log,
	}
}

func (s *SessionService) Login(ctx context.Context, username, password string) error {
	s.log.WithFields(ctx, logger.Fields{
		"username": username,
		"action":   "session_login_attempt",
	}).Info("login attempt")

	pair, err := s.login(ctx, username, password)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"username": username,
			"action":   "session_login_failed",
		}).Warnf("login failed: %v", err)
		return err
	}

	if err := pair.Validate(); err != nil {
		return domain.ErrInvalidTokenResponse.WithCause(err)
	}

	if err := s.store.Set(ctx, pair); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"username": username,
			"action":   "session_store_failed",
		}).Errorf("login failed: store credentials: %v", err)
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	s.lost.Store(false)

	s.log.WithFields(ctx, logger.Fields{
		"username": username,
		"action":   "session_login_success",
	}).Info("login success")
	return nil
}

func (s *SessionService) login(ctx context.Context, username, password string) (domain.CredentialPair, error) {
	if s.breaker == nil {
		return s.auth.Login(ctx, username, password)
	}

	var pair domain.CredentialPair
	err := s.breaker.Call(ctx, func(ctx context.Context) error {
		p, err := s.auth.Login(ctx, username, password)
		if err != nil {
			return err
		}
		pair = p
		return nil
	})
	return pair, err
}

// Logout revokes the session upstream on a best-effort basis and always clears
// the local credentials.
func (s *SessionService) Logout(ctx context.Context) error {
	pair, err := s.store.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to read credentials: %w", err)
	}

	if pair.Held() {
		if err := s.auth.Logout(ctx, pair); err != nil {
			s.log.WithFields(ctx, logger.Fields{
				"action": "session_remote_logout_failed",
			}).Warnf("remote logout failed: %v", err)
		}
	}

	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	s.lost.Store(false)

	s.log.WithFields(ctx, logger.Fields{
		"action": "session_logout",
	}).Info("logged out")
	return nil
}

func (s *SessionService) Status(ctx context.Context) (SessionStatus, error) {
	pair, err := s.store.Get(ctx)
	if err != nil {
		return SessionStatus{}, fmt.Errorf("failed to read credentials: %w", err)
	}

	// A wave that gave up may signal after a login already stored a new pair.
	status := SessionStatus{
		Authenticated: pair.AccessToken != "",
		SessionLost:   s.lost.Load() && !pair.Held(),
	}
	if pair.AccessToken == "" {
		return status, nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(pair.AccessToken, claims); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"action": "session_token_unparsable",
		}).Debugf("access token is not a readable JWT: %v", err)
		return status, nil
	}

	status.Subject, _ = claims.GetSubject()
	if usr, ok := claims["usr"].(string); ok {
		status.Username = usr
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		status.ExpiresAt = exp.Time.UTC()
		status.TokenExpired = !s.clock.Now().Before(exp.Time)
	}
	return status, nil
}

// OnLogout is the Gateway's logout signal.
func (s *SessionService) OnLogout(ctx context.Context, cause error) {
	s.lost.Store(true)
	s.log.WithFields(ctx, logger.Fields{
		"action": "session_lost",
	}).Warnf("session lost, terminal must log in again: %v", cause)
}
