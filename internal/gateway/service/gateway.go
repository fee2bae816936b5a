package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Falconext/pos-web-sub003/internal/common/constants"
	"github.com/Falconext/pos-web-sub003/internal/common/logger"
	"github.com/Falconext/pos-web-sub003/internal/common/resilience"
	"github.com/Falconext/pos-web-sub003/internal/gateway/domain"
)

type Transport interface {
	Dispatch(ctx context.Context, req domain.Request) (domain.Response, error)
}

type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (domain.CredentialPair, error)
}

type CredentialStore interface {
	Get(ctx context.Context) (domain.CredentialPair, error)
	Set(ctx context.Context, pair domain.CredentialPair) error
	Clear(ctx context.Context) error
	CompareAndSwap(ctx context.Context, refreshToken string, next domain.CredentialPair) (bool, error)
}

// LogoutFunc is told that a held session was lost for good.
type LogoutFunc func(ctx context.Context, cause error)

type Config struct {
	LoginPath         string
	RefreshPath       string
	ExpiredTokenCodes []int
	RefreshTimeout    time.Duration
}

type Gateway struct {
	transport      Transport
	refresher      Refresher
	store          CredentialStore
	breaker        resilience.Breaker
	coordinator    *RefreshCoordinator
	classifier     Classifier
	excluded       map[string]struct{}
	refreshTimeout time.Duration
	onLogout       LogoutFunc
	log            *logger.Logger
}

func NewGateway(
	transport Transport,
	refresher Refresher,
	store CredentialStore,
	breaker resilience.Breaker,
	cfg Config,
	onLogout LogoutFunc,
	log *logger.Logger,
) *Gateway {
	refreshTimeout := cfg.RefreshTimeout
	if refreshTimeout <= 0 {
		refreshTimeout = constants.DefaultRefreshTimeout
	}
	excluded := make(map[string]struct{}, 2)
	for _, p := range []string{cfg.LoginPath, cfg.RefreshPath} {
		if p != "" {
			excluded[p] = struct{}{}
		}
	}
	return &Gateway{
		transport:      transport,
		refresher:      refresher,
		store:          store,
		breaker:        breaker,
		coordinator:    NewRefreshCoordinator(),
		classifier:     NewClassifier(cfg.ExpiredTokenCodes),
		excluded:       excluded,
		refreshTimeout: refreshTimeout,
		onLogout:       onLogout,
		log:            log,
	}
}

func (g *Gateway) Coordinator() *RefreshCoordinator {
	return g.coordinator
}

// Send dispatches req with the current access token. A first failure caused by
// an expired token is recovered through one coordinated refresh and a single
// replay; every other failure is returned unchanged.
func (g *Gateway) Send(ctx context.Context, req domain.Request) (domain.Response, error) {
	req = req.Clone()
	if req.Header.Get(domain.HeaderRequestID) == "" {
		req.Header.Set(domain.HeaderRequestID, uuid.NewString())
	}

	resp, err := g.send(ctx, req)
	recordOutcome(err)
	return resp, err
}

func (g *Gateway) send(ctx context.Context, req domain.Request) (domain.Response, error) {
	creds, err := g.store.Get(ctx)
	if err != nil {
		return domain.Response{}, fmt.Errorf("failed to read credentials: %w", err)
	}

	attempt := domain.NewAttempt(req, creds.AccessToken)
	resp, err := g.transport.Dispatch(ctx, attempt.Outbound())
	if err == nil {
		return resp, nil
	}
	if !g.classifier.IsAuthExpired(err) {
		return domain.Response{}, err
	}

	recordAuthFailure()
	return g.recoverExpired(ctx, attempt, err)
}

func (g *Gateway) recoverExpired(ctx context.Context, attempt domain.Attempt, cause error) (domain.Response, error) {
	req := attempt.Request()
	fields := logger.Fields{
		"request_id": req.Header.Get(domain.HeaderRequestID),
		"method":     req.Method,
		"target":     req.Target(),
		"error_code": domain.ErrAuthExpired.Code(),
	}

	if _, ok := g.excluded[req.Target()]; ok {
		fields["action"] = "recovery_skipped_auth_endpoint"
		g.log.WithFields(ctx, fields).Debug("auth endpoint rejected credentials, not recovering")
		return domain.Response{}, cause
	}

	creds, err := g.store.Get(ctx)
	if err != nil {
		return domain.Response{}, fmt.Errorf("failed to read credentials: %w", err)
	}

	if token, ok := newerToken(creds, attempt); ok {
		fields["action"] = "replay_with_stored_token"
		g.log.WithFields(ctx, fields).Debug("credentials changed while request was in flight, replaying")
		return g.replay(ctx, attempt.Retry(token))
	}

	if creds.RefreshToken == "" {
		fields["action"] = "recovery_no_refresh_token"
		g.log.WithFields(ctx, fields).Warn("access token rejected and no refresh token is available")
		return domain.Response{}, domain.ErrAuthUnrecoverable.WithCause(cause)
	}

	ticket := g.coordinator.Join()
	if !ticket.Leader() {
		fields["action"] = "awaiting_refresh"
		g.log.WithFields(ctx, fields).Debug("refresh in flight, request queued")

		token, err := ticket.Wait(ctx)
		if err != nil {
			return domain.Response{}, err
		}
		return g.replay(ctx, attempt.Retry(token))
	}

	token, err := g.lead(ctx, ticket, attempt)
	if err != nil {
		return domain.Response{}, err
	}
	return g.replay(ctx, attempt.Retry(token))
}

// lead runs the refresh for the current wave and settles every queued waiter,
// also when the refresh path panics. The refresh is detached from the
// leader's cancellation.
func (g *Gateway) lead(ctx context.Context, ticket *Ticket, attempt domain.Attempt) (string, error) {
	defer func() {
		if r := recover(); r != nil {
			if !ticket.Settled() {
				recordRefresh("panic")
				ticket.Settle("", domain.ErrAuthUnrecoverable.WithCause(fmt.Errorf("refresh panicked: %v", r)))
			}
			panic(r)
		}
	}()

	refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.refreshTimeout)
	defer cancel()

	creds, err := g.store.Get(refreshCtx)
	if err != nil {
		err = domain.ErrAuthUnrecoverable.WithCause(fmt.Errorf("failed to read credentials: %w", err))
		ticket.Settle("", err)
		return "", err
	}

	// A wave that settled between our failure and Join already replaced the pair.
	if token, ok := newerToken(creds, attempt); ok {
		ticket.Settle(token, nil)
		return token, nil
	}

	if creds.RefreshToken == "" {
		return g.fail(ctx, ticket, creds, domain.ErrAuthUnrecoverable.WithCause(errors.New("refresh token disappeared before refresh")))
	}

	start := time.Now()
	pair, err := g.refresh(refreshCtx, creds.RefreshToken)
	observeRefreshDuration(time.Since(start))

	if err == nil {
		err = pair.Validate()
	}
	if err == nil {
		swapped, swapErr := g.store.CompareAndSwap(refreshCtx, creds.RefreshToken, pair)
		switch {
		case swapErr != nil:
			err = fmt.Errorf("failed to store refreshed credentials: %w", swapErr)
		case !swapped:
			recordRefresh("superseded")
			return g.adopt(ctx, ticket, domain.ErrAuthUnrecoverable.WithCause(errors.New("credentials replaced during refresh")))
		}
	}
	if err != nil {
		recordRefresh("failure")
		err = domain.ErrAuthUnrecoverable.WithCause(err)
		g.log.WithFields(ctx, logger.Fields{
			"action": "refresh_failed",
		}).Warnf("credential refresh failed: %v", err)
		return g.fail(ctx, ticket, creds, err)
	}

	recordRefresh("success")
	settled := ticket.Settle(pair.AccessToken, nil)
	g.log.WithFields(ctx, logger.Fields{
		"action":  "refresh_success",
		"settled": settled,
	}).Info("credentials refreshed")
	return pair.AccessToken, nil
}

// fail ends a wave whose refresh did not produce usable credentials. The pair
// the wave started from is cleared before waiters are released so none of them
// replays with it. A pair written meanwhile by a login is left alone.
func (g *Gateway) fail(ctx context.Context, ticket *Ticket, creds domain.CredentialPair, err error) (string, error) {
	detached := context.WithoutCancel(ctx)

	held := creds.Held()
	if held {
		cleared, clearErr := g.store.CompareAndSwap(detached, creds.RefreshToken, domain.CredentialPair{})
		switch {
		case clearErr != nil:
			g.log.WithFields(ctx, logger.Fields{
				"action": "credentials_clear_failed",
			}).Errorf("failed to clear credentials: %v", clearErr)
		case !cleared:
			return g.adopt(ctx, ticket, err)
		}
	}

	settled := ticket.Settle("", err)
	g.log.WithFields(ctx, logger.Fields{
		"action":  "refresh_wave_failed",
		"settled": settled,
		"held":    held,
	}).Info("pending requests rejected")

	if held && g.onLogout != nil {
		recordLogoutSignal()
		g.onLogout(detached, err)
	}
	return "", err
}

// adopt settles a wave whose starting pair was replaced while it refreshed.
// Waiters replay with the pair now stored; with nothing stored the wave fails
// with failure and no logout signal, since the session was ended elsewhere.
func (g *Gateway) adopt(ctx context.Context, ticket *Ticket, failure error) (string, error) {
	current, err := g.store.Get(context.WithoutCancel(ctx))
	if err == nil && current.AccessToken != "" {
		settled := ticket.Settle(current.AccessToken, nil)
		g.log.WithFields(ctx, logger.Fields{
			"action":  "refresh_superseded",
			"settled": settled,
		}).Info("credentials replaced during refresh, replaying with stored pair")
		return current.AccessToken, nil
	}

	ticket.Settle("", failure)
	g.log.WithFields(ctx, logger.Fields{
		"action": "refresh_superseded_empty",
	}).Info("credentials cleared during refresh")
	return "", failure
}

func (g *Gateway) refresh(ctx context.Context, refreshToken string) (domain.CredentialPair, error) {
	if g.breaker == nil {
		return g.refresher.Refresh(ctx, refreshToken)
	}

	var pair domain.CredentialPair
	err := g.breaker.Call(ctx, func(ctx context.Context) error {
		p, err := g.refresher.Refresh(ctx, refreshToken)
		if err != nil {
			return err
		}
		pair = p
		return nil
	})
	return pair, err
}

func (g *Gateway) replay(ctx context.Context, attempt domain.Attempt) (domain.Response, error) {
	resp, err := g.transport.Dispatch(ctx, attempt.Outbound())
	if err == nil {
		recordReplay("success")
		return resp, nil
	}
	if g.classifier.IsAuthExpired(err) {
		recordReplay("auth_expired")
		return domain.Response{}, domain.ErrRetryExhausted.WithCause(err)
	}
	recordReplay("error")
	return domain.Response{}, err
}

func newerToken(creds domain.CredentialPair, attempt domain.Attempt) (string, bool) {
	if creds.AccessToken == "" || creds.AccessToken == attempt.Token() {
		return "", false
	}
	return creds.AccessToken, true
}
