package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Falconext/pos-web-sub003/internal/common/clock"
	"github.com/Falconext/pos-web-sub003/internal/common/constants"
	commoncrypto "github.com/Falconext/pos-web-sub003/internal/common/crypto"
	"github.com/Falconext/pos-web-sub003/internal/common/logger"
	"github.com/Falconext/pos-web-sub003/internal/observability/metrics"
	"github.com/Falconext/pos-web-sub003/internal/sandbox/domain"
)

// AuthService is the sandbox's stand-in for a real POS auth backend: fixed
// accounts, short lived access tokens and single use refresh tokens.
type AuthService struct {
	byName        map[string]domain.Account
	byID          map[domain.UserID]domain.Account
	hasher        commoncrypto.PasswordHasher
	issuer        *TokenIssuer
	refreshTokens *RefreshTokenStore
	refreshTTL    time.Duration
	clock         clock.Clock
	log           *logger.Logger
}

// NewAuthService hashes the configured passwords once at startup. accounts
// maps usernames to plain passwords.
func NewAuthService(
	accounts map[string]string,
	hasher commoncrypto.PasswordHasher,
	ids commoncrypto.IDGenerator,
	issuer *TokenIssuer,
	refreshTokens *RefreshTokenStore,
	refreshTTL time.Duration,
	clk clock.Clock,
	log *logger.Logger,
) (*AuthService, error) {
	s := &AuthService{
		byName:        make(map[string]domain.Account, len(accounts)),
		byID:          make(map[domain.UserID]domain.Account, len(accounts)),
		hasher:        hasher,
		issuer:        issuer,
		refreshTokens: refreshTokens,
		refreshTTL:    refreshTTL,
		clock:         clk,
		log:           log,
	}
	for username, password := range accounts {
		hash, err := hasher.Hash(password)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", username, err)
		}
		id, err := ids.NewID()
		if err != nil {
			return nil, fmt.Errorf("assign id to %s: %w", username, err)
		}
		acct := domain.Account{ID: domain.UserID(id), Username: username, PasswordHash: hash}
		s.byName[username] = acct
		s.byID[acct.ID] = acct
	}
	return s, nil
}

type LoginInput struct {
	Username string
	Password string
}

func (in LoginInput) valid() bool {
	return in.Username != "" && in.Password != "" &&
		len(in.Username) <= constants.UsernameMaxLength &&
		len(in.Password) <= constants.PasswordMaxLength
}

type AuthResult struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	if !input.valid() {
		return AuthResult{}, domain.ErrLoginInput
	}

	acct, ok := s.byName[input.Username]
	if !ok {
		return AuthResult{}, s.rejectLogin(ctx, input.Username, "login_user_not_found")
	}
	if err := s.hasher.Compare(acct.PasswordHash, input.Password); err != nil {
		return AuthResult{}, s.rejectLogin(ctx, input.Username, "login_invalid_password")
	}

	result, err := s.issue(acct)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"username": acct.Username,
			"action":   "login_token_issue_failed",
		}).Errorf("login failed: %v", err)
		return AuthResult{}, err
	}

	s.log.WithFields(ctx, logger.Fields{
		"username": acct.Username,
		"user_id":  string(acct.ID),
		"action":   "login_success",
	}).Info("login success")
	return result, nil
}

// RefreshAccessToken rotates refreshToken: the presented token is consumed
// whatever the outcome, and a fresh pair is issued when it was still valid.
func (s *AuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (AuthResult, error) {
	if refreshToken == "" {
		return AuthResult{}, s.rejectRefresh(ctx, "missing", "", domain.ErrRefreshTokenUnknown)
	}

	stored, ok := s.refreshTokens.Take(HashRefreshToken(refreshToken))
	switch {
	case !ok:
		return AuthResult{}, s.rejectRefresh(ctx, "unknown", "", domain.ErrRefreshTokenUnknown)
	case stored.Expired(s.clock.Now()):
		return AuthResult{}, s.rejectRefresh(ctx, "expired", stored.UserID, domain.ErrRefreshTokenExpired)
	}

	acct, ok := s.byID[stored.UserID]
	if !ok {
		return AuthResult{}, s.rejectRefresh(ctx, "unknown_user", stored.UserID, domain.ErrRefreshTokenUnknown)
	}

	result, err := s.issue(acct)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": string(acct.ID),
			"action":  "refresh_token_issue_failed",
		}).Errorf("refresh failed: %v", err)
		return AuthResult{}, err
	}

	metrics.SandboxRefreshTokensUsed.Inc()
	s.log.WithFields(ctx, logger.Fields{
		"user_id": string(acct.ID),
		"action":  "refresh_token_success",
	}).Info("refresh token rotated")
	return result, nil
}

func (s *AuthService) RevokeRefreshToken(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}
	s.refreshTokens.Delete(HashRefreshToken(refreshToken))
	s.log.WithFields(ctx, logger.Fields{"action": "refresh_token_revoked"}).Info("refresh token revoked")
}

func (s *AuthService) rejectLogin(ctx context.Context, username, action string) error {
	s.log.WithFields(ctx, logger.Fields{
		"username": username,
		"action":   action,
	}).Warn("login rejected")
	return domain.ErrInvalidCredentials
}

func (s *AuthService) rejectRefresh(ctx context.Context, reason string, user domain.UserID, err error) error {
	metrics.SandboxRefreshTokensRejected.WithLabelValues(reason).Inc()
	fields := logger.Fields{"action": "refresh_token_rejected", "reason": reason}
	if user != "" {
		fields["user_id"] = string(user)
	}
	s.log.WithFields(ctx, fields).Warn("refresh rejected")
	return err
}

func (s *AuthService) issue(acct domain.Account) (AuthResult, error) {
	access, err := s.issuer.IssueAccessToken(acct)
	if err != nil {
		return AuthResult{}, err
	}
	raw, err := GenerateRefreshToken()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate refresh token: %w", err)
	}

	now := s.clock.Now()
	record := domain.RefreshToken{
		Hash:      HashRefreshToken(raw),
		UserID:    acct.ID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.refreshTTL),
	}
	s.refreshTokens.Save(record)
	metrics.SandboxRefreshTokensIssued.Inc()

	return AuthResult{
		AccessToken:      access,
		RefreshToken:     raw,
		RefreshExpiresAt: record.ExpiresAt,
	}, nil
}
