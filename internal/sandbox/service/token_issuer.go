package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Falconext/pos-web-sub003/internal/common/clock"
	commoncrypto "github.com/Falconext/pos-web-sub003/internal/common/crypto"
	commonerrors "github.com/Falconext/pos-web-sub003/internal/common/errors"
	"github.com/Falconext/pos-web-sub003/internal/common/jwtverify"
	"github.com/Falconext/pos-web-sub003/internal/observability/metrics"
	"github.com/Falconext/pos-web-sub003/internal/sandbox/domain"
)

// TokenIssuer signs sandbox access tokens and verifies them for the
// protected routes. Both sides use one HS256 key and the same clock, so a
// mock clock expires tokens in tests.
type TokenIssuer struct {
	key    []byte
	ids    commoncrypto.IDGenerator
	clock  clock.Clock
	ttl    time.Duration
	parser *jwt.Parser
}

func NewTokenIssuer(
	secret string,
	ids commoncrypto.IDGenerator,
	ttl time.Duration,
	clk clock.Clock,
) *TokenIssuer {
	return &TokenIssuer{
		key:   []byte(secret),
		ids:   ids,
		clock: clk,
		ttl:   ttl,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(clk.Now),
		),
	}
}

func (ti *TokenIssuer) IssueAccessToken(user domain.Account) (string, error) {
	tokenID, err := ti.ids.NewID()
	if err != nil {
		return "", fmt.Errorf("failed to generate token id: %w", err)
	}

	claims := domain.NewAccessClaims(user, tokenID, ti.clock.Now(), ti.ttl)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	metrics.SandboxAccessTokensIssued.Inc()
	return signed, nil
}

// Verify fails expired tokens with commonerrors.ErrTokenExpired and every
// other rejection with ErrInvalidToken.
func (ti *TokenIssuer) Verify(token string) (jwtverify.Identity, error) {
	var claims domain.AccessClaims
	_, err := ti.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return ti.key, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return jwtverify.Identity{}, commonerrors.ErrTokenExpired.WithCause(err)
	case err != nil:
		return jwtverify.Identity{}, commonerrors.ErrInvalidToken.WithCause(err)
	}

	return jwtverify.Identity{
		UserID:   string(claims.UserID()),
		Username: claims.Username,
		TokenID:  claims.ID,
	}, nil
}
