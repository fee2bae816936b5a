package jwtverify

import (
	"context"
	"errors"
	"net/http"
	"strings"

	commonerrors "github.com/Falconext/pos-web-sub003/internal/common/errors"
	commonhttp "github.com/Falconext/pos-web-sub003/internal/common/http"
	"github.com/Falconext/pos-web-sub003/internal/common/logger"
	"github.com/Falconext/pos-web-sub003/internal/observability/metrics"
)

// Application error codes written in 401 bodies. Clients refresh on
// CodeTokenExpired.
const (
	CodeTokenInvalid = 20
	CodeTokenExpired = 21
)

// Identity is who a verified bearer token was issued to.
type Identity struct {
	UserID   string
	Username string
	TokenID  string
}

// Verifier checks a bearer token. Expired tokens must fail with
// commonerrors.ErrTokenExpired so the middleware can answer CodeTokenExpired.
type Verifier interface {
	Verify(token string) (Identity, error)
}

type appError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type contextKey struct{}

func Middleware(verifier Verifier, log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				reject(w, r, log, "missing", CodeTokenInvalid, "missing or invalid authorization")
				return
			}

			identity, err := verifier.Verify(token)
			switch {
			case errors.Is(err, commonerrors.ErrTokenExpired):
				reject(w, r, log, "expired", CodeTokenExpired, "token expired")
				return
			case err != nil:
				log.WithFields(r.Context(), logger.Fields{
					"action": "jwt_invalid",
					"path":   r.URL.Path,
				}).Warnf("jwt rejected: %v", err)
				reject(w, r, log, "invalid", CodeTokenInvalid, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, identity)))
		})
	}
}

func FromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(contextKey{}).(Identity)
	return identity, ok
}

func bearerToken(r *http.Request) (string, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return token, ok && token != ""
}

func reject(w http.ResponseWriter, r *http.Request, log *logger.Logger, reason string, code int, message string) {
	log.WithFields(r.Context(), logger.Fields{
		"action": "jwt_rejected",
		"reason": reason,
		"path":   r.URL.Path,
	}).Debug("request rejected")
	metrics.SandboxJWTValidationsFailed.WithLabelValues(reason).Inc()
	commonhttp.WriteJSON(w, http.StatusUnauthorized, appError{Code: code, Message: message})
}
