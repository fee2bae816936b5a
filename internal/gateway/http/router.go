package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Falconext/pos-web-sub003/internal/common/constants"
	commonhttp "github.com/Falconext/pos-web-sub003/internal/common/http"
	"github.com/Falconext/pos-web-sub003/internal/common/logger"
	"github.com/Falconext/pos-web-sub003/internal/gateway/domain"
	"github.com/Falconext/pos-web-sub003/internal/gateway/service"
)

type Sender interface {
	Send(ctx context.Context, req domain.Request) (domain.Response, error)
}

type Sessions interface {
	Login(ctx context.Context, username, password string) error
	Logout(ctx context.Context) error
	Status(ctx context.Context) (service.SessionStatus, error)
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
}

type sessionResponse struct {
	Authenticated bool       `json:"authenticated"`
	Subject       string     `json:"subject,omitempty"`
	Username      string     `json:"username,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	TokenExpired  bool       `json:"token_expired"`
	Expired       bool       `json:"expired"`
}

// statusClientClosedRequest marks proxied calls the local client abandoned.
const statusClientClosedRequest = 499

// forwardedHeaders are copied from the local request to the upstream call.
var forwardedHeaders = []string{
	"Accept",
	"Accept-Language",
	"Content-Type",
	domain.HeaderRequestID,
}

type Handler struct {
	gateway  Sender
	sessions Sessions
	validate *validator.Validate
	log      *logger.Logger
}

func NewRouter(gateway Sender, sessions Sessions, loginLimiter *commonhttp.RateLimiter, log *logger.Logger) http.Handler {
	h := &Handler{
		gateway:  gateway,
		sessions: sessions,
		validate: validator.New(),
		log:      log,
	}

	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		commonhttp.WriteErrorCode(w, http.StatusNotFound, commonhttp.CodeUnknown, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		commonhttp.WriteErrorCode(w, http.StatusMethodNotAllowed, commonhttp.CodeMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", commonhttp.HealthHandler("gateway", log))
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/session", h.status)
	if loginLimiter != nil {
		r.With(loginLimiter.Middleware).Post("/session/login", h.login)
	} else {
		r.Post("/session/login", h.login)
	}
	r.Post("/session/logout", h.logout)

	r.Handle("/api/*", http.HandlerFunc(h.proxy))

	return r
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.log.Warnf("session login failed: invalid json: %v", err)
		commonhttp.WriteErrorCode(w, http.StatusBadRequest, commonhttp.CodeInvalidJSON, "invalid json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		commonhttp.WriteErrorCode(w, http.StatusBadRequest, commonhttp.CodeBadRequest, "username and password are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), constants.DefaultUpstreamTimeout)
	defer cancel()

	if err := h.sessions.Login(ctx, req.Username, req.Password); err != nil {
		var statusErr *domain.StatusError
		switch {
		case errors.As(err, &statusErr) && statusErr.StatusCode < http.StatusInternalServerError:
			commonhttp.WriteErrorCode(w, http.StatusUnauthorized, commonhttp.CodeInvalidCredential, "invalid credentials")
		default:
			h.log.WithFields(r.Context(), logger.Fields{
				"action": "session_login_upstream_failed",
			}).Errorf("login failed: %v", err)
			commonhttp.WriteErrorCode(w, http.StatusBadGateway, commonhttp.CodeUpstreamFailure, "login failed")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(r.Context()); err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	st, err := h.sessions.Status(r.Context())
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	resp := sessionResponse{
		Authenticated: st.Authenticated,
		Subject:       st.Subject,
		Username:      st.Username,
		TokenExpired:  st.TokenExpired,
		Expired:       st.SessionLost,
	}
	if !st.ExpiresAt.IsZero() {
		exp := st.ExpiresAt
		resp.ExpiresAt = &exp
	}
	commonhttp.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) proxy(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		commonhttp.WriteErrorCode(w, http.StatusRequestEntityTooLarge, commonhttp.CodeBodyTooLarge, "request body too large")
		return
	}

	path := r.URL.Path
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}

	header := make(http.Header)
	for _, name := range forwardedHeaders {
		if v := r.Header.Get(name); v != "" {
			header.Set(name, v)
		}
	}

	resp, err := h.gateway.Send(r.Context(), domain.Request{
		Method: r.Method,
		Path:   path,
		Header: header,
		Body:   body,
	})
	if err != nil {
		h.writeProxyError(w, r, err)
		return
	}

	writeUpstream(w, resp.StatusCode, resp.Header, resp.Body)
}

func (h *Handler) writeProxyError(w http.ResponseWriter, r *http.Request, err error) {
	var statusErr *domain.StatusError
	switch {
	case errors.Is(err, domain.ErrAuthUnrecoverable), errors.Is(err, domain.ErrRetryExhausted):
		commonhttp.WriteErrorCode(w, http.StatusUnauthorized, commonhttp.CodeSessionExpired, "session expired, log in again")
	case errors.As(err, &statusErr):
		writeUpstream(w, statusErr.StatusCode, statusErr.Header, statusErr.Body)
	case errors.Is(err, domain.ErrUpstreamBodyTooLarge):
		h.log.WithFields(r.Context(), logger.Fields{
			"action":     "proxy_upstream_too_large",
			"path":       r.URL.Path,
			"error_code": domain.ErrUpstreamBodyTooLarge.Code(),
		}).Warnf("upstream response rejected: %v", err)
		commonhttp.WriteErrorCode(w, http.StatusBadGateway, commonhttp.CodeUpstreamTooLarge, "upstream response too large")
	case errors.Is(err, context.Canceled):
		h.log.WithFields(r.Context(), logger.Fields{
			"action": "proxy_cancelled",
		}).Debug("client went away")
		// Nobody reads this; it only shows up in access logs and metrics.
		w.WriteHeader(statusClientClosedRequest)
	case errors.Is(err, context.DeadlineExceeded):
		commonhttp.WriteErrorCode(w, http.StatusGatewayTimeout, commonhttp.CodeUpstreamFailure, "upstream timed out")
	default:
		h.log.WithFields(r.Context(), logger.Fields{
			"action": "proxy_upstream_failed",
			"path":   r.URL.Path,
		}).Errorf("upstream call failed: %v", err)
		commonhttp.WriteErrorCode(w, http.StatusBadGateway, commonhttp.CodeUpstreamFailure, "upstream unavailable")
	}
}

func writeUpstream(w http.ResponseWriter, status int, header http.Header, body []byte) {
	if ct := header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	} else if json.Valid(body) {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
