package http

import (
	"context"
	"net/http"
	"runtime/debug"

	"github.com/google/uuid"

	"github.com/Falconext/pos-web-sub003/internal/common/constants"
	"github.com/Falconext/pos-web-sub003/internal/common/httpmetrics"
	"github.com/Falconext/pos-web-sub003/internal/common/logger"
)

const traceIDHeader = "X-Trace-ID"

// BuildBaseHandler wraps a service router in the middleware every binary
// shares. Outermost first: headers, trace id, panic recovery, body limit,
// metrics.
func BuildBaseHandler(service string, log *logger.Logger, handler http.Handler) http.Handler {
	chain := []func(http.Handler) http.Handler{
		SecurityHeadersMiddleware,
		TraceIDMiddleware,
		RecoveryMiddleware(log),
		MaxRequestSizeMiddleware(constants.DefaultMaxRequestSize),
		httpmetrics.New(service).Wrap,
	}
	for i := len(chain) - 1; i >= 0; i-- {
		handler = chain[i](handler)
	}
	return handler
}

func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// TraceIDMiddleware keeps a caller supplied X-Trace-ID or mints one, and makes
// it available to loggers through the request context.
func TraceIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(traceIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(traceIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), constants.TraceIDKey, id)))
	})
}

func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(constants.TraceIDKey).(string)
	return id
}

func RecoveryMiddleware(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.WithFields(r.Context(), logger.Fields{
					"path":   r.URL.Path,
					"action": "panic_recovered",
				}).Criticalf("panic recovered: %v\n%s", rec, debug.Stack())
				writeEnvelope(w, http.StatusInternalServerError, CodeUnknown, "internal server error", TraceIDFromContext(r.Context()))
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// MaxRequestSizeMiddleware rejects declared oversize bodies up front and caps
// the rest while they are read.
func MaxRequestSizeMiddleware(limit int64) func(http.Handler) http.Handler {
	if limit <= 0 {
		limit = constants.DefaultMaxRequestSize
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				WriteErrorCode(w, http.StatusRequestEntityTooLarge, CodeBodyTooLarge, "request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
