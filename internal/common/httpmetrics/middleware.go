package httpmetrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Falconext/pos-web-sub003/internal/observability/metrics"
)

type Collector struct {
	service string
}

func New(service string) *Collector {
	return &Collector{service: service}
}

type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.written {
		r.status = code
		r.written = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.written = true
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Wrap labels requests by chi route pattern. It seeds the route context so
// the pattern is readable after a chi router further down has matched.
// Wildcard routes, the proxied API, fall back to NormalizePath.
func (c *Collector) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		inFlight := metrics.HTTPRequestsInFlight.WithLabelValues(c.service)
		inFlight.Inc()
		defer inFlight.Dec()

		rctx := chi.RouteContext(r.Context())
		if rctx == nil {
			rctx = chi.NewRouteContext()
			r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := routeLabel(rctx.RoutePattern(), r.URL.Path)
		metrics.HTTPRequestsTotal.WithLabelValues(c.service, r.Method, route).Inc()
		metrics.HTTPRequestDurationSeconds.
			WithLabelValues(c.service, r.Method, route, strconv.Itoa(rec.status/100)+"xx").
			Observe(time.Since(start).Seconds())
	})
}

func routeLabel(pattern, path string) string {
	switch {
	case pattern == "":
		return "unmatched"
	case strings.HasSuffix(pattern, "*"):
		return NormalizePath(path)
	}
	return pattern
}
