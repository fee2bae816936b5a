package httpmetrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/Falconext/pos-web-sub003/internal/observability/metrics"
)

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"":                                  "/",
		"/":                                 "/",
		"/api/orders/1842":                  "/api/orders/{id}",
		"/api/orders/77/items/":             "/api/orders/{id}/items",
		"/api/users/3f2b8c1e-9a4d-4e5f-8b6a-0c1d2e3f4a5b": "/api/users/{id}",
		"/api/receipts/eyJhbGciOiJIUzI1NiJ9abc":           "/api/receipts/{id}",
		"/api/inventory_adjustments_pending_review":       "/api/inventory_adjustments_pending_review",
		"/api/a/b/c/d/e":                                  "/api/a/b/c/*",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizePath(in), in)
	}
}

func TestCollector_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/session/{kind}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Handle("/api/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	service := "collector-" + t.Name()
	h := New(service).Wrap(r)

	for _, path := range []string{"/session/status", "/api/orders/1", "/api/orders/2", "/missing"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(service, http.MethodGet, "/session/{kind}")))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(service, http.MethodGet, "/api/orders/{id}")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(service, http.MethodGet, "unmatched")))
}
