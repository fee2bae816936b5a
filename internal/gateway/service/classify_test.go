package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Falconext/pos-web-sub003/internal/gateway/domain"
)

func TestClassifier_IsAuthExpired(t *testing.T) {
	c := NewClassifier([]int{21})

	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"401", &domain.StatusError{StatusCode: http.StatusUnauthorized}, true},
		{"app code 21", &domain.StatusError{StatusCode: http.StatusBadRequest, Code: "21"}, true},
		{"wrapped 401", fmt.Errorf("call: %w", &domain.StatusError{StatusCode: http.StatusUnauthorized}), true},
		{"other app code", &domain.StatusError{StatusCode: http.StatusBadRequest, Code: "22"}, false},
		{"403 without code", &domain.StatusError{StatusCode: http.StatusForbidden}, false},
		{"network", errors.New("dial tcp: refused"), false},
		{"nil", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.IsAuthExpired(tc.err))
		})
	}
}

func TestClassifier_NoCodesOnlyStatus(t *testing.T) {
	c := NewClassifier(nil)
	assert.False(t, c.IsAuthExpired(&domain.StatusError{StatusCode: http.StatusBadRequest, Code: "21"}))
	assert.True(t, c.IsAuthExpired(&domain.StatusError{StatusCode: http.StatusUnauthorized}))
}

func TestIsUpstreamOutage(t *testing.T) {
	assert.True(t, IsUpstreamOutage(errors.New("connection refused")))
	assert.True(t, IsUpstreamOutage(context.DeadlineExceeded))
	assert.True(t, IsUpstreamOutage(&domain.StatusError{StatusCode: http.StatusBadGateway}))
	assert.False(t, IsUpstreamOutage(&domain.StatusError{StatusCode: http.StatusUnauthorized}))
	assert.False(t, IsUpstreamOutage(domain.ErrInvalidTokenResponse.WithCause(errors.New("missing"))))
	assert.False(t, IsUpstreamOutage(nil))
}
