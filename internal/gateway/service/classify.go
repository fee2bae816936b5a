package service

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Falconext/pos-web-sub003/internal/gateway/domain"
)

// Classifier decides which upstream failures mean the access token expired.
type Classifier struct {
	codes map[string]struct{}
}

func NewClassifier(expiredCodes []int) Classifier {
	codes := make(map[string]struct{}, len(expiredCodes))
	for _, code := range expiredCodes {
		codes[strconv.Itoa(code)] = struct{}{}
	}
	return Classifier{codes: codes}
}

func (c Classifier) IsAuthExpired(err error) bool {
	var statusErr *domain.StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	if statusErr.StatusCode == http.StatusUnauthorized {
		return true
	}
	if statusErr.Code == "" {
		return false
	}
	_, ok := c.codes[statusErr.Code]
	return ok
}

// IsUpstreamOutage reports login and refresh failures that say nothing about
// the credentials themselves: network errors and 5xx answers. Only these trip
// the breaker.
func IsUpstreamOutage(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *domain.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= http.StatusInternalServerError
	}
	return !errors.Is(err, domain.ErrInvalidTokenResponse)
}
