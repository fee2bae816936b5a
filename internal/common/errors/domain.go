package commonerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCategory groups codes for metrics labels and log fields.
type ErrorCategory string

const (
	CategoryValidation   ErrorCategory = "VALIDATION"
	CategoryUnauthorized ErrorCategory = "UNAUTHORIZED"
	CategoryExternal     ErrorCategory = "EXTERNAL"
)

// DomainError is an error that knows how it is rendered to a client: a
// stable code, an HTTP status and a message safe to expose.
type DomainError interface {
	error
	Code() string
	Category() ErrorCategory
	HTTPStatus() int
	Message() string
	Unwrap() error
	WithCause(cause error) DomainError
}

type domainError struct {
	code     string
	category ErrorCategory
	status   int
	message  string
	cause    error
}

func NewDomainError(code string, category ErrorCategory, status int, message string) DomainError {
	return &domainError{code: code, category: category, status: status, message: message}
}

func (e *domainError) Error() string {
	if e.cause == nil {
		return e.message
	}
	return fmt.Sprintf("%s: %v", e.message, e.cause)
}

func (e *domainError) Code() string            { return e.code }
func (e *domainError) Category() ErrorCategory { return e.category }
func (e *domainError) HTTPStatus() int         { return e.status }
func (e *domainError) Message() string         { return e.message }
func (e *domainError) Unwrap() error           { return e.cause }

// Is matches on code, so a sentinel still matches after WithCause.
func (e *domainError) Is(target error) bool {
	t, ok := target.(*domainError)
	return ok && t.code == e.code
}

// WithCause returns a copy; the receiver is usually a shared sentinel.
func (e *domainError) WithCause(cause error) DomainError {
	dup := *e
	dup.cause = cause
	return &dup
}

func AsDomainError(err error) (DomainError, bool) {
	var de DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Configuration errors surface at startup only, hence the 500 status.
var (
	ErrMissingRequiredEnv = NewDomainError(
		"MISSING_REQUIRED_ENV",
		CategoryValidation,
		http.StatusInternalServerError,
		"missing required configuration value",
	)

	ErrInvalidJWTSecret = NewDomainError(
		"INVALID_JWT_SECRET",
		CategoryValidation,
		http.StatusInternalServerError,
		"JWT_SECRET must be at least 32 bytes",
	)
)

var ErrCircuitOpen = NewDomainError(
	"CIRCUIT_OPEN",
	CategoryExternal,
	http.StatusServiceUnavailable,
	"upstream marked unavailable, retry later",
)

// Bearer token rejections shared by the sandbox issuer and its middleware.
var (
	ErrInvalidToken = NewDomainError(
		"INVALID_TOKEN",
		CategoryUnauthorized,
		http.StatusUnauthorized,
		"token is not valid",
	)

	ErrTokenExpired = NewDomainError(
		"TOKEN_EXPIRED",
		CategoryUnauthorized,
		http.StatusUnauthorized,
		"token expired",
	)
)
