package domain

import (
	"fmt"
	"net/http"
	"strings"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderRequestID     = "X-Request-ID"
)

// Request describes one outbound call. Path is relative to the upstream base
// URL and may carry a query string.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

func (r Request) Clone() Request {
	out := Request{
		Method: r.Method,
		Path:   r.Path,
		Header: r.Header.Clone(),
	}
	if out.Header == nil {
		out.Header = make(http.Header)
	}
	if r.Body != nil {
		out.Body = append([]byte(nil), r.Body...)
	}
	return out
}

// Target is the request path without its query string.
func (r Request) Target() string {
	if idx := strings.IndexByte(r.Path, '?'); idx != -1 {
		return r.Path[:idx]
	}
	return r.Path
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// StatusError is a non-2xx upstream response. Code and Message are the
// application error fields of the body when it carries any.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
	Header     http.Header
	Body       []byte
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("upstream returned status %d", e.StatusCode)
	if e.Code != "" {
		msg += fmt.Sprintf(" (code %s)", e.Code)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}
