package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/Falconext/pos-web-sub003/internal/common/constants"
	"github.com/Falconext/pos-web-sub003/internal/gateway/domain"
)

// Dispatcher performs one upstream call.
type Dispatcher interface {
	Dispatch(ctx context.Context, req domain.Request) (domain.Response, error)
}

type HTTPTransport struct {
	baseURL     string
	client      *http.Client
	maxBodySize int64
}

func NewHTTPTransport(baseURL string, timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = constants.DefaultUpstreamTimeout
	}
	return &HTTPTransport{
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      &http.Client{Timeout: timeout},
		maxBodySize: constants.MaxUpstreamBodySize,
	}
}

func (t *HTTPTransport) Dispatch(ctx context.Context, req domain.Request) (domain.Response, error) {
	var body io.Reader = http.NoBody
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	path := req.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, t.baseURL+path, body)
	if err != nil {
		return domain.Response{}, fmt.Errorf("failed to build request: %w", err)
	}
	if req.Header != nil {
		httpReq.Header = req.Header.Clone()
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return domain.Response{}, fmt.Errorf("%s %s: %w", req.Method, req.Target(), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBodySize+1))
	if err != nil {
		return domain.Response{}, fmt.Errorf("%s %s: read body: %w", req.Method, req.Target(), err)
	}
	tooLarge := int64(len(respBody)) > t.maxBodySize
	if tooLarge {
		respBody = respBody[:t.maxBodySize]
	}

	// Error statuses are classified by status even when the body was cut.
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return domain.Response{}, newStatusError(resp.StatusCode, resp.Header, respBody)
	}
	if tooLarge {
		return domain.Response{}, domain.ErrUpstreamBodyTooLarge.WithCause(
			fmt.Errorf("%s %s: body exceeds %d bytes", req.Method, req.Target(), t.maxBodySize))
	}

	return domain.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

func newStatusError(status int, header http.Header, body []byte) *domain.StatusError {
	statusErr := &domain.StatusError{
		StatusCode: status,
		Header:     header,
		Body:       body,
	}
	if gjson.ValidBytes(body) {
		statusErr.Code = firstScalar(body, "code", "error.code", "data.code", "errorCode")
		statusErr.Message = firstScalar(body, "message", "error.message", "data.message", "error", "msg")
	}
	return statusErr
}

// firstScalar returns the first path that holds a string or number.
func firstScalar(body []byte, paths ...string) string {
	for _, p := range paths {
		r := gjson.GetBytes(body, p)
		if r.Type == gjson.String || r.Type == gjson.Number {
			if s := r.String(); s != "" {
				return s
			}
		}
	}
	return ""
}
