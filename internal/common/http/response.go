package http

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
)

// errorBody is the envelope every non-2xx response produced locally carries.
// Proxied upstream errors are passed through untouched and never use it.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteErrorCode writes an error envelope, echoing the trace id the trace
// middleware already put on the response.
func WriteErrorCode(w http.ResponseWriter, status int, code, message string) {
	writeEnvelope(w, status, code, message, w.Header().Get(traceIDHeader))
}

func writeEnvelope(w http.ResponseWriter, status int, code, message, traceID string) {
	WriteJSON(w, status, errorBody{Code: code, Message: message, TraceID: traceID})
}

func DecodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// ClientIP keys rate limiting. Proxy headers win over the socket address
// because the gateway normally sits behind the terminal's local proxy.
func ClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
