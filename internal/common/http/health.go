package http

import (
	"net/http"

	"github.com/Falconext/pos-web-sub003/internal/common/logger"
)

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// HealthHandler reports liveness only; it touches no upstream or store.
func HealthHandler(service string, log *logger.Logger) http.HandlerFunc {
	body := healthResponse{Status: "ok", Service: service}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			WriteErrorCode(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
			return
		}
		log.Debug("health check")
		WriteJSON(w, http.StatusOK, body)
	}
}
