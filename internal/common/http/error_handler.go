package http

import (
	"net/http"
	"strconv"

	commonerrors "github.com/Falconext/pos-web-sub003/internal/common/errors"
	"github.com/Falconext/pos-web-sub003/internal/common/httpmetrics"
	"github.com/Falconext/pos-web-sub003/internal/common/logger"
	"github.com/Falconext/pos-web-sub003/internal/observability/metrics"
)

// HandleError writes err as an error envelope. Domain errors keep their code
// and status; anything else is logged and hidden behind a 500.
func HandleError(w http.ResponseWriter, r *http.Request, err error, log *logger.Logger) {
	if err == nil {
		return
	}
	ctx := r.Context()
	path := httpmetrics.NormalizePath(r.URL.Path)

	status, code, message := http.StatusInternalServerError, CodeUnknown, "internal server error"
	if de, ok := commonerrors.AsDomainError(err); ok {
		status, code, message = de.HTTPStatus(), de.Code(), de.Message()
		metrics.DomainErrorsTotal.WithLabelValues(string(de.Category()), code, strconv.Itoa(status)).Inc()
		if log.Enabled(logger.DEBUG) {
			log.WithFields(ctx, logger.Fields{
				"error_code": code,
				"category":   string(de.Category()),
				"status":     status,
				"action":     "domain_error",
			}).Debugf("domain error: %v", err)
		}
	} else {
		log.WithFields(ctx, logger.Fields{
			"path":   path,
			"action": "unhandled_error",
		}).Errorf("unhandled error: %v", err)
	}

	metrics.HTTPErrorsTotal.WithLabelValues(strconv.Itoa(status), path, r.Method).Inc()
	writeEnvelope(w, status, code, message, TraceIDFromContext(ctx))
}
