package http

const (
	CodeUnknown           = "UNKNOWN"
	CodeMethodNotAllowed  = "METHOD_NOT_ALLOWED"
	CodeInvalidJSON       = "INVALID_JSON"
	CodeBadRequest        = "BAD_REQUEST"
	CodeRateLimited       = "RATE_LIMITED"
	CodeBodyTooLarge      = "BODY_TOO_LARGE"
	CodeSessionExpired    = "SESSION_EXPIRED"
	CodeUpstreamFailure   = "UPSTREAM_FAILURE"
	CodeUpstreamTooLarge  = "UPSTREAM_TOO_LARGE"
	CodeInvalidCredential = "INVALID_CREDENTIALS"
)
