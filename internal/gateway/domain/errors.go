package domain

import (
	"net/http"

	commonerrors "github.com/Falconext/pos-web-sub003/internal/common/errors"
)

var (
	ErrAuthExpired = commonerrors.NewDomainError(
		"AUTH_EXPIRED",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"access token expired",
	)

	ErrAuthUnrecoverable = commonerrors.NewDomainError(
		"AUTH_UNRECOVERABLE",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"session cannot be recovered",
	)

	ErrRetryExhausted = commonerrors.NewDomainError(
		"RETRY_EXHAUSTED",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"request still unauthorized after refresh",
	)

	ErrInvalidTokenResponse = commonerrors.NewDomainError(
		"INVALID_TOKEN_RESPONSE",
		commonerrors.CategoryExternal,
		http.StatusBadGateway,
		"token response is missing a token",
	)

	ErrUpstreamBodyTooLarge = commonerrors.NewDomainError(
		"UPSTREAM_BODY_TOO_LARGE",
		commonerrors.CategoryExternal,
		http.StatusBadGateway,
		"upstream response body exceeds the size limit",
	)

	ErrPartialCredential = commonerrors.NewDomainError(
		"PARTIAL_CREDENTIAL",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"credential pair must carry both tokens",
	)
)
