package domain

import (
	"net/http"

	commonerrors "github.com/Falconext/pos-web-sub003/internal/common/errors"
)

// Refresh rejections are all 401 so a gateway treats every one of them as a
// lost session. Only the code tells them apart.
var (
	ErrInvalidCredentials = commonerrors.NewDomainError(
		"INVALID_CREDENTIALS",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"invalid username or password",
	)

	ErrLoginInput = commonerrors.NewDomainError(
		"LOGIN_INPUT_INVALID",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"username and password are required and bounded in length",
	)

	ErrRefreshTokenUnknown = commonerrors.NewDomainError(
		"REFRESH_TOKEN_UNKNOWN",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"refresh token was never issued or is already used",
	)

	ErrRefreshTokenExpired = commonerrors.NewDomainError(
		"REFRESH_TOKEN_EXPIRED",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"refresh token expired",
	)
)
