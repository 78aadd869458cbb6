package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidPassword   = errors.New("invalid password")
	ErrUserBanned        = errors.New("user is banned")

	// Bearer credential missing or not parseable from request
	ErrNotAuthenticated = errors.New("not authenticated")

	// Token could not be decoded: bad signature, expired, wrong scope
	ErrRefreshTokenInvalid = errors.New("refresh token is invalid")
	ErrAccessTokenInvalid  = errors.New("access token is invalid")

	// Token decoded fine but it is not the one stored for the user
	ErrRefreshTokenMismatch = errors.New("refresh token does not match stored one")

	// Token was revoked with logout
	ErrRefreshTokenRevoked = errors.New("refresh token is revoked")
)
