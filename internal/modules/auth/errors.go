package auth

import "tapbook/internal/pkg/apperr"

var (
	ErrInvalidCredentials = apperr.New(apperr.KindAuthentication, "INVALID_CREDENTIALS", "invalid email or password")
	ErrEmailAlreadyExists = apperr.New(apperr.KindPolicy, "EMAIL_EXISTS", "this email is already registered")
	ErrInvalidRole        = apperr.New(apperr.KindInput, "INVALID_ROLE", "role must be customer or provider")
	ErrUserNotFound       = apperr.New(apperr.KindNotFound, "USER_NOT_FOUND", "user not found")
)
