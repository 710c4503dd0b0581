package auth

import "errors"

var (
	ErrTokenInvalid   = errors.New("auth: invalid token")
	ErrMissingSecret  = errors.New("auth: jwt secret not configured")
	ErrMissingSubject = errors.New("auth: token subject is empty")
)
