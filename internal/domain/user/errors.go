package user

import "errors"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrTokenInvalid      = errors.New("reset token is invalid or expired")
	ErrSessionNotFound   = errors.New("session not found")
)
