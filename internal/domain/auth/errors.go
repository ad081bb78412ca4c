package auth

import "errors"

var (
	ErrInvalidToken     = errors.New("invalid or expired token")
	ErrOperatorRequired = errors.New("owner or manager role required")
)
