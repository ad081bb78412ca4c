package biometric

import "errors"

var (
	ErrSourceUnavailable  = errors.New("biometric terminal unavailable")
	ErrUnresolvedIdentity = errors.New("biometric number has no enrollment")
	ErrInvalidUserID      = errors.New("device user id is not a biometric number")
)
