package shift

import "errors"

var (
	ErrShiftNotFound = errors.New("shift not found")
	ErrMissingShift  = errors.New("employee has no shift assigned")
	ErrInvalidShift  = errors.New("shift must have a positive duration and minimum worked hours within it")
)
