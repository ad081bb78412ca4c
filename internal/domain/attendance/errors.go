package attendance

import "errors"

var (
	ErrRecordNotFound = errors.New("attendance record not found")
	ErrDuplicateKey   = errors.New("attendance record already exists for employee and date")
	ErrRunInProgress  = errors.New("an attendance run is already in progress")
)
