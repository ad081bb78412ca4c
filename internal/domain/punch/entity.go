package punch

import "time"

// Punch is a single clock event stored from a terminal. Rows are append-only.
type Punch struct {
	ID              string
	BiometricNumber int64
	EmployeeNumber  *string
	DeviceID        string
	PunchedAt       time.Time
	CreatedAt       time.Time
}

func (p Punch) Resolved() bool {
	return p.EmployeeNumber != nil && *p.EmployeeNumber != ""
}
