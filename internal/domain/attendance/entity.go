package attendance

import (
	"time"
)

// DateLayout is the civil date layout used for attendance keys.
const DateLayout = "2006-01-02"

// Record is the single attendance row for an employee on a date.
type Record struct {
	ID             string
	EmployeeNumber string
	Date           time.Time // civil date at 00:00 UTC
	Status         Status
	Source         Source
	FirstPunch     *time.Time
	LastPunch      *time.Time
	WorkedMinutes  int
	ShiftID        *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Status string

const (
	StatusPresent    Status = "present"
	StatusAbsent     Status = "absent"
	StatusHalfDay    Status = "half_day"
	StatusLeave      Status = "leave"
	StatusHoliday    Status = "holiday"
	StatusPermission Status = "permission"
)

var StatusValues = []string{
	string(StatusPresent),
	string(StatusAbsent),
	string(StatusHalfDay),
	string(StatusLeave),
	string(StatusHoliday),
	string(StatusPermission),
}

// Derived reports whether the status is one the engine computes from punches.
func (s Status) Derived() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusHalfDay:
		return true
	}
	return false
}

// Source records which workflow wrote a row.
type Source string

const (
	SourceEngine  Source = "engine"
	SourceLeave   Source = "leave"
	SourceHoliday Source = "holiday"
	SourceManual  Source = "manual"
)

// Protected reports whether the engine must leave the row untouched.
func (r Record) Protected() bool {
	return r.Source != SourceEngine || !r.Status.Derived()
}

// SameOutcome reports whether r and o carry the same classification result.
func (r Record) SameOutcome(o Record) bool {
	return r.Status == o.Status &&
		r.WorkedMinutes == o.WorkedMinutes &&
		equalTimePtr(r.FirstPunch, o.FirstPunch) &&
		equalTimePtr(r.LastPunch, o.LastPunch)
}

// CivilDate truncates t to its calendar date in loc, returned at 00:00 UTC.
func CivilDate(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
