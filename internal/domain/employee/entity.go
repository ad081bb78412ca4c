package employee

import "time"

// Employee is the subset of the HR employee record the attendance engine reads.
type Employee struct {
	ID             string
	EmployeeNumber string
	CompanyID      string
	ShiftID        *string
	Status         EmploymentStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type EmploymentStatus string

const (
	EmploymentStatusActive     EmploymentStatus = "active"
	EmploymentStatusResigned   EmploymentStatus = "resigned"
	EmploymentStatusTerminated EmploymentStatus = "terminated"
)

func (e Employee) HasShift() bool {
	return e.ShiftID != nil && *e.ShiftID != ""
}
