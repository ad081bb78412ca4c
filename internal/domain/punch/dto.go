package punch

import (
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/validator"
)

type ListPunchesRequest struct {
	EmployeeNumber string `json:"employee_number"`
	Date           string `json:"date"`
}

func (r *ListPunchesRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeNumber) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_number",
			Message: "employee_number is required",
		})
	}
	if validator.IsEmpty(r.Date) {
		errs = append(errs, validator.ValidationError{
			Field:   "date",
			Message: "date is required",
		})
	} else if _, ok := validator.IsValidDate(r.Date); !ok {
		errs = append(errs, validator.ValidationError{
			Field:   "date",
			Message: "date must be in YYYY-MM-DD format",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type PunchResponse struct {
	ID              string  `json:"id"`
	BiometricNumber int64   `json:"biometric_number"`
	EmployeeNumber  *string `json:"employee_number"`
	DeviceID        string  `json:"device_id"`
	PunchedAt       string  `json:"punched_at"`
}

func NewPunchResponse(p Punch) PunchResponse {
	return PunchResponse{
		ID:              p.ID,
		BiometricNumber: p.BiometricNumber,
		EmployeeNumber:  p.EmployeeNumber,
		DeviceID:        p.DeviceID,
		PunchedAt:       p.PunchedAt.Format(time.RFC3339),
	}
}

// IngestResult counts what a pull did with the events a terminal returned.
type IngestResult struct {
	Terminal   string `json:"terminal"`
	Fetched    int    `json:"fetched"`
	Inserted   int    `json:"inserted"`
	Duplicates int    `json:"duplicates"`
	Unresolved int    `json:"unresolved"`
	Invalid    int    `json:"invalid"`
	Error      string `json:"error,omitempty"`
}
