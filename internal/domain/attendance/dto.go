package attendance

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/validator"
)

// ========================================
// RUN REPORT
// ========================================

type RunMode string

const (
	RunModeLive     RunMode = "live"
	RunModeBackfill RunMode = "backfill"
	RunModeDate     RunMode = "date"
)

// WriteOutcome is what the writer did for one (employee, date) key.
type WriteOutcome string

const (
	OutcomeCreated   WriteOutcome = "created"
	OutcomeUpdated   WriteOutcome = "updated"
	OutcomeUnchanged WriteOutcome = "unchanged"
	OutcomeSkipped   WriteOutcome = "skipped"
)

// GroupError is a failure confined to a single (employee, date) group.
type GroupError struct {
	EmployeeNumber string `json:"employee_number"`
	Date           string `json:"date"`
	Err            error  `json:"-"`
	Message        string `json:"error"`
}

func NewGroupError(employeeNumber, date string, err error) GroupError {
	return GroupError{
		EmployeeNumber: employeeNumber,
		Date:           date,
		Err:            err,
		Message:        err.Error(),
	}
}

func (e GroupError) Error() string {
	return e.EmployeeNumber + " " + e.Date + ": " + e.Message
}

func (e GroupError) Unwrap() error {
	return e.Err
}

// RunReport aggregates the result of one orchestrator run.
type RunReport struct {
	RunID      string       `json:"run_id"`
	Mode       RunMode      `json:"mode"`
	Date       string       `json:"date,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Punches    int          `json:"punches"`
	Groups     int          `json:"groups"`
	Created    int          `json:"created"`
	Updated    int          `json:"updated"`
	Unchanged  int          `json:"unchanged"`
	Skipped    int          `json:"skipped"`
	Errors     []GroupError `json:"errors"`
}

func (r *RunReport) Count(outcome WriteOutcome) {
	switch outcome {
	case OutcomeCreated:
		r.Created++
	case OutcomeUpdated:
		r.Updated++
	case OutcomeUnchanged:
		r.Unchanged++
	case OutcomeSkipped:
		r.Skipped++
	}
}

func (r *RunReport) Fail(employeeNumber, date string, err error) {
	r.Errors = append(r.Errors, NewGroupError(employeeNumber, date, err))
}

// ========================================
// REQUESTS
// ========================================

type RunDateRequest struct {
	Date string `json:"date"`
}

func (r *RunDateRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Date) {
		errs = append(errs, validator.ValidationError{
			Field:   "date",
			Message: "date is required",
		})
	} else if _, valid := validator.IsValidDate(r.Date); !valid {
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

type AttendanceFilter struct {
	EmployeeNumber *string `json:"employee_number,omitempty"`
	StartDate      *string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate        *string `json:"end_date,omitempty"`   // YYYY-MM-DD
	Status         *string `json:"status,omitempty"`

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`

	SortOrder string `json:"sort_order"` // asc, desc
}

func (f *AttendanceFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Page < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "page",
			Message: "page must be a positive number",
		})
	}
	if f.Page == 0 {
		f.Page = 1
	}

	if f.Limit < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must be a positive number",
		})
	}
	if f.Limit == 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must not exceed 100",
		})
	}

	if f.Status != nil && !validator.IsInSlice(*f.Status, StatusValues) {
		errs = append(errs, validator.ValidationError{
			Field:   "status",
			Message: "status must be one of: " + strings.Join(StatusValues, ", "),
		})
	}

	if f.StartDate != nil && *f.StartDate != "" {
		if _, valid := validator.IsValidDate(*f.StartDate); !valid {
			errs = append(errs, validator.ValidationError{
				Field:   "start_date",
				Message: "start_date must be in YYYY-MM-DD format",
			})
		}
	}

	if f.EndDate != nil && *f.EndDate != "" {
		if _, valid := validator.IsValidDate(*f.EndDate); !valid {
			errs = append(errs, validator.ValidationError{
				Field:   "end_date",
				Message: "end_date must be in YYYY-MM-DD format",
			})
		}
	}

	if f.SortOrder != "" {
		if !validator.IsInSlice(strings.ToLower(f.SortOrder), []string{"asc", "desc"}) {
			errs = append(errs, validator.ValidationError{
				Field:   "sort_order",
				Message: "sort_order must be one of: asc, desc",
			})
		}
	} else {
		f.SortOrder = "desc"
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// ========================================
// RESPONSES
// ========================================

type AttendanceResponse struct {
	ID             string   `json:"id"`
	EmployeeNumber string   `json:"employee_number"`
	Date           string   `json:"date"`
	Status         string   `json:"status"`
	Source         string   `json:"source"`
	FirstPunch     *string  `json:"first_punch,omitempty"`
	LastPunch      *string  `json:"last_punch,omitempty"`
	WorkingHours   *float64 `json:"working_hours,omitempty"`
	ShiftID        *string  `json:"shift_id,omitempty"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

func NewAttendanceResponse(r Record) AttendanceResponse {
	resp := AttendanceResponse{
		ID:             r.ID,
		EmployeeNumber: r.EmployeeNumber,
		Date:           r.Date.Format(DateLayout),
		Status:         string(r.Status),
		Source:         string(r.Source),
		FirstPunch:     timePtrToString(r.FirstPunch),
		LastPunch:      timePtrToString(r.LastPunch),
		ShiftID:        r.ShiftID,
		CreatedAt:      r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      r.UpdatedAt.Format(time.RFC3339),
	}
	if r.FirstPunch != nil {
		hours := float64(r.WorkedMinutes) / 60
		resp.WorkingHours = &hours
	}
	return resp
}

type ListAttendanceResponse struct {
	TotalCount  int64                `json:"total_count"`
	Page        int                  `json:"page"`
	Limit       int                  `json:"limit"`
	TotalPages  int                  `json:"total_pages"`
	Attendances []AttendanceResponse `json:"attendances"`
}

func timePtrToString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
