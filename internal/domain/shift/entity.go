package shift

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ClockLayout is the wire/storage layout of shift window times.
const ClockLayout = "15:04:05"

type Shift struct {
	ID                 string
	Name               string
	InWindowStart      time.Time // only the clock part is meaningful
	InWindowEnd        time.Time
	OutWindowStart     time.Time
	MinimumWorkedHours decimal.Decimal
	CrossesMidnight    bool
	Status             Status
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// NominalDuration is the span from the start of the in-window to the start of
// the out-window, shifted by a day when the shift crosses midnight.
func (s Shift) NominalDuration() time.Duration {
	start := clockOffset(s.InWindowStart)
	end := clockOffset(s.OutWindowStart)
	if s.CrossesMidnight {
		end += 24 * time.Hour
	}
	return end - start
}

// Validate checks the duration invariants of a shift.
func (s Shift) Validate() error {
	d := s.NominalDuration()
	if d <= 0 {
		return ErrInvalidShift
	}
	if s.MinimumWorkedHours.IsNegative() {
		return ErrInvalidShift
	}
	if s.MinimumWorkedHours.GreaterThan(decimal.NewFromFloat(d.Hours())) {
		return ErrInvalidShift
	}
	return nil
}

// Combine anchors a shift clock time on the civil date of day in loc.
func Combine(day time.Time, clock time.Time, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), 0, loc)
}

// ParseClock parses an "HH:MM" or "HH:MM:SS" value.
func ParseClock(s string) (time.Time, error) {
	t, ok := validator.IsValidClock(s)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid shift clock %q", s)
	}
	return t, nil
}

func clockOffset(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second
}
