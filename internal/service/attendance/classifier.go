package attendance

import (
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/shift"
	"github.com/shopspring/decimal"
)

var (
	halfDayRatio   = decimal.NewFromFloat(0.5)
	secondsPerHour = decimal.NewFromInt(3600)
)

// Classification is the result of classifying one employee's day.
type Classification struct {
	Status        attendance.Status
	WorkedHours   decimal.Decimal
	WorkedMinutes int
	ShiftInEnd    time.Time
	ShiftOutStart time.Time
}

// Classify decides the status of day (a civil date) from the first and last
// punch of the day, measured against s in loc.
//
// Present requires clocking in no later than the end of the in-window,
// clocking out no earlier than the out-window start and working at least the
// shift minimum. Otherwise half of the minimum earns a Half-Day.
func Classify(day time.Time, first, last time.Time, s shift.Shift, loc *time.Location) (Classification, error) {
	if err := s.Validate(); err != nil {
		return Classification{}, err
	}
	if last.Before(first) {
		first, last = last, first
	}

	inEnd, outStart := ShiftBounds(day, s, loc)

	worked := last.Sub(first)
	workedHours := decimal.NewFromInt(int64(worked / time.Second)).Div(secondsPerHour)
	minimum := s.MinimumWorkedHours

	c := Classification{
		WorkedHours:   workedHours,
		WorkedMinutes: int(worked / time.Minute),
		ShiftInEnd:    inEnd,
		ShiftOutStart: outStart,
	}

	switch {
	case !first.After(inEnd) && !last.Before(outStart) && workedHours.GreaterThanOrEqual(minimum):
		c.Status = attendance.StatusPresent
	case workedHours.GreaterThanOrEqual(minimum.Mul(halfDayRatio)):
		c.Status = attendance.StatusHalfDay
	default:
		c.Status = attendance.StatusAbsent
	}

	return c, nil
}

// ShiftBounds anchors the in-window end on day and the out-window start on day,
// or on the following day when the shift crosses midnight.
func ShiftBounds(day time.Time, s shift.Shift, loc *time.Location) (inEnd, outStart time.Time) {
	inEnd = shift.Combine(day, s.InWindowEnd, loc)
	outDay := day
	if s.CrossesMidnight {
		outDay = day.AddDate(0, 0, 1)
	}
	outStart = shift.Combine(outDay, s.OutWindowStart, loc)
	return inEnd, outStart
}

// overnightCutoff is the instant separating the clock-outs of the shift that
// starts on day from the clock-ins of the next one: halfway through the off
// hours between the out-window start and the next in-window start.
func overnightCutoff(day time.Time, s shift.Shift, loc *time.Location) time.Time {
	_, outStart := ShiftBounds(day, s, loc)
	gap := 24*time.Hour - s.NominalDuration()
	return outStart.Add(gap / 2)
}

// ReconcileOvernight moves the early punches of each calendar date onto the
// previous date's shift when s crosses midnight, so that a night shift's
// clock-in and clock-out land in the same sequence. Other shifts are returned
// unchanged.
func ReconcileOvernight(days map[string][]time.Time, s shift.Shift, loc *time.Location) map[string][]time.Time {
	if !s.CrossesMidnight {
		return days
	}

	out := make(map[string][]time.Time, len(days))
	for date, seq := range days {
		cal, err := time.Parse(attendance.DateLayout, date)
		if err != nil {
			continue
		}
		prev := cal.AddDate(0, 0, -1)
		cutoff := overnightCutoff(prev, s, loc)
		for _, t := range seq {
			target := date
			if t.Before(cutoff) {
				target = prev.Format(attendance.DateLayout)
			}
			out[target] = append(out[target], t)
		}
	}
	for _, seq := range out {
		sortTimes(seq)
	}
	return out
}
