package attendance

import (
	"sort"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
)

// GroupKey identifies one employee's punches on one organization-local date.
type GroupKey struct {
	EmployeeNumber string
	Date           string // YYYY-MM-DD
}

// Groups holds punch timestamps per employee and calendar date.
type Groups map[GroupKey][]time.Time

// GroupPunches partitions punches by employee and the wall-clock date on which
// they occurred in loc. Unattributed punches are dropped. Each sequence is
// sorted ascending.
func GroupPunches(punches []punch.Punch, loc *time.Location) Groups {
	g := make(Groups)
	g.Add(punches, loc)
	g.Sort()
	return g
}

// Add appends punches without sorting; call Sort once all pages are added.
func (g Groups) Add(punches []punch.Punch, loc *time.Location) {
	for _, p := range punches {
		if !p.Resolved() {
			continue
		}
		key := GroupKey{
			EmployeeNumber: *p.EmployeeNumber,
			Date:           p.PunchedAt.In(loc).Format(attendance.DateLayout),
		}
		g[key] = append(g[key], p.PunchedAt)
	}
}

func (g Groups) Sort() {
	for _, seq := range g {
		sortTimes(seq)
	}
}

// ByEmployee regroups the calendar sequences as employee -> date -> sequence.
func (g Groups) ByEmployee() map[string]map[string][]time.Time {
	out := make(map[string]map[string][]time.Time)
	for key, seq := range g {
		days, ok := out[key.EmployeeNumber]
		if !ok {
			days = make(map[string][]time.Time)
			out[key.EmployeeNumber] = days
		}
		days[key.Date] = seq
	}
	return out
}

// Bracket returns the first and last timestamps of an ordered sequence.
// Intermediate punches do not contribute to worked hours.
func Bracket(seq []time.Time) (first, last time.Time, ok bool) {
	if len(seq) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return seq[0], seq[len(seq)-1], true
}

func sortTimes(seq []time.Time) {
	sort.Slice(seq, func(i, j int) bool { return seq[i].Before(seq[j]) })
}

func sortedDates(days map[string][]time.Time) []string {
	dates := make([]string, 0, len(days))
	for d := range days {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}
