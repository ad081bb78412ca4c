package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/shift"
	"github.com/google/uuid"
)

const defaultPageSize = 5000

type EngineOptions struct {
	// Location is the organization time zone used for calendar dates.
	Location *time.Location
	// PageSize bounds each punch page read during backfill.
	PageSize int
	// MarkAbsentees writes Absent for scheduled employees without punches once
	// their shift is over.
	MarkAbsentees bool
	Now           func() time.Time
}

type EngineImpl struct {
	punchRepo      punch.PunchRepository
	employeeRepo   employee.EmployeeRepository
	shiftRepo      shift.ShiftRepository
	attendanceRepo attendance.AttendanceRepository
	writer         *Writer

	location      *time.Location
	pageSize      int
	markAbsentees bool
	now           func() time.Time

	// runMu serializes live, date and backfill runs.
	runMu sync.Mutex
}

func NewAttendanceEngine(
	punchRepo punch.PunchRepository,
	employeeRepo employee.EmployeeRepository,
	shiftRepo shift.ShiftRepository,
	attendanceRepo attendance.AttendanceRepository,
	writer *Writer,
	opts EngineOptions,
) *EngineImpl {
	e := &EngineImpl{
		punchRepo:      punchRepo,
		employeeRepo:   employeeRepo,
		shiftRepo:      shiftRepo,
		attendanceRepo: attendanceRepo,
		writer:         writer,
		location:       opts.Location,
		pageSize:       opts.PageSize,
		markAbsentees:  opts.MarkAbsentees,
		now:            opts.Now,
	}
	if e.location == nil {
		e.location = time.UTC
	}
	if e.pageSize <= 0 {
		e.pageSize = defaultPageSize
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

type writeFunc func(ctx context.Context, rec attendance.Record) (attendance.WriteOutcome, error)

// scopeFunc reports whether a shift day belongs to the run.
type scopeFunc func(day time.Time, s shift.Shift) bool

// RunLiveCycle implements attendance.AttendanceEngine.
func (e *EngineImpl) RunLiveCycle(ctx context.Context) (attendance.RunReport, error) {
	today := attendance.CivilDate(e.now(), e.location)
	yesterday := today.AddDate(0, 0, -1)

	// A night shift that started yesterday closes this morning, so its day is
	// still open during today's cycles.
	scope := func(day time.Time, s shift.Shift) bool {
		return day.Equal(today) || (s.CrossesMidnight && day.Equal(yesterday))
	}
	return e.runDay(ctx, attendance.RunModeLive, today, scope, []time.Time{yesterday, today})
}

// RunDate implements attendance.AttendanceEngine.
func (e *EngineImpl) RunDate(ctx context.Context, req attendance.RunDateRequest) (attendance.RunReport, error) {
	if err := req.Validate(); err != nil {
		return attendance.RunReport{}, err
	}
	day, err := time.Parse(attendance.DateLayout, req.Date)
	if err != nil {
		return attendance.RunReport{}, err
	}

	scope := func(d time.Time, _ shift.Shift) bool { return d.Equal(day) }
	return e.runDay(ctx, attendance.RunModeDate, day, scope, []time.Time{day})
}

// RunBackfill implements attendance.AttendanceEngine.
func (e *EngineImpl) RunBackfill(ctx context.Context) (attendance.RunReport, error) {
	return e.run(ctx, attendance.RunModeBackfill, func(ctx context.Context, report *attendance.RunReport) error {
		groups := make(Groups)

		var cursor *punch.Cursor
		for {
			page, err := e.punchRepo.Find(ctx, punch.PunchFilter{
				ResolvedOnly: true,
				After:        cursor,
				Limit:        e.pageSize,
			})
			if err != nil {
				return fmt.Errorf("load punch history: %w", err)
			}
			groups.Add(page, e.location)
			report.Punches += len(page)

			if len(page) < e.pageSize {
				break
			}
			last := page[len(page)-1]
			cursor = &punch.Cursor{PunchedAt: last.PunchedAt, ID: last.ID}
		}
		groups.Sort()

		all := func(time.Time, shift.Shift) bool { return true }
		_, err := e.process(ctx, report, groups, all, e.writer.WriteBackfill)
		return err
	})
}

// ListAttendance implements attendance.AttendanceEngine.
func (e *EngineImpl) ListAttendance(ctx context.Context, filter attendance.AttendanceFilter) (attendance.ListAttendanceResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListAttendanceResponse{}, err
	}

	records, total, err := e.attendanceRepo.List(ctx, filter)
	if err != nil {
		return attendance.ListAttendanceResponse{}, fmt.Errorf("failed to list attendance: %w", err)
	}

	responses := make([]attendance.AttendanceResponse, 0, len(records))
	for _, r := range records {
		responses = append(responses, attendance.NewAttendanceResponse(r))
	}

	return attendance.ListAttendanceResponse{
		TotalCount:  total,
		Page:        filter.Page,
		Limit:       filter.Limit,
		TotalPages:  int(math.Ceil(float64(total) / float64(filter.Limit))),
		Attendances: responses,
	}, nil
}

// runDay processes the punches around day with the live write policy.
func (e *EngineImpl) runDay(ctx context.Context, mode attendance.RunMode, day time.Time, scope scopeFunc, absentDays []time.Time) (attendance.RunReport, error) {
	return e.run(ctx, mode, func(ctx context.Context, report *attendance.RunReport) error {
		report.Date = day.Format(attendance.DateLayout)

		// Overnight shifts pull in the previous evening and the next morning.
		from := time.Date(day.Year(), day.Month(), day.Day()-1, 0, 0, 0, 0, e.location)
		to := time.Date(day.Year(), day.Month(), day.Day()+2, 0, 0, 0, 0, e.location)

		punches, err := e.punchRepo.Find(ctx, punch.PunchFilter{
			ResolvedOnly: true,
			From:         &from,
			To:           &to,
		})
		if err != nil {
			return fmt.Errorf("load punches for %s: %w", report.Date, err)
		}
		report.Punches = len(punches)

		processed, err := e.process(ctx, report, GroupPunches(punches, e.location), scope, e.writer.WriteLive)
		if err != nil {
			return err
		}

		if e.markAbsentees {
			for _, d := range absentDays {
				if err := e.markAbsent(ctx, report, d, processed); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (e *EngineImpl) run(ctx context.Context, mode attendance.RunMode, fn func(ctx context.Context, report *attendance.RunReport) error) (attendance.RunReport, error) {
	if !e.runMu.TryLock() {
		return attendance.RunReport{}, attendance.ErrRunInProgress
	}
	defer e.runMu.Unlock()

	report := attendance.RunReport{
		RunID:     uuid.NewString(),
		Mode:      mode,
		StartedAt: e.now(),
		Errors:    []attendance.GroupError{},
	}
	slog.Info("Attendance run started", "run_id", report.RunID, "mode", mode)

	err := fn(ctx, &report)
	report.FinishedAt = e.now()

	if err != nil {
		slog.Error("Attendance run aborted",
			"run_id", report.RunID,
			"mode", mode,
			"groups", report.Groups,
			"error", err)
		return report, err
	}

	slog.Info("Attendance run completed",
		"run_id", report.RunID,
		"mode", mode,
		"punches", report.Punches,
		"groups", report.Groups,
		"created", report.Created,
		"updated", report.Updated,
		"unchanged", report.Unchanged,
		"skipped", report.Skipped,
		"errors", len(report.Errors),
		"duration", report.FinishedAt.Sub(report.StartedAt))
	return report, nil
}

// process classifies and writes every in-scope group. Failures are confined
// to their group; only context cancellation stops the run. It returns every
// key that had punches, in scope or not.
func (e *EngineImpl) process(ctx context.Context, report *attendance.RunReport, groups Groups, inScope scopeFunc, write writeFunc) (map[GroupKey]bool, error) {
	handled := make(map[GroupKey]bool)
	assignments := newAssignmentCache(e.employeeRepo, e.shiftRepo)

	byEmployee := groups.ByEmployee()
	employeeNumbers := make([]string, 0, len(byEmployee))
	for n := range byEmployee {
		employeeNumbers = append(employeeNumbers, n)
	}
	sort.Strings(employeeNumbers)

	for _, employeeNumber := range employeeNumbers {
		days := byEmployee[employeeNumber]

		a, err := assignments.get(ctx, employeeNumber)
		if err != nil {
			for _, date := range sortedDates(days) {
				handled[GroupKey{employeeNumber, date}] = true
				day, _ := time.Parse(attendance.DateLayout, date)
				if !inScope(day, shift.Shift{}) {
					continue
				}
				report.Groups++
				e.fail(report, employeeNumber, date, err)
			}
			continue
		}

		days = ReconcileOvernight(days, a.shift, e.location)

		for _, date := range sortedDates(days) {
			if err := ctx.Err(); err != nil {
				return handled, err
			}

			handled[GroupKey{employeeNumber, date}] = true
			day, err := time.Parse(attendance.DateLayout, date)
			if err != nil || !inScope(day, a.shift) {
				continue
			}
			report.Groups++

			first, last, ok := Bracket(days[date])
			if !ok {
				continue
			}

			c, err := Classify(day, first, last, a.shift, e.location)
			if err != nil {
				e.fail(report, employeeNumber, date, fmt.Errorf("shift %s: %w", a.shift.ID, err))
				continue
			}

			shiftID := a.shift.ID
			outcome, err := write(ctx, attendance.Record{
				EmployeeNumber: employeeNumber,
				Date:           day,
				Status:         c.Status,
				Source:         attendance.SourceEngine,
				FirstPunch:     &first,
				LastPunch:      &last,
				WorkedMinutes:  c.WorkedMinutes,
				ShiftID:        &shiftID,
			})
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return handled, ctxErr
				}
				e.fail(report, employeeNumber, date, err)
				continue
			}
			report.Count(outcome)
		}
	}

	return handled, nil
}

// markAbsent records Absent for active employees with a shift who have no
// punches on day, once that day's shift is over. Existing rows are kept.
func (e *EngineImpl) markAbsent(ctx context.Context, report *attendance.RunReport, day time.Time, handled map[GroupKey]bool) error {
	employees, err := e.employeeRepo.ListActiveWithShift(ctx)
	if err != nil {
		return fmt.Errorf("list employees for absentees: %w", err)
	}

	assignments := newAssignmentCache(e.employeeRepo, e.shiftRepo)
	date := day.Format(attendance.DateLayout)
	now := e.now()

	for _, emp := range employees {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := GroupKey{emp.EmployeeNumber, date}
		if handled[key] {
			continue
		}

		s, err := assignments.shiftFor(ctx, emp)
		if err != nil {
			e.fail(report, emp.EmployeeNumber, date, err)
			continue
		}
		if _, outStart := ShiftBounds(day, s, e.location); now.Before(outStart) {
			continue
		}

		handled[key] = true
		report.Groups++
		shiftID := s.ID
		outcome, err := e.writer.WriteBackfill(ctx, attendance.Record{
			EmployeeNumber: emp.EmployeeNumber,
			Date:           day,
			Status:         attendance.StatusAbsent,
			Source:         attendance.SourceEngine,
			ShiftID:        &shiftID,
		})
		if err != nil {
			e.fail(report, emp.EmployeeNumber, date, err)
			continue
		}
		report.Count(outcome)
	}
	return nil
}

func (e *EngineImpl) fail(report *attendance.RunReport, employeeNumber, date string, err error) {
	level := slog.LevelError
	if errors.Is(err, shift.ErrMissingShift) || errors.Is(err, employee.ErrEmployeeNotFound) {
		level = slog.LevelWarn
	}
	slog.Log(context.Background(), level, "Attendance group failed",
		"employee_number", employeeNumber,
		"date", date,
		"error", err)
	report.Fail(employeeNumber, date, err)
}

type assignment struct {
	employee employee.Employee
	shift    shift.Shift
}

type assignmentResult struct {
	assignment assignment
	err        error
}

// assignmentCache memoizes employee and shift lookups for one run, so a shift
// change applies from the next run on.
type assignmentCache struct {
	employeeRepo employee.EmployeeRepository
	shiftRepo    shift.ShiftRepository
	employees    map[string]assignmentResult
	shifts       map[string]assignmentResult
}

func newAssignmentCache(employeeRepo employee.EmployeeRepository, shiftRepo shift.ShiftRepository) *assignmentCache {
	return &assignmentCache{
		employeeRepo: employeeRepo,
		shiftRepo:    shiftRepo,
		employees:    make(map[string]assignmentResult),
		shifts:       make(map[string]assignmentResult),
	}
}

func (c *assignmentCache) get(ctx context.Context, employeeNumber string) (assignment, error) {
	if r, ok := c.employees[employeeNumber]; ok {
		return r.assignment, r.err
	}

	var r assignmentResult
	emp, err := c.employeeRepo.GetByNumber(ctx, employeeNumber)
	if err != nil {
		r.err = fmt.Errorf("employee %s: %w", employeeNumber, err)
	} else {
		r.assignment.employee = emp
		r.assignment.shift, r.err = c.shiftFor(ctx, emp)
	}

	c.employees[employeeNumber] = r
	return r.assignment, r.err
}

func (c *assignmentCache) shiftFor(ctx context.Context, emp employee.Employee) (shift.Shift, error) {
	if !emp.HasShift() {
		return shift.Shift{}, shift.ErrMissingShift
	}
	if r, ok := c.shifts[*emp.ShiftID]; ok {
		return r.assignment.shift, r.err
	}

	var r assignmentResult
	s, err := c.shiftRepo.GetByID(ctx, *emp.ShiftID)
	if err != nil {
		r.err = fmt.Errorf("shift %s: %w", *emp.ShiftID, err)
	} else {
		r.assignment.shift = s
	}
	c.shifts[*emp.ShiftID] = r
	return r.assignment.shift, r.err
}
