package attendance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/shift"
)

type recordKey struct {
	employeeNumber string
	date           string
}

type memAttendanceRepo struct {
	mu      sync.Mutex
	records map[recordKey]attendance.Record
	inserts int
	upserts int

	// beforeInsert runs ahead of every Insert; returning an error aborts it.
	beforeInsert func(rec attendance.Record) error
}

func newMemAttendanceRepo() *memAttendanceRepo {
	return &memAttendanceRepo{records: make(map[recordKey]attendance.Record)}
}

func keyOf(employeeNumber string, date time.Time) recordKey {
	return recordKey{employeeNumber, date.Format(attendance.DateLayout)}
}

func (r *memAttendanceRepo) put(rec attendance.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[keyOf(rec.EmployeeNumber, rec.Date)] = rec
}

func (r *memAttendanceRepo) record(employeeNumber, date string) (attendance.Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[recordKey{employeeNumber, date}]
	return rec, ok
}

func (r *memAttendanceRepo) Exists(ctx context.Context, employeeNumber string, date time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.records[keyOf(employeeNumber, date)]
	return ok, nil
}

func (r *memAttendanceRepo) Get(ctx context.Context, employeeNumber string, date time.Time) (*attendance.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[keyOf(employeeNumber, date)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r *memAttendanceRepo) Insert(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	if r.beforeInsert != nil {
		if err := r.beforeInsert(rec); err != nil {
			return attendance.Record{}, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	key := keyOf(rec.EmployeeNumber, rec.Date)
	if _, ok := r.records[key]; ok {
		return attendance.Record{}, attendance.ErrDuplicateKey
	}
	rec.ID = key.employeeNumber + "/" + key.date
	r.records[key] = rec
	r.inserts++
	return rec, nil
}

func (r *memAttendanceRepo) Upsert(ctx context.Context, rec attendance.Record) (attendance.Record, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := keyOf(rec.EmployeeNumber, rec.Date)
	existing, ok := r.records[key]
	if ok && existing.Protected() {
		return attendance.Record{}, false, nil
	}
	rec.ID = key.employeeNumber + "/" + key.date
	r.records[key] = rec
	r.upserts++
	return rec, true, nil
}

func (r *memAttendanceRepo) List(ctx context.Context, filter attendance.AttendanceFilter) ([]attendance.Record, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []attendance.Record
	for _, rec := range r.records {
		if filter.EmployeeNumber != nil && rec.EmployeeNumber != *filter.EmployeeNumber {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

type passthroughTx struct{ calls int }

func (t *passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

type memPunchRepo struct {
	punches []punch.Punch
	finds   int
}

func (r *memPunchRepo) InsertIfAbsent(ctx context.Context, p punch.Punch) (bool, error) {
	for _, existing := range r.punches {
		if existing.BiometricNumber == p.BiometricNumber && existing.PunchedAt.Equal(p.PunchedAt) {
			return false, nil
		}
	}
	r.punches = append(r.punches, p)
	return true, nil
}

func (r *memPunchRepo) Find(ctx context.Context, filter punch.PunchFilter) ([]punch.Punch, error) {
	r.finds++
	sorted := append([]punch.Punch(nil), r.punches...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].PunchedAt.Equal(sorted[j].PunchedAt) {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].PunchedAt.Before(sorted[j].PunchedAt)
	})

	var out []punch.Punch
	for _, p := range sorted {
		if filter.ResolvedOnly && !p.Resolved() {
			continue
		}
		if filter.EmployeeNumber != nil && (p.EmployeeNumber == nil || *p.EmployeeNumber != *filter.EmployeeNumber) {
			continue
		}
		if filter.From != nil && p.PunchedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !p.PunchedAt.Before(*filter.To) {
			continue
		}
		if c := filter.After; c != nil {
			if p.PunchedAt.Before(c.PunchedAt) || (p.PunchedAt.Equal(c.PunchedAt) && p.ID <= c.ID) {
				continue
			}
		}
		out = append(out, p)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

type memEmployeeRepo struct {
	employees map[string]employee.Employee
	lookups   int
}

func (r *memEmployeeRepo) GetByNumber(ctx context.Context, employeeNumber string) (employee.Employee, error) {
	r.lookups++
	e, ok := r.employees[employeeNumber]
	if !ok {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return e, nil
}

func (r *memEmployeeRepo) ListActiveWithShift(ctx context.Context) ([]employee.Employee, error) {
	var out []employee.Employee
	for _, e := range r.employees {
		if e.Status == employee.EmploymentStatusActive && e.HasShift() {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeNumber < out[j].EmployeeNumber })
	return out, nil
}

type memShiftRepo struct {
	shifts  map[string]shift.Shift
	lookups int
}

func (r *memShiftRepo) GetByID(ctx context.Context, id string) (shift.Shift, error) {
	r.lookups++
	s, ok := r.shifts[id]
	if !ok {
		return shift.Shift{}, shift.ErrShiftNotFound
	}
	return s, nil
}
