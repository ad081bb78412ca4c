package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolationCode = "23505"

const attendanceColumns = `id, employee_number, date, status, source, first_punch, last_punch,
			   worked_minutes, shift_id, created_at, updated_at`

type attendanceRepositoryImpl struct {
	db database.Querier
}

func NewAttendanceRepository(db database.Querier) attendance.AttendanceRepository {
	return &attendanceRepositoryImpl{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAttendance(row rowScanner) (attendance.Record, error) {
	var (
		rec            attendance.Record
		status, source string
	)
	err := row.Scan(
		&rec.ID, &rec.EmployeeNumber, &rec.Date, &status, &source, &rec.FirstPunch, &rec.LastPunch,
		&rec.WorkedMinutes, &rec.ShiftID, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return attendance.Record{}, err
	}
	rec.Status = attendance.Status(status)
	rec.Source = attendance.Source(source)
	return rec, nil
}

func translateAttendancePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return attendance.ErrDuplicateKey
	}
	return err
}

// Exists implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) Exists(ctx context.Context, employeeNumber string, date time.Time) (bool, error) {
	q := GetQuerier(ctx, r.db)

	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM attendance_records WHERE employee_number = $1 AND date = $2)`,
		employeeNumber, date,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check attendance existence: %w", err)
	}

	return exists, nil
}

// Get implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) Get(ctx context.Context, employeeNumber string, date time.Time) (*attendance.Record, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + attendanceColumns + `
		FROM attendance_records
		WHERE employee_number = $1 AND date = $2
		FOR UPDATE
	`

	rec, err := scanAttendance(q.QueryRow(ctx, query, employeeNumber, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attendance by employee and date: %w", err)
	}

	return &rec, nil
}

// Insert implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) Insert(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO attendance_records (
			employee_number, date, status, source, first_punch, last_punch, worked_minutes, shift_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		rec.EmployeeNumber, rec.Date, string(rec.Status), string(rec.Source),
		rec.FirstPunch, rec.LastPunch, rec.WorkedMinutes, rec.ShiftID,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if translated := translateAttendancePgError(err); errors.Is(translated, attendance.ErrDuplicateKey) {
			return attendance.Record{}, translated
		}
		return attendance.Record{}, fmt.Errorf("failed to insert attendance: %w", err)
	}

	return rec, nil
}

// Upsert implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) Upsert(ctx context.Context, rec attendance.Record) (attendance.Record, bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO attendance_records (
			employee_number, date, status, source, first_punch, last_punch, worked_minutes, shift_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (employee_number, date) DO UPDATE SET
			status = EXCLUDED.status,
			first_punch = EXCLUDED.first_punch,
			last_punch = EXCLUDED.last_punch,
			worked_minutes = EXCLUDED.worked_minutes,
			shift_id = EXCLUDED.shift_id,
			updated_at = NOW()
		WHERE attendance_records.source = 'engine'
		  AND attendance_records.status IN ('present', 'absent', 'half_day')
		RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		rec.EmployeeNumber, rec.Date, string(rec.Status), string(rec.Source),
		rec.FirstPunch, rec.LastPunch, rec.WorkedMinutes, rec.ShiftID,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// conflict target exists but is not engine-owned
			return attendance.Record{}, false, nil
		}
		return attendance.Record{}, false, fmt.Errorf("failed to upsert attendance: %w", err)
	}

	return rec, true, nil
}

// List implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) List(ctx context.Context, filter attendance.AttendanceFilter) ([]attendance.Record, int64, error) {
	q := GetQuerier(ctx, r.db)

	baseWhere := "1 = 1"
	args := []interface{}{}
	argIdx := 1

	if filter.EmployeeNumber != nil && *filter.EmployeeNumber != "" {
		baseWhere += fmt.Sprintf(" AND employee_number = $%d", argIdx)
		args = append(args, *filter.EmployeeNumber)
		argIdx++
	}
	if filter.StartDate != nil && *filter.StartDate != "" {
		baseWhere += fmt.Sprintf(" AND date >= $%d", argIdx)
		args = append(args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		baseWhere += fmt.Sprintf(" AND date <= $%d", argIdx)
		args = append(args, *filter.EndDate)
		argIdx++
	}
	if filter.Status != nil && *filter.Status != "" {
		baseWhere += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM attendance_records WHERE "+baseWhere, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendance records: %w", err)
	}

	sortOrder := "DESC"
	if strings.ToLower(filter.SortOrder) == "asc" {
		sortOrder = "ASC"
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 20
	}
	page := filter.Page
	if page == 0 {
		page = 1
	}

	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM attendance_records
		WHERE %s
		ORDER BY date %s, employee_number ASC
		LIMIT $%d OFFSET $%d
	`, attendanceColumns, baseWhere, sortOrder, argIdx, argIdx+1)
	args = append(args, limit, (page-1)*limit)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attendance records: %w", err)
	}
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate attendance records: %w", err)
	}

	return records, total, nil
}
