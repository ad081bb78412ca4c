package postgresql

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/biometric"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/shift"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var shiftRowColumns = []string{
	"id", "name", "in_window_start", "in_window_end", "out_window_start",
	"minimum_worked_hours", "crosses_midnight", "status", "created_at", "updated_at",
}

func TestShiftRepository_GetByID(t *testing.T) {
	mock := newMockPool(t)
	repo := NewShiftRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM shifts")+`\s+`+regexp.QuoteMeta("WHERE id = $1 AND deleted_at IS NULL")).
		WithArgs("shift-night").
		WillReturnRows(pgxmock.NewRows(shiftRowColumns).
			AddRow("shift-night", "Night", "22:00:00", "23:00:00", "06:00:00", "7.50", true, "active", now, now))

	s, err := repo.GetByID(context.Background(), "shift-night")

	require.NoError(t, err)
	assert.Equal(t, "Night", s.Name)
	assert.Equal(t, 23, s.InWindowEnd.Hour())
	assert.Equal(t, 6, s.OutWindowStart.Hour())
	assert.Equal(t, "7.5", s.MinimumWorkedHours.String())
	assert.True(t, s.CrossesMidnight)
	assert.Equal(t, shift.StatusActive, s.Status)
	assert.Equal(t, 8*time.Hour, s.NominalDuration())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShiftRepository_GetByID_NotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewShiftRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("FROM shifts")).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")

	assert.ErrorIs(t, err, shift.ErrShiftNotFound)
}

func TestShiftRepository_GetByID_BadClock(t *testing.T) {
	mock := newMockPool(t)
	repo := NewShiftRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM shifts")).
		WithArgs("shift-1").
		WillReturnRows(pgxmock.NewRows(shiftRowColumns).
			AddRow("shift-1", "Broken", "8am", "09:00:00", "17:00:00", "8", false, "active", now, now))

	_, err := repo.GetByID(context.Background(), "shift-1")

	assert.ErrorContains(t, err, "in_window_start")
}

func TestEmployeeRepository_GetByNumber_NotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewEmployeeRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("FROM employees")).
		WithArgs("EMP-404").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByNumber(context.Background(), "EMP-404")

	assert.ErrorIs(t, err, employee.ErrEmployeeNotFound)
}

func TestEnrollmentRepository_GetEmployeeNumber(t *testing.T) {
	t.Run("enrolled", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewEnrollmentRepository(mock)

		mock.ExpectQuery(regexp.QuoteMeta("FROM biometric_enrollments WHERE biometric_number = $1")).
			WithArgs(int64(42)).
			WillReturnRows(pgxmock.NewRows([]string{"employee_number"}).AddRow("EMP-1"))

		got, err := repo.GetEmployeeNumber(context.Background(), 42)

		require.NoError(t, err)
		assert.Equal(t, "EMP-1", got)
	})

	t.Run("not enrolled", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewEnrollmentRepository(mock)

		mock.ExpectQuery(regexp.QuoteMeta("FROM biometric_enrollments")).
			WithArgs(int64(7)).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetEmployeeNumber(context.Background(), 7)

		assert.ErrorIs(t, err, biometric.ErrUnresolvedIdentity)
	})
}
