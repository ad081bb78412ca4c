package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/shift"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type shiftRepositoryImpl struct {
	db database.Querier
}

func NewShiftRepository(db database.Querier) shift.ShiftRepository {
	return &shiftRepositoryImpl{db: db}
}

// GetByID implements shift.ShiftRepository.
func (r *shiftRepositoryImpl) GetByID(ctx context.Context, id string) (shift.Shift, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, name, in_window_start::text, in_window_end::text, out_window_start::text,
			   minimum_worked_hours::text, crosses_midnight, status, created_at, updated_at
		FROM shifts
		WHERE id = $1 AND deleted_at IS NULL
	`

	var (
		s                                  shift.Shift
		inStart, inEnd, outStart, minHours string
		status                             string
	)
	err := q.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.Name, &inStart, &inEnd, &outStart,
		&minHours, &s.CrossesMidnight, &status, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shift.Shift{}, shift.ErrShiftNotFound
		}
		return shift.Shift{}, fmt.Errorf("failed to get shift by ID: %w", err)
	}
	s.Status = shift.Status(status)

	if s.InWindowStart, err = shift.ParseClock(inStart); err != nil {
		return shift.Shift{}, fmt.Errorf("shift %s in_window_start %q: %w", id, inStart, err)
	}
	if s.InWindowEnd, err = shift.ParseClock(inEnd); err != nil {
		return shift.Shift{}, fmt.Errorf("shift %s in_window_end %q: %w", id, inEnd, err)
	}
	if s.OutWindowStart, err = shift.ParseClock(outStart); err != nil {
		return shift.Shift{}, fmt.Errorf("shift %s out_window_start %q: %w", id, outStart, err)
	}
	if s.MinimumWorkedHours, err = decimal.NewFromString(minHours); err != nil {
		return shift.Shift{}, fmt.Errorf("shift %s minimum_worked_hours %q: %w", id, minHours, err)
	}

	return s, nil
}
