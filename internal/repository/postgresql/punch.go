package postgresql

import (
	"context"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
	"github.com/google/uuid"
)

type punchRepositoryImpl struct {
	db database.Querier
}

func NewPunchRepository(db database.Querier) punch.PunchRepository {
	return &punchRepositoryImpl{db: db}
}

// InsertIfAbsent implements punch.PunchRepository.
func (r *punchRepositoryImpl) InsertIfAbsent(ctx context.Context, p punch.Punch) (bool, error) {
	q := GetQuerier(ctx, r.db)

	if p.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return false, fmt.Errorf("failed to generate punch id: %w", err)
		}
		p.ID = id.String()
	}

	query := `
		INSERT INTO punches (id, biometric_number, employee_number, device_id, punched_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (biometric_number, punched_at) DO NOTHING
	`

	tag, err := q.Exec(ctx, query, p.ID, p.BiometricNumber, p.EmployeeNumber, p.DeviceID, p.PunchedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert punch: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// Find implements punch.PunchRepository.
func (r *punchRepositoryImpl) Find(ctx context.Context, filter punch.PunchFilter) ([]punch.Punch, error) {
	q := GetQuerier(ctx, r.db)

	var (
		conditions []string
		args       []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ResolvedOnly {
		conditions = append(conditions, "employee_number IS NOT NULL")
	}
	if filter.EmployeeNumber != nil {
		conditions = append(conditions, "employee_number = "+arg(*filter.EmployeeNumber))
	}
	if filter.From != nil {
		conditions = append(conditions, "punched_at >= "+arg(*filter.From))
	}
	if filter.To != nil {
		conditions = append(conditions, "punched_at < "+arg(*filter.To))
	}
	if filter.After != nil {
		at := arg(filter.After.PunchedAt)
		id := arg(filter.After.ID)
		conditions = append(conditions, fmt.Sprintf("(punched_at, id) > (%s, %s)", at, id))
	}

	query := `
		SELECT id, biometric_number, employee_number, device_id, punched_at, created_at
		FROM punches`
	if len(conditions) > 0 {
		query += "\n\t\tWHERE " + strings.Join(conditions, " AND ")
	}
	query += "\n\t\tORDER BY punched_at ASC, id ASC"
	if filter.Limit > 0 {
		query += "\n\t\tLIMIT " + arg(filter.Limit)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find punches: %w", err)
	}
	defer rows.Close()

	var punches []punch.Punch
	for rows.Next() {
		var p punch.Punch
		if err := rows.Scan(&p.ID, &p.BiometricNumber, &p.EmployeeNumber, &p.DeviceID, &p.PunchedAt, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan punch: %w", err)
		}
		punches = append(punches, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate punches: %w", err)
	}

	return punches, nil
}
