package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/biometric"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type enrollmentRepositoryImpl struct {
	db database.Querier
}

func NewEnrollmentRepository(db database.Querier) biometric.EnrollmentRepository {
	return &enrollmentRepositoryImpl{db: db}
}

// GetEmployeeNumber implements biometric.EnrollmentRepository.
func (r *enrollmentRepositoryImpl) GetEmployeeNumber(ctx context.Context, biometricNumber int64) (string, error) {
	q := GetQuerier(ctx, r.db)

	var employeeNumber string
	err := q.QueryRow(ctx,
		`SELECT employee_number FROM biometric_enrollments WHERE biometric_number = $1`,
		biometricNumber,
	).Scan(&employeeNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", biometric.ErrUnresolvedIdentity
		}
		return "", fmt.Errorf("failed to get enrollment for biometric number %d: %w", biometricNumber, err)
	}

	return employeeNumber, nil
}
