package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type employeeRepositoryImpl struct {
	db database.Querier
}

func NewEmployeeRepository(db database.Querier) employee.EmployeeRepository {
	return &employeeRepositoryImpl{db: db}
}

// GetByNumber implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) GetByNumber(ctx context.Context, employeeNumber string) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, employee_number, company_id, shift_id, employment_status, created_at, updated_at
		FROM employees
		WHERE employee_number = $1 AND deleted_at IS NULL
	`

	var (
		e      employee.Employee
		status string
	)
	err := q.QueryRow(ctx, query, employeeNumber).Scan(
		&e.ID, &e.EmployeeNumber, &e.CompanyID, &e.ShiftID, &status, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee by number: %w", err)
	}
	e.Status = employee.EmploymentStatus(status)

	return e, nil
}

// ListActiveWithShift implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) ListActiveWithShift(ctx context.Context) ([]employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, employee_number, company_id, shift_id, employment_status, created_at, updated_at
		FROM employees
		WHERE employment_status = 'active'
		  AND shift_id IS NOT NULL
		  AND deleted_at IS NULL
		ORDER BY employee_number
	`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active employees: %w", err)
	}
	defer rows.Close()

	var employees []employee.Employee
	for rows.Next() {
		var (
			e      employee.Employee
			status string
		)
		if err := rows.Scan(&e.ID, &e.EmployeeNumber, &e.CompanyID, &e.ShiftID, &status, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		e.Status = employee.EmploymentStatus(status)
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate employees: %w", err)
	}

	return employees, nil
}
