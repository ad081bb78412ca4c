package employee

import "context"

type EmployeeRepository interface {
	GetByNumber(ctx context.Context, employeeNumber string) (Employee, error)
	// ListActiveWithShift returns active employees that have a shift linked.
	ListActiveWithShift(ctx context.Context) ([]Employee, error)
}
