package attendance

import (
	"context"
	"time"
)

// AttendanceRepository stores one record per (employee number, date).
type AttendanceRepository interface {
	Exists(ctx context.Context, employeeNumber string, date time.Time) (bool, error)

	// Get returns nil without error when no record exists.
	Get(ctx context.Context, employeeNumber string, date time.Time) (*Record, error)

	// Insert returns ErrDuplicateKey when a record for the key already exists.
	Insert(ctx context.Context, rec Record) (Record, error)

	// Upsert inserts rec or replaces the derived fields of an engine-owned
	// record. It reports false when the existing record is protected.
	Upsert(ctx context.Context, rec Record) (Record, bool, error)

	List(ctx context.Context, filter AttendanceFilter) ([]Record, int64, error)
}
