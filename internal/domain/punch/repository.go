package punch

import (
	"context"
	"time"
)

type PunchRepository interface {
	// InsertIfAbsent stores p unless a punch with the same biometric number and
	// timestamp exists. It reports whether a row was inserted.
	InsertIfAbsent(ctx context.Context, p Punch) (bool, error)

	// Find returns punches matching filter ordered by punched_at, id.
	Find(ctx context.Context, filter PunchFilter) ([]Punch, error)
}

// PunchFilter selects punches. From is inclusive, To exclusive. After is a
// keyset cursor: only punches strictly after it in (punched_at, id) order.
type PunchFilter struct {
	EmployeeNumber *string
	ResolvedOnly   bool
	From           *time.Time
	To             *time.Time
	After          *Cursor
	Limit          int
}

type Cursor struct {
	PunchedAt time.Time
	ID        string
}
