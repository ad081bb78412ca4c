package shift

import "context"

type ShiftRepository interface {
	GetByID(ctx context.Context, id string) (Shift, error)
}
