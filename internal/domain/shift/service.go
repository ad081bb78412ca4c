package shift

import "context"

type ShiftService interface {
	// ValidateShift loads a shift and reports whether it satisfies the duration invariants.
	ValidateShift(ctx context.Context, id string) (ShiftValidationResponse, error)
}
