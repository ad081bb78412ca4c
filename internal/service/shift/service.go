package shift

import (
	"context"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/shift"
)

type ShiftServiceImpl struct {
	shiftRepo shift.ShiftRepository
}

func NewShiftService(shiftRepo shift.ShiftRepository) shift.ShiftService {
	return &ShiftServiceImpl{shiftRepo: shiftRepo}
}

// ValidateShift implements shift.ShiftService.
func (s *ShiftServiceImpl) ValidateShift(ctx context.Context, id string) (shift.ShiftValidationResponse, error) {
	found, err := s.shiftRepo.GetByID(ctx, id)
	if err != nil {
		return shift.ShiftValidationResponse{}, err
	}
	return shift.NewShiftValidationResponse(found), nil
}
