package punch

import (
	"context"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/biometric"
)

type IngestionService interface {
	// Pull fetches events from one terminal and stores the new ones.
	Pull(ctx context.Context, terminal biometric.Terminal, window biometric.Window) (IngestResult, error)

	// PullAll polls every configured terminal. A failing terminal is reported in
	// its result and does not stop the others.
	PullAll(ctx context.Context, window biometric.Window) ([]IngestResult, error)

	// ListPunches returns one employee's punches for one organization-local date.
	ListPunches(ctx context.Context, req ListPunchesRequest) ([]PunchResponse, error)
}
