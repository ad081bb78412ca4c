package attendance

import (
	"context"
)

// AttendanceEngine derives daily attendance from stored punches.
type AttendanceEngine interface {
	// RunLiveCycle classifies today's punches with the live write policy.
	RunLiveCycle(ctx context.Context) (RunReport, error)

	// RunBackfill replays the full punch history with the no-clobber policy.
	RunBackfill(ctx context.Context) (RunReport, error)

	// RunDate reprocesses a single organization-local date with the live policy.
	RunDate(ctx context.Context, req RunDateRequest) (RunReport, error)

	ListAttendance(ctx context.Context, filter AttendanceFilter) (ListAttendanceResponse, error)
}
