package cron

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/biometric"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
)

const (
	LiveAttendanceCycleJob = "live_attendance_cycle"
	IngestTerminalsJob     = "ingest_terminals"
)

type AttendanceJobs struct {
	engine         attendance.AttendanceEngine
	ingestion      punch.IngestionService
	liveInterval   time.Duration
	ingestInterval time.Duration
	location       *time.Location
	now            func() time.Time
}

func NewAttendanceJobs(
	engine attendance.AttendanceEngine,
	ingestion punch.IngestionService,
	liveInterval time.Duration,
	ingestInterval time.Duration,
	location *time.Location,
) *AttendanceJobs {
	if location == nil {
		location = time.UTC
	}
	return &AttendanceJobs{
		engine:         engine,
		ingestion:      ingestion,
		liveInterval:   liveInterval,
		ingestInterval: ingestInterval,
		location:       location,
		now:            time.Now,
	}
}

// RegisterJobs schedules terminal ingestion and the live cycle independently.
func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler) {
	if j.ingestion != nil {
		scheduler.AddJob(IngestTerminalsJob, j.ingestInterval, j.IngestTerminals)
	}
	scheduler.AddJob(LiveAttendanceCycleJob, j.liveInterval, j.RunLiveCycle)
}

// RunLiveCycle runs one live classification cycle. A cycle still running from
// an earlier tick or an operator request is not an error.
func (j *AttendanceJobs) RunLiveCycle(ctx context.Context) error {
	report, err := j.engine.RunLiveCycle(ctx)
	if err != nil {
		if errors.Is(err, attendance.ErrRunInProgress) {
			slog.Warn("Cron: live attendance cycle skipped, another run is in progress")
			return nil
		}
		return err
	}

	if len(report.Errors) > 0 {
		slog.Warn("Cron: live attendance cycle finished with group errors",
			"run_id", report.RunID,
			"errors", len(report.Errors))
	}
	return nil
}

// IngestTerminals pulls today's events from every terminal. Terminals return
// the whole day again on each pull; stored punches are de-duplicated.
func (j *AttendanceJobs) IngestTerminals(ctx context.Context) error {
	local := j.now().In(j.location)
	since := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, j.location)

	results, err := j.ingestion.PullAll(ctx, biometric.Window{Since: &since})

	inserted := 0
	for _, r := range results {
		inserted += r.Inserted
	}
	slog.Info("Cron: terminal ingestion finished", "terminals", len(results), "inserted", inserted)

	return err
}
