package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/biometric"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_AddJobIgnoresNonPositiveInterval(t *testing.T) {
	s := NewScheduler(context.Background())

	s.AddJob("disabled", 0, func(ctx context.Context) error { return nil })
	s.AddJob("enabled", time.Minute, func(ctx context.Context) error { return nil })

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "enabled", jobs[0].Name)
}

func TestScheduler_RunOnce(t *testing.T) {
	s := NewScheduler(context.Background())
	var order []string
	boom := errors.New("boom")

	s.AddJob("first", time.Minute, func(ctx context.Context) error {
		order = append(order, "first")
		return boom
	})
	s.AddJob("second", time.Minute, func(ctx context.Context) error {
		order = append(order, "second")
		panic("bad job")
	})
	s.AddJob("third", time.Minute, func(ctx context.Context) error {
		order = append(order, "third")
		return nil
	})

	err := s.RunOnce(context.Background())

	assert.Equal(t, []string{"first", "second", "third"}, order)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "second")
	assert.Contains(t, err.Error(), "panicked")
}

func TestScheduler_StartRunsImmediatelyAndStops(t *testing.T) {
	s := NewScheduler(context.Background())
	var runs atomic.Int32
	ran := make(chan struct{}, 1)

	s.AddJob("tick", time.Hour, func(ctx context.Context) error {
		runs.Add(1)
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	})

	s.Start()
	s.Start()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run on start")
	}
	s.Stop()

	assert.Equal(t, int32(1), runs.Load())
}

func TestScheduler_StopsWithParent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler(ctx)
	started := make(chan struct{})

	s.AddJob("blocking", time.Hour, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	s.Start()
	<-started

	cancel()

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after parent cancellation")
	}
}

type stubEngine struct {
	err   error
	calls int
}

func (s *stubEngine) RunLiveCycle(ctx context.Context) (attendance.RunReport, error) {
	s.calls++
	return attendance.RunReport{RunID: "run-1"}, s.err
}

func (s *stubEngine) RunBackfill(ctx context.Context) (attendance.RunReport, error) {
	return attendance.RunReport{}, nil
}

func (s *stubEngine) RunDate(ctx context.Context, req attendance.RunDateRequest) (attendance.RunReport, error) {
	return attendance.RunReport{}, nil
}

func (s *stubEngine) ListAttendance(ctx context.Context, filter attendance.AttendanceFilter) (attendance.ListAttendanceResponse, error) {
	return attendance.ListAttendanceResponse{}, nil
}

type stubIngestion struct {
	window biometric.Window
	err    error
}

func (s *stubIngestion) Pull(ctx context.Context, terminal biometric.Terminal, window biometric.Window) (punch.IngestResult, error) {
	return punch.IngestResult{}, nil
}

func (s *stubIngestion) PullAll(ctx context.Context, window biometric.Window) ([]punch.IngestResult, error) {
	s.window = window
	return []punch.IngestResult{{Terminal: "gate-a", Inserted: 3}}, s.err
}

func (s *stubIngestion) ListPunches(ctx context.Context, req punch.ListPunchesRequest) ([]punch.PunchResponse, error) {
	return nil, nil
}

func TestAttendanceJobs_RegisterJobs(t *testing.T) {
	engine := &stubEngine{}

	t.Run("with ingestion", func(t *testing.T) {
		s := NewScheduler(context.Background())
		NewAttendanceJobs(engine, &stubIngestion{}, 15*time.Minute, 5*time.Minute, time.UTC).RegisterJobs(s)

		jobs := s.Jobs()
		require.Len(t, jobs, 2)
		assert.Equal(t, IngestTerminalsJob, jobs[0].Name)
		assert.Equal(t, 5*time.Minute, jobs[0].Interval)
		assert.Equal(t, LiveAttendanceCycleJob, jobs[1].Name)
		assert.Equal(t, 15*time.Minute, jobs[1].Interval)
	})

	t.Run("without ingestion", func(t *testing.T) {
		s := NewScheduler(context.Background())
		NewAttendanceJobs(engine, nil, 15*time.Minute, 5*time.Minute, time.UTC).RegisterJobs(s)

		jobs := s.Jobs()
		require.Len(t, jobs, 1)
		assert.Equal(t, LiveAttendanceCycleJob, jobs[0].Name)
	})
}

func TestAttendanceJobs_RunLiveCycle(t *testing.T) {
	t.Run("run in progress is skipped", func(t *testing.T) {
		engine := &stubEngine{err: attendance.ErrRunInProgress}
		jobs := NewAttendanceJobs(engine, nil, time.Minute, time.Minute, time.UTC)

		assert.NoError(t, jobs.RunLiveCycle(context.Background()))
		assert.Equal(t, 1, engine.calls)
	})

	t.Run("other errors propagate", func(t *testing.T) {
		boom := errors.New("db down")
		jobs := NewAttendanceJobs(&stubEngine{err: boom}, nil, time.Minute, time.Minute, time.UTC)

		assert.ErrorIs(t, jobs.RunLiveCycle(context.Background()), boom)
	})
}

func TestAttendanceJobs_IngestTerminals(t *testing.T) {
	jakarta, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)

	ingestion := &stubIngestion{err: biometric.ErrSourceUnavailable}
	jobs := NewAttendanceJobs(&stubEngine{}, ingestion, time.Minute, time.Minute, jakarta)
	// 2025-03-10 18:30 UTC is already 01:30 on the 11th in Jakarta.
	jobs.now = func() time.Time { return time.Date(2025, 3, 10, 18, 30, 0, 0, time.UTC) }

	err = jobs.IngestTerminals(context.Background())

	assert.ErrorIs(t, err, biometric.ErrSourceUnavailable)
	require.NotNil(t, ingestion.window.Since)
	assert.True(t, ingestion.window.Since.Equal(time.Date(2025, 3, 11, 0, 0, 0, 0, jakarta)))
}
