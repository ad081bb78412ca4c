package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/biometric"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/validator"
	"golang.org/x/sync/errgroup"
)

type IngestionServiceImpl struct {
	source         biometric.Source
	punchRepo      punch.PunchRepository
	enrollmentRepo biometric.EnrollmentRepository
	terminals      []biometric.Terminal
	timeouts       biometric.Timeouts
	location       *time.Location
}

func NewIngestionService(
	source biometric.Source,
	punchRepo punch.PunchRepository,
	enrollmentRepo biometric.EnrollmentRepository,
	terminals []biometric.Terminal,
	timeouts biometric.Timeouts,
	location *time.Location,
) punch.IngestionService {
	if location == nil {
		location = time.UTC
	}
	return &IngestionServiceImpl{
		source:         source,
		punchRepo:      punchRepo,
		enrollmentRepo: enrollmentRepo,
		terminals:      terminals,
		timeouts:       timeouts,
		location:       location,
	}
}

// Pull implements punch.IngestionService.
func (s *IngestionServiceImpl) Pull(ctx context.Context, terminal biometric.Terminal, window biometric.Window) (punch.IngestResult, error) {
	result := punch.IngestResult{Terminal: terminal.Name}

	session, err := s.source.Connect(ctx, terminal.Host, terminal.Port, s.timeouts)
	if err != nil {
		return result, fmt.Errorf("connect %s (%s:%d): %w", terminal.Name, terminal.Host, terminal.Port, asUnavailable(err))
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			slog.Warn("Failed to close terminal session", "terminal", terminal.Name, "error", cerr)
		}
	}()

	events, err := session.FetchEvents(ctx, window)
	if err != nil {
		return result, fmt.Errorf("fetch events from %s: %w", terminal.Name, asUnavailable(err))
	}
	result.Fetched = len(events)

	// Enrollment lookups are repeated for every punch of a person.
	resolved := make(map[int64]*string)

	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		biometricNumber, err := parseBiometricNumber(ev.DeviceLocalUserID)
		if err != nil {
			result.Invalid++
			slog.Warn("Skipping terminal event", "terminal", terminal.Name, "user_id", ev.DeviceLocalUserID, "error", err)
			continue
		}

		employeeNumber, ok := resolved[biometricNumber]
		if !ok {
			employeeNumber, err = s.resolve(ctx, biometricNumber)
			if err != nil {
				return result, err
			}
			resolved[biometricNumber] = employeeNumber
		}

		deviceID := terminal.Name
		if deviceID == "" {
			deviceID = ev.IP
		}

		inserted, err := s.punchRepo.InsertIfAbsent(ctx, punch.Punch{
			BiometricNumber: biometricNumber,
			EmployeeNumber:  employeeNumber,
			DeviceID:        deviceID,
			PunchedAt:       ev.RecordTime,
		})
		if err != nil {
			return result, fmt.Errorf("store punch from %s: %w", terminal.Name, err)
		}
		if !inserted {
			result.Duplicates++
			continue
		}

		result.Inserted++
		if employeeNumber == nil {
			result.Unresolved++
			slog.Warn("Stored punch without enrollment",
				"terminal", terminal.Name,
				"biometric_number", biometricNumber,
				"punched_at", ev.RecordTime,
				"error", biometric.ErrUnresolvedIdentity)
		}
	}

	slog.Info("Terminal pull completed",
		"terminal", terminal.Name,
		"fetched", result.Fetched,
		"inserted", result.Inserted,
		"duplicates", result.Duplicates,
		"unresolved", result.Unresolved,
		"invalid", result.Invalid)

	return result, nil
}

// PullAll implements punch.IngestionService.
func (s *IngestionServiceImpl) PullAll(ctx context.Context, window biometric.Window) ([]punch.IngestResult, error) {
	results := make([]punch.IngestResult, len(s.terminals))

	var (
		mu   sync.Mutex
		errs []error
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, terminal := range s.terminals {
		g.Go(func() error {
			res, err := s.Pull(gctx, terminal, window)
			if err != nil {
				slog.Error("Terminal pull failed", "terminal", terminal.Name, "error", err)
				res.Error = err.Error()
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			results[i] = res
			// one terminal failing must not cancel the others
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, errors.Join(errs...)
}

// ListPunches implements punch.IngestionService.
func (s *IngestionServiceImpl) ListPunches(ctx context.Context, req punch.ListPunchesRequest) ([]punch.PunchResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	day, err := time.ParseInLocation(attendance.DateLayout, req.Date, s.location)
	if err != nil {
		return nil, err
	}
	next := day.AddDate(0, 0, 1)

	punches, err := s.punchRepo.Find(ctx, punch.PunchFilter{
		EmployeeNumber: &req.EmployeeNumber,
		From:           &day,
		To:             &next,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list punches: %w", err)
	}

	responses := make([]punch.PunchResponse, 0, len(punches))
	for _, p := range punches {
		responses = append(responses, punch.NewPunchResponse(p))
	}
	return responses, nil
}

func (s *IngestionServiceImpl) resolve(ctx context.Context, biometricNumber int64) (*string, error) {
	employeeNumber, err := s.enrollmentRepo.GetEmployeeNumber(ctx, biometricNumber)
	if err != nil {
		if errors.Is(err, biometric.ErrUnresolvedIdentity) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve biometric number %d: %w", biometricNumber, err)
	}
	return &employeeNumber, nil
}

func parseBiometricNumber(userID string) (int64, error) {
	trimmed := strings.TrimSpace(userID)
	if !validator.IsNumeric(trimmed) {
		return 0, fmt.Errorf("%w: %q", biometric.ErrInvalidUserID, userID)
	}
	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", biometric.ErrInvalidUserID, userID)
	}
	return n, nil
}

func asUnavailable(err error) error {
	if errors.Is(err, biometric.ErrSourceUnavailable) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", biometric.ErrSourceUnavailable, err)
}
