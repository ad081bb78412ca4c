package ingestion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/biometric"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	events     map[string][]biometric.RawEvent
	down       map[string]bool
	fetchErr   error
	closed     int
	lastWindow biometric.Window
	mu         sync.Mutex
}

func (s *fakeSource) Connect(ctx context.Context, host string, port int, timeouts biometric.Timeouts) (biometric.Session, error) {
	if s.down[host] {
		return nil, errors.New("dial tcp " + host + ": connection refused")
	}
	return &fakeSession{source: s, host: host}, nil
}

type fakeSession struct {
	source *fakeSource
	host   string
}

func (f *fakeSession) FetchEvents(ctx context.Context, window biometric.Window) ([]biometric.RawEvent, error) {
	f.source.mu.Lock()
	defer f.source.mu.Unlock()
	f.source.lastWindow = window
	if f.source.fetchErr != nil {
		return nil, f.source.fetchErr
	}
	return f.source.events[f.host], nil
}

func (f *fakeSession) Close() error {
	f.source.mu.Lock()
	defer f.source.mu.Unlock()
	f.source.closed++
	return nil
}

type memPunchRepo struct {
	mu      sync.Mutex
	punches []punch.Punch
	filter  punch.PunchFilter
}

func (r *memPunchRepo) InsertIfAbsent(ctx context.Context, p punch.Punch) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.punches {
		if existing.BiometricNumber == p.BiometricNumber && existing.PunchedAt.Equal(p.PunchedAt) {
			return false, nil
		}
	}
	r.punches = append(r.punches, p)
	return true, nil
}

func (r *memPunchRepo) Find(ctx context.Context, filter punch.PunchFilter) ([]punch.Punch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filter = filter
	var out []punch.Punch
	for _, p := range r.punches {
		if filter.EmployeeNumber != nil && (p.EmployeeNumber == nil || *p.EmployeeNumber != *filter.EmployeeNumber) {
			continue
		}
		if filter.From != nil && p.PunchedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !p.PunchedAt.Before(*filter.To) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

type memEnrollmentRepo struct {
	mu      sync.Mutex
	numbers map[int64]string
	lookups int
}

func (r *memEnrollmentRepo) GetEmployeeNumber(ctx context.Context, biometricNumber int64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
	n, ok := r.numbers[biometricNumber]
	if !ok {
		return "", biometric.ErrUnresolvedIdentity
	}
	return n, nil
}

var (
	gateA = biometric.Terminal{Name: "gate-a", Host: "10.0.0.21", Port: 4370}
	gateB = biometric.Terminal{Name: "gate-b", Host: "10.0.0.22", Port: 4370}
)

func rawEvent(userID string, ts time.Time) biometric.RawEvent {
	return biometric.RawEvent{DeviceLocalUserID: userID, IP: "10.0.0.21", RecordTime: ts}
}

func newTestService(source *fakeSource, punches *memPunchRepo, enrollments *memEnrollmentRepo, terminals ...biometric.Terminal) punch.IngestionService {
	return NewIngestionService(source, punches, enrollments, terminals,
		biometric.Timeouts{Connect: time.Second, Read: time.Second}, time.UTC)
}

func TestIngestionService_Pull(t *testing.T) {
	ctx := context.Background()
	morning := time.Date(2025, 3, 10, 8, 55, 0, 0, time.UTC)
	evening := time.Date(2025, 3, 10, 17, 45, 0, 0, time.UTC)

	source := &fakeSource{events: map[string][]biometric.RawEvent{
		gateA.Host: {
			rawEvent("42", morning),
			rawEvent("42", evening),
			rawEvent("42", evening),
			rawEvent("99", morning),
			rawEvent("badge-7", morning),
		},
	}}
	punches := &memPunchRepo{}
	enrollments := &memEnrollmentRepo{numbers: map[int64]string{42: "EMP-1"}}
	svc := newTestService(source, punches, enrollments, gateA)

	// Act
	result, err := svc.Pull(ctx, gateA, biometric.Window{})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, punch.IngestResult{
		Terminal:   "gate-a",
		Fetched:    5,
		Inserted:   3,
		Duplicates: 1,
		Unresolved: 1,
		Invalid:    1,
	}, result)
	assert.Equal(t, 1, source.closed)
	// One lookup per biometric number.
	assert.Equal(t, 2, enrollments.lookups)

	require.Len(t, punches.punches, 3)
	assert.Equal(t, int64(42), punches.punches[0].BiometricNumber)
	require.NotNil(t, punches.punches[0].EmployeeNumber)
	assert.Equal(t, "EMP-1", *punches.punches[0].EmployeeNumber)
	assert.Equal(t, "gate-a", punches.punches[0].DeviceID)
	assert.Nil(t, punches.punches[2].EmployeeNumber)
}

func TestIngestionService_Pull_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	ts := time.Date(2025, 3, 10, 8, 55, 0, 0, time.UTC)
	source := &fakeSource{events: map[string][]biometric.RawEvent{gateA.Host: {rawEvent("42", ts)}}}
	punches := &memPunchRepo{}
	svc := newTestService(source, punches, &memEnrollmentRepo{numbers: map[int64]string{42: "EMP-1"}}, gateA)

	first, err := svc.Pull(ctx, gateA, biometric.Window{})
	require.NoError(t, err)
	second, err := svc.Pull(ctx, gateA, biometric.Window{})
	require.NoError(t, err)

	assert.Equal(t, 1, first.Inserted)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 1, second.Duplicates)
	assert.Len(t, punches.punches, 1)
}

func TestIngestionService_Pull_SourceUnavailable(t *testing.T) {
	ctx := context.Background()

	t.Run("connect fails", func(t *testing.T) {
		source := &fakeSource{down: map[string]bool{gateA.Host: true}}
		svc := newTestService(source, &memPunchRepo{}, &memEnrollmentRepo{}, gateA)

		_, err := svc.Pull(ctx, gateA, biometric.Window{})

		assert.ErrorIs(t, err, biometric.ErrSourceUnavailable)
		assert.Contains(t, err.Error(), "gate-a")
	})

	t.Run("fetch fails", func(t *testing.T) {
		source := &fakeSource{fetchErr: errors.New("read timeout")}
		punches := &memPunchRepo{}
		svc := newTestService(source, punches, &memEnrollmentRepo{}, gateA)

		_, err := svc.Pull(ctx, gateA, biometric.Window{})

		assert.ErrorIs(t, err, biometric.ErrSourceUnavailable)
		assert.Equal(t, 1, source.closed)
		assert.Empty(t, punches.punches)
	})
}

func TestIngestionService_Pull_PassesWindow(t *testing.T) {
	source := &fakeSource{}
	svc := newTestService(source, &memPunchRepo{}, &memEnrollmentRepo{}, gateA)
	since := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	_, err := svc.Pull(context.Background(), gateA, biometric.Window{Since: &since})

	require.NoError(t, err)
	require.NotNil(t, source.lastWindow.Since)
	assert.True(t, since.Equal(*source.lastWindow.Since))
}

func TestIngestionService_PullAll_IsolatesFailures(t *testing.T) {
	ts := time.Date(2025, 3, 10, 8, 55, 0, 0, time.UTC)
	source := &fakeSource{
		events: map[string][]biometric.RawEvent{gateB.Host: {rawEvent("42", ts)}},
		down:   map[string]bool{gateA.Host: true},
	}
	punches := &memPunchRepo{}
	svc := newTestService(source, punches, &memEnrollmentRepo{numbers: map[int64]string{42: "EMP-1"}}, gateA, gateB)

	results, err := svc.PullAll(context.Background(), biometric.Window{})

	assert.ErrorIs(t, err, biometric.ErrSourceUnavailable)
	require.Len(t, results, 2)
	assert.Equal(t, "gate-a", results[0].Terminal)
	assert.NotEmpty(t, results[0].Error)
	assert.Equal(t, "gate-b", results[1].Terminal)
	assert.Empty(t, results[1].Error)
	assert.Equal(t, 1, results[1].Inserted)
	assert.Len(t, punches.punches, 1)
}

func TestIngestionService_ListPunches(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)

	employeeNumber := "EMP-1"
	punches := &memPunchRepo{punches: []punch.Punch{
		{ID: "1", BiometricNumber: 42, EmployeeNumber: &employeeNumber, DeviceID: "gate-a", PunchedAt: time.Date(2025, 3, 9, 16, 0, 0, 0, time.UTC)},
		{ID: "2", BiometricNumber: 42, EmployeeNumber: &employeeNumber, DeviceID: "gate-a", PunchedAt: time.Date(2025, 3, 10, 1, 55, 0, 0, time.UTC)},
		{ID: "3", BiometricNumber: 42, EmployeeNumber: &employeeNumber, DeviceID: "gate-a", PunchedAt: time.Date(2025, 3, 10, 17, 0, 0, 0, time.UTC)},
	}}
	svc := NewIngestionService(&fakeSource{}, punches, &memEnrollmentRepo{}, nil, biometric.Timeouts{}, loc)

	got, err := svc.ListPunches(context.Background(), punch.ListPunchesRequest{EmployeeNumber: "EMP-1", Date: "2025-03-10"})

	require.NoError(t, err)
	// 16:00Z on the 9th is still the 9th in Jakarta; 17:00Z on the 10th is the 11th.
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
	assert.True(t, punches.filter.From.Equal(time.Date(2025, 3, 9, 17, 0, 0, 0, time.UTC)))
}

func TestIngestionService_ListPunches_Validation(t *testing.T) {
	svc := newTestService(&fakeSource{}, &memPunchRepo{}, &memEnrollmentRepo{})

	_, err := svc.ListPunches(context.Background(), punch.ListPunchesRequest{Date: "2025/03/10"})

	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 2)
}

func TestParseBiometricNumber(t *testing.T) {
	n, err := parseBiometricNumber(" 42 ")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	_, err = parseBiometricNumber("-1")
	assert.ErrorIs(t, err, biometric.ErrInvalidUserID)

	_, err = parseBiometricNumber("")
	assert.ErrorIs(t, err, biometric.ErrInvalidUserID)
}
