package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
)

// Writer persists classified days under one of two policies.
type Writer struct {
	repo attendance.AttendanceRepository
	tx   database.Transactor
}

func NewWriter(repo attendance.AttendanceRepository, tx database.Transactor) *Writer {
	return &Writer{repo: repo, tx: tx}
}

// WriteBackfill creates rec unless any record already exists for its key.
// Existing rows are never modified.
func (w *Writer) WriteBackfill(ctx context.Context, rec attendance.Record) (attendance.WriteOutcome, error) {
	exists, err := w.repo.Exists(ctx, rec.EmployeeNumber, rec.Date)
	if err != nil {
		return "", err
	}
	if exists {
		return attendance.OutcomeSkipped, nil
	}

	if _, err := w.repo.Insert(ctx, rec); err != nil {
		if errors.Is(err, attendance.ErrDuplicateKey) {
			return attendance.OutcomeSkipped, nil
		}
		return "", err
	}
	return attendance.OutcomeCreated, nil
}

// WriteLive creates rec or supersedes a record this engine wrote earlier.
// Records owned by other workflows are left alone. A duplicate key on insert
// means a concurrent writer won the race; the write is retried once in a new
// transaction, where it resolves to an update.
func (w *Writer) WriteLive(ctx context.Context, rec attendance.Record) (attendance.WriteOutcome, error) {
	outcome, err := w.writeLiveTx(ctx, rec)
	if errors.Is(err, attendance.ErrDuplicateKey) {
		slog.Debug("Attendance insert raced, retrying as update",
			"employee_number", rec.EmployeeNumber,
			"date", rec.Date.Format(attendance.DateLayout))
		outcome, err = w.writeLiveTx(ctx, rec)
	}
	return outcome, err
}

func (w *Writer) writeLiveTx(ctx context.Context, rec attendance.Record) (attendance.WriteOutcome, error) {
	var outcome attendance.WriteOutcome

	err := w.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := w.repo.Get(ctx, rec.EmployeeNumber, rec.Date)
		if err != nil {
			return err
		}

		if existing == nil {
			if _, err := w.repo.Insert(ctx, rec); err != nil {
				return err
			}
			outcome = attendance.OutcomeCreated
			return nil
		}

		if existing.Protected() {
			outcome = attendance.OutcomeSkipped
			return nil
		}
		if existing.SameOutcome(rec) {
			outcome = attendance.OutcomeUnchanged
			return nil
		}

		_, applied, err := w.repo.Upsert(ctx, rec)
		if err != nil {
			return err
		}
		if !applied {
			outcome = attendance.OutcomeSkipped
			return nil
		}
		outcome = attendance.OutcomeUpdated
		return nil
	})
	if err != nil {
		if errors.Is(err, attendance.ErrDuplicateKey) {
			return "", err
		}
		return "", fmt.Errorf("write attendance: %w", err)
	}

	return outcome, nil
}
