package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/config"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	appHTTP "github.com/cmlabs-hris/hris-attendance-engine/internal/handler/http"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/hris-attendance-engine/internal/service/attendance"
)

// backfill replays the stored punch history into attendance records without
// overwriting existing rows. With -date it reprocesses one day using the live
// policy instead.
func main() {
	date := flag.String("date", "", "reprocess a single YYYY-MM-DD date instead of the full history")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(1)
	}
	slog.SetDefault(appHTTP.NewLogger(cfg.App.Env, cfg.LogLevel(), os.Stderr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *date); err != nil {
		slog.Error("Backfill failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, date string) error {
	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	attendanceRepo := postgresql.NewAttendanceRepository(db)
	engine := attendanceService.NewAttendanceEngine(
		postgresql.NewPunchRepository(db),
		postgresql.NewEmployeeRepository(db),
		postgresql.NewShiftRepository(db),
		attendanceRepo,
		attendanceService.NewWriter(attendanceRepo, postgresql.NewTxManager(db)),
		attendanceService.EngineOptions{
			Location: cfg.Location(),
			PageSize: cfg.Engine.BackfillPageSize,
		},
	)

	var report attendance.RunReport
	if date != "" {
		report, err = engine.RunDate(ctx, attendance.RunDateRequest{Date: date})
	} else {
		report, err = engine.RunBackfill(ctx)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	if len(report.Errors) > 0 {
		slog.Warn("Backfill finished with group errors", "run_id", report.RunID, "errors", len(report.Errors))
	}
	return nil
}
