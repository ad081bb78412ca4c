package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/config"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/biometric"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
	appHTTP "github.com/cmlabs-hris/hris-attendance-engine/internal/handler/http"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/cron"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/terminal"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/hris-attendance-engine/internal/service/attendance"
	ingestionService "github.com/cmlabs-hris/hris-attendance-engine/internal/service/ingestion"
	shiftService "github.com/cmlabs-hris/hris-attendance-engine/internal/service/shift"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	logger := appHTTP.NewLogger(cfg.App.Env, cfg.LogLevel(), os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		slog.Error("Error connecting to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	location := cfg.Location()

	shiftRepo := postgresql.NewShiftRepository(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	enrollmentRepo := postgresql.NewEnrollmentRepository(db)
	punchRepo := postgresql.NewPunchRepository(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	txManager := postgresql.NewTxManager(db)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret)
	writer := attendanceService.NewWriter(attendanceRepo, txManager)
	engine := attendanceService.NewAttendanceEngine(
		punchRepo,
		employeeRepo,
		shiftRepo,
		attendanceRepo,
		writer,
		attendanceService.EngineOptions{
			Location:      location,
			PageSize:      cfg.Engine.BackfillPageSize,
			MarkAbsentees: cfg.Engine.MarkAbsentees,
		},
	)
	ingestion := ingestionService.NewIngestionService(
		terminal.NewHTTPSource(),
		punchRepo,
		enrollmentRepo,
		cfg.Terminal.Terminals,
		biometric.Timeouts{
			Connect: cfg.Terminal.ConnectTimeout,
			Read:    cfg.Terminal.ReadTimeout,
		},
		location,
	)
	shifts := shiftService.NewShiftService(shiftRepo)

	router := appHTTP.NewRouter(logger, JWTService, db, appHTTP.Handlers{
		Attendance: appHTTP.NewAttendanceHandler(engine),
		Punch:      appHTTP.NewPunchHandler(ingestion),
		Shift:      appHTTP.NewShiftHandler(shifts),
	})

	var scheduledIngestion punch.IngestionService
	if len(cfg.Terminal.Terminals) > 0 {
		scheduledIngestion = ingestion
	}
	scheduler := cron.NewScheduler(ctx)
	cron.NewAttendanceJobs(
		engine,
		scheduledIngestion,
		cfg.Engine.LiveCycleInterval,
		cfg.Engine.IngestInterval,
		location,
	).RegisterJobs(scheduler)
	scheduler.Start()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", server.Addr, "timezone", location.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			slog.Error("Server error", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
	scheduler.Stop()
}
