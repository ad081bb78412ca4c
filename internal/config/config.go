package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/biometric"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/validator"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	App      AppConfig
	Engine   EngineConfig
	Terminal TerminalConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port     int
	Env      string
	LogLevel string
	Timezone string
}

// EngineConfig holds attendance engine scheduling configuration
type EngineConfig struct {
	LiveCycleInterval time.Duration
	IngestInterval    time.Duration
	BackfillPageSize  int
	MarkAbsentees     bool
}

// TerminalConfig holds biometric terminal polling configuration
type TerminalConfig struct {
	File           string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	Terminals      []biometric.Terminal
}

type terminalsFile struct {
	Terminals []biometric.Terminal `yaml:"terminals"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	maxConns, err := strconv.Atoi(getEnv("DB_MAX_CONNS", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}
	minConns, err := strconv.Atoi(getEnv("DB_MIN_CONNS", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "cmlabs-hris"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(maxConns),
		MinConns: int32(minConns),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:     appPort,
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Timezone: getEnv("APP_TIMEZONE", "Asia/Jakarta"),
	}

	config.JWT = JWTConfig{
		Secret: getEnv("JWT_SECRET_KEY", ""),
	}

	// Engine configuration
	liveInterval, err := getEnvDuration("LIVE_CYCLE_INTERVAL", "15m")
	if err != nil {
		return nil, err
	}
	ingestInterval, err := getEnvDuration("INGEST_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}
	pageSize, err := strconv.Atoi(getEnv("BACKFILL_PAGE_SIZE", "5000"))
	if err != nil {
		return nil, fmt.Errorf("invalid BACKFILL_PAGE_SIZE: %w", err)
	}
	markAbsentees, err := strconv.ParseBool(getEnv("ATTENDANCE_MARK_ABSENTEES", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid ATTENDANCE_MARK_ABSENTEES: %w", err)
	}

	config.Engine = EngineConfig{
		LiveCycleInterval: liveInterval,
		IngestInterval:    ingestInterval,
		BackfillPageSize:  pageSize,
		MarkAbsentees:     markAbsentees,
	}

	// Terminal configuration
	connectTimeout, err := getEnvDuration("TERMINAL_CONNECT_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	readTimeout, err := getEnvDuration("TERMINAL_READ_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	config.Terminal = TerminalConfig{
		File:           getEnv("TERMINALS_FILE", "terminals.yaml"),
		ConnectTimeout: connectTimeout,
		ReadTimeout:    readTimeout,
	}

	terminals, err := LoadTerminals(config.Terminal.File)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		slog.Warn("Terminal inventory not found, ingestion disabled", "file", config.Terminal.File)
	}
	config.Terminal.Terminals = terminals

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// LoadTerminals reads the YAML terminal inventory at path.
func LoadTerminals(path string) ([]biometric.Terminal, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read terminals file %s: %w", path, err)
	}

	var f terminalsFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("config: parse terminals file %s: %w", path, err)
	}

	if err := validateTerminals(f.Terminals); err != nil {
		return nil, err
	}
	return f.Terminals, nil
}

func validateTerminals(terminals []biometric.Terminal) error {
	var errs validator.ValidationErrors
	seen := make(map[string]bool)

	for i, t := range terminals {
		field := fmt.Sprintf("terminals[%d]", i)
		if validator.IsEmpty(t.Name) {
			errs = append(errs, validator.ValidationError{Field: field + ".name", Message: "name is required"})
		} else if seen[t.Name] {
			errs = append(errs, validator.ValidationError{Field: field + ".name", Message: "duplicate terminal name " + t.Name})
		}
		seen[t.Name] = true

		if validator.IsEmpty(t.Host) {
			errs = append(errs, validator.ValidationError{Field: field + ".host", Message: "host is required"})
		}
		if !validator.IsValidPort(t.Port) {
			errs = append(errs, validator.ValidationError{Field: field + ".port", Message: "port must be between 1 and 65535"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if !validator.IsValidTimezone(c.App.Timezone) {
		return fmt.Errorf("APP_TIMEZONE %q is not a valid IANA time zone", c.App.Timezone)
	}
	if c.Engine.LiveCycleInterval <= 0 {
		return fmt.Errorf("LIVE_CYCLE_INTERVAL must be positive")
	}
	if c.Engine.IngestInterval <= 0 {
		return fmt.Errorf("INGEST_INTERVAL must be positive")
	}
	if c.Engine.BackfillPageSize <= 0 {
		return fmt.Errorf("BACKFILL_PAGE_SIZE must be positive")
	}
	return nil
}

// Location returns the organization time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LogLevel maps LOG_LEVEL to a slog level.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.App.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
