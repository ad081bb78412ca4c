package biometric

import (
	"context"
	"time"
)

// Enrollment links a terminal-local biometric number to an employee number.
type Enrollment struct {
	BiometricNumber int64
	EmployeeNumber  string
	CreatedAt       time.Time
}

// Terminal describes one biometric terminal to poll.
type Terminal struct {
	Name string `yaml:"name"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type Timeouts struct {
	Connect time.Duration
	Read    time.Duration
}

// Window bounds the records requested from a terminal. A nil Since asks for
// every record the terminal still holds.
type Window struct {
	Since *time.Time
}

// RawEvent is a record exactly as reported by a terminal.
type RawEvent struct {
	DeviceLocalUserID string
	IP                string
	RecordTime        time.Time
}

// Source opens sessions against biometric terminals.
type Source interface {
	Connect(ctx context.Context, host string, port int, timeouts Timeouts) (Session, error)
}

type Session interface {
	FetchEvents(ctx context.Context, window Window) ([]RawEvent, error)
	Close() error
}
