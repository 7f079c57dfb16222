package engine

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// EventKind distinguishes engine events.
type EventKind int

const (
	// EventLog carries one line of engine diagnostic output.
	EventLog EventKind = iota
	// EventProgress carries a completion fraction between 0 and 1.
	EventProgress
)

// Event is a single log line or progress update emitted while Exec runs.
type Event struct {
	Kind     EventKind
	Message  string
	Progress float64
}

// LoadConfig identifies the encoder resources to load.
type LoadConfig struct {
	// Binary is the encoder executable, resolved through PATH when relative.
	Binary string
	// WorkDir is the parent directory for the private workspace.
	WorkDir string
	// ProbeTimeout bounds the version probe run during Load.
	ProbeTimeout time.Duration
}

// Engine is an opaque encoder with a private file workspace.
type Engine interface {
	// Load prepares the engine. It fails with a *LoadError when resources
	// cannot be found or instantiated.
	Load(ctx context.Context, cfg LoadConfig) error
	// WriteFile stages bytes under name inside the workspace.
	WriteFile(ctx context.Context, name string, data []byte) error
	// Exec runs one encoder invocation and blocks until it finishes.
	// A failed run returns an *ExecError.
	Exec(ctx context.Context, args []string) error
	// ReadFile returns the bytes of a workspace file.
	ReadFile(ctx context.Context, name string) ([]byte, error)
	// Events delivers log and progress events produced during Exec. The
	// channel is never closed; every event of a run has been sent by the
	// time Exec returns.
	Events() <-chan Event
	// Terminate stops any running command and releases the workspace.
	// It is safe to call more than once.
	Terminate() error
}

// Factory creates a fresh, unloaded Engine.
type Factory func() Engine

// Sentinel errors for engine usage mistakes.
var (
	ErrNotLoaded   = errors.New("engine not loaded")
	ErrTerminated  = errors.New("engine terminated")
	ErrBusy        = errors.New("engine already running a command")
	ErrInvalidName = errors.New("invalid workspace file name")
)

// LoadError reports that the engine could not be loaded.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("engine load failed: %v", e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ExecError reports a failed or aborted encoder run.
type ExecError struct {
	Err      error
	ExitCode int
	// Tail holds the last diagnostic lines written before the failure.
	Tail []string
}

func (e *ExecError) Error() string {
	if e.ExitCode != 0 {
		return fmt.Sprintf("engine execution failed (exit %d): %v", e.ExitCode, e.Err)
	}
	return fmt.Sprintf("engine execution failed: %v", e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}
