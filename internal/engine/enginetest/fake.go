// Package enginetest provides a scripted in-memory Engine for tests.
package enginetest

import (
	"context"
	"fmt"
	"os"
	"sync"

	"video-compressor/internal/engine"
)

// Fake is a scripted engine. Configure its exported fields before handing
// it to the code under test; inspect the recorded calls afterwards.
type Fake struct {
	// LoadErr, when set, is returned from Load wrapped in *engine.LoadError.
	LoadErr error
	// LoadGate, when non-nil, blocks Load until it is closed.
	LoadGate chan struct{}
	// Script is emitted on the event channel at the start of Exec.
	Script []engine.Event
	// ExecGate, when non-nil, blocks Exec after the script until closed.
	ExecGate chan struct{}
	// ExecErr, when set, is returned from Exec.
	ExecErr error
	// Output is written to the last Exec argument when Exec succeeds.
	Output []byte

	events chan engine.Event
	done   chan struct{}

	mu         sync.Mutex
	loaded     bool
	terminated bool
	files      map[string][]byte
	execCalls  [][]string
	loadCalls  int
	execActive bool
}

// New returns a Fake with an event buffer large enough for test scripts.
func New() *Fake {
	return &Fake{
		events: make(chan engine.Event, 1024),
		done:   make(chan struct{}),
		files:  make(map[string][]byte),
	}
}

// Factory returns an engine.Factory that always yields f.
func (f *Fake) Factory() engine.Factory {
	return func() engine.Engine {
		return f
	}
}

func (f *Fake) Load(ctx context.Context, _ engine.LoadConfig) error {
	f.mu.Lock()
	f.loadCalls++
	gate := f.LoadGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return &engine.LoadError{Err: ctx.Err()}
		case <-f.done:
			return &engine.LoadError{Err: engine.ErrTerminated}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.terminated {
		return &engine.LoadError{Err: engine.ErrTerminated}
	}
	if f.LoadErr != nil {
		return &engine.LoadError{Err: f.LoadErr}
	}
	f.loaded = true
	return nil
}

func (f *Fake) WriteFile(_ context.Context, name string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.usable(); err != nil {
		return err
	}
	f.files[name] = append([]byte(nil), data...)
	return nil
}

func (f *Fake) Exec(ctx context.Context, args []string) error {
	f.mu.Lock()
	if err := f.usable(); err != nil {
		f.mu.Unlock()
		return err
	}
	if f.execActive {
		f.mu.Unlock()
		return engine.ErrBusy
	}
	f.execActive = true
	f.execCalls = append(f.execCalls, append([]string(nil), args...))
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.execActive = false
		f.mu.Unlock()
	}()

	for _, ev := range f.Script {
		select {
		case f.events <- ev:
		case <-ctx.Done():
			return &engine.ExecError{Err: ctx.Err()}
		case <-f.done:
			return &engine.ExecError{Err: engine.ErrTerminated}
		}
	}

	if f.ExecGate != nil {
		select {
		case <-f.ExecGate:
		case <-ctx.Done():
			return &engine.ExecError{Err: ctx.Err()}
		case <-f.done:
			return &engine.ExecError{Err: engine.ErrTerminated}
		}
	}

	if f.ExecErr != nil {
		return f.ExecErr
	}

	if len(args) > 0 {
		f.mu.Lock()
		f.files[args[len(args)-1]] = append([]byte(nil), f.Output...)
		f.mu.Unlock()
	}
	return nil
}

func (f *Fake) ReadFile(_ context.Context, name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.usable(); err != nil {
		return nil, err
	}
	data, ok := f.files[name]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", name, os.ErrNotExist)
	}
	return append([]byte(nil), data...), nil
}

func (f *Fake) Events() <-chan engine.Event {
	return f.events
}

func (f *Fake) Terminate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.terminated {
		f.terminated = true
		close(f.done)
	}
	return nil
}

func (f *Fake) usable() error {
	if f.terminated {
		return engine.ErrTerminated
	}
	if !f.loaded {
		return engine.ErrNotLoaded
	}
	return nil
}

// Emit pushes an event as if the engine produced it mid-run.
func (f *Fake) Emit(ev engine.Event) {
	f.events <- ev
}

// ExecCalls returns the argument lists Exec was called with.
func (f *Fake) ExecCalls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.execCalls))
	copy(out, f.execCalls)
	return out
}

// LoadCalls returns how many times Load was called.
func (f *Fake) LoadCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadCalls
}

// File returns a staged workspace file.
func (f *Fake) File(name string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[name]
	return data, ok
}

// Terminated reports whether Terminate was called.
func (f *Fake) Terminated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.terminated
}

var _ engine.Engine = (*Fake)(nil)
