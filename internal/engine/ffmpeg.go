package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"video-compressor/internal/filesystem"
	"video-compressor/internal/logging"
)

var commandContext = exec.CommandContext

const (
	eventBuffer  = 256
	tailLines    = 20
	defaultProbe = 5 * time.Second
)

// FFmpeg runs a native ffmpeg binary inside a private workspace directory.
type FFmpeg struct {
	events chan Event
	done   chan struct{}
	log    *logging.Logger

	mu         sync.Mutex
	binary     string
	workspace  string
	loaded     bool
	terminated bool
	running    *exec.Cmd
}

// NewFFmpeg creates an unloaded ffmpeg engine. log may be nil.
func NewFFmpeg(log *logging.Logger) *FFmpeg {
	return &FFmpeg{
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
		log:    log,
	}
}

// FFmpegFactory returns a Factory producing ffmpeg engines that log
// through log.
func FFmpegFactory(log *logging.Logger) Factory {
	return func() Engine {
		return NewFFmpeg(log)
	}
}

// Load resolves the binary, probes its version and creates the workspace.
func (f *FFmpeg) Load(ctx context.Context, cfg LoadConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.terminated {
		return &LoadError{Err: ErrTerminated}
	}
	if f.loaded {
		return nil
	}

	binary := cfg.Binary
	if binary == "" {
		binary = "ffmpeg"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return &LoadError{Err: fmt.Errorf("%s not found: %w", binary, err)}
	}

	timeout := cfg.ProbeTimeout
	if timeout <= 0 {
		timeout = defaultProbe
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	output, err := commandContext(probeCtx, path, "-hide_banner", "-version").Output()
	if err != nil {
		return &LoadError{Err: fmt.Errorf("probe %s: %w", path, err)}
	}
	if first, _, _ := strings.Cut(string(output), "\n"); first != "" {
		f.log.Debug("Engine version: %s", strings.TrimSpace(first))
	}

	if cfg.WorkDir != "" {
		if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
			return &LoadError{Err: fmt.Errorf("create work directory: %w", err)}
		}
	}
	workspace, err := os.MkdirTemp(cfg.WorkDir, "engine-")
	if err != nil {
		return &LoadError{Err: fmt.Errorf("create workspace: %w", err)}
	}

	f.binary = path
	f.workspace = workspace
	f.loaded = true
	f.log.Debug("Engine loaded: binary=%s workspace=%s", path, workspace)
	return nil
}

// workspacePath resolves name inside the workspace. Names must be plain
// file names without directory components.
func (f *FFmpeg) workspacePath(name string) (string, error) {
	if !f.loaded {
		return "", ErrNotLoaded
	}
	if f.terminated {
		return "", ErrTerminated
	}
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(f.workspace, name), nil
}

// WriteFile stages data inside the workspace.
func (f *FFmpeg) WriteFile(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	path, err := f.workspacePath(name)
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if err := filesystem.WriteFileWithRetry(ctx, path, data, 0o600, filesystem.DefaultRetryConfig()); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// ReadFile reads a workspace file.
func (f *FFmpeg) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	path, err := f.workspacePath(name)
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	data, err := filesystem.ReadFileWithRetry(ctx, path, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// Events returns the engine's event channel.
func (f *FFmpeg) Events() <-chan Event {
	return f.events
}

func (f *FFmpeg) emit(ctx context.Context, ev Event) {
	select {
	case f.events <- ev:
	case <-ctx.Done():
	case <-f.done:
	}
}

// Exec runs ffmpeg with args in the workspace. stderr lines and the
// -progress key/value lines on stdout are both delivered as log events;
// progress blocks additionally produce progress events.
func (f *FFmpeg) Exec(ctx context.Context, args []string) error {
	f.mu.Lock()
	if !f.loaded {
		f.mu.Unlock()
		return ErrNotLoaded
	}
	if f.terminated {
		f.mu.Unlock()
		return ErrTerminated
	}
	if f.running != nil {
		f.mu.Unlock()
		return ErrBusy
	}

	fullArgs := append([]string{"-hide_banner", "-nostdin"}, args...)
	cmd := commandContext(ctx, f.binary, fullArgs...) //nolint:gosec
	cmd.Dir = f.workspace

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		f.mu.Unlock()
		return &ExecError{Err: fmt.Errorf("stdout pipe: %w", err)}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		f.mu.Unlock()
		return &ExecError{Err: fmt.Errorf("stderr pipe: %w", err)}
	}
	if err := cmd.Start(); err != nil {
		f.mu.Unlock()
		return &ExecError{Err: fmt.Errorf("start ffmpeg: %w", err)}
	}
	f.running = cmd
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.running = nil
		f.mu.Unlock()
	}()

	f.log.Debug("Engine exec: %s %s", f.binary, strings.Join(fullArgs, " "))

	tracker := &progressTracker{}
	tail := newTail(tailLines)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		f.scan(ctx, stderr, func(line string) {
			tracker.observeLog(line)
			tail.add(line)
			f.emit(ctx, Event{Kind: EventLog, Message: line})
		})
	}()
	go func() {
		defer wg.Done()
		f.scan(ctx, stdout, func(line string) {
			f.emit(ctx, Event{Kind: EventLog, Message: line})
			if fraction, ok := tracker.observeProgress(line); ok {
				f.emit(ctx, Event{Kind: EventProgress, Progress: fraction})
			}
		})
	}()
	wg.Wait()

	waitErr := cmd.Wait()
	if waitErr == nil {
		return nil
	}

	execErr := &ExecError{Err: waitErr, Tail: tail.lines()}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		execErr.ExitCode = exitErr.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		execErr.Err = ctxErr
	}
	select {
	case <-f.done:
		execErr.Err = ErrTerminated
	default:
	}
	return execErr
}

// scan reads lines from r until EOF. ffmpeg separates its status updates
// with carriage returns, so both \r and \n end a line.
func (f *FFmpeg) scan(ctx context.Context, r io.Reader, handle func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	scanner.Split(scanLines)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		handle(line)
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		f.log.Warn("Error reading engine output: %v", err)
		// Drain so the process is not blocked on a full pipe.
		_, _ = io.Copy(io.Discard, r)
	}
}

func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i, b := range data {
		if b == '\n' || b == '\r' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Terminate kills a running command and removes the workspace.
func (f *FFmpeg) Terminate() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.terminated {
		return nil
	}
	f.terminated = true
	close(f.done)

	if f.running != nil && f.running.Process != nil {
		f.log.Info("Killing running engine process (pid %d)", f.running.Process.Pid)
		if err := f.running.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			f.log.Warn("failed to kill engine process: %v", err)
		}
	}

	if f.workspace != "" {
		if err := os.RemoveAll(f.workspace); err != nil {
			return fmt.Errorf("remove workspace: %w", err)
		}
	}
	return nil
}

// tail keeps the last n lines written to it.
type tail struct {
	mu    sync.Mutex
	n     int
	items []string
}

func newTail(n int) *tail {
	return &tail{n: n}
}

func (t *tail) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = append(t.items, line)
	if len(t.items) > t.n {
		t.items = t.items[len(t.items)-t.n:]
	}
}

func (t *tail) lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.items...)
}

var _ Engine = (*FFmpeg)(nil)
