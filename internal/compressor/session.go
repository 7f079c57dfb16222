package compressor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"video-compressor/internal/engine"
	"video-compressor/internal/logging"
	"video-compressor/internal/metrics"
	"video-compressor/internal/workers"
)

// Errors returned by Session operations.
var (
	// ErrInvalidTransition reports an operation invoked in the wrong stage.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrEngineNotReady reports StartCompression before the engine loaded.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrClosed reports use of a session after Close.
	ErrClosed = errors.New("session closed")
	// ErrUnknownQuality reports an undefined quality option.
	ErrUnknownQuality = errors.New("unknown quality")
	// ErrEmptyInput reports a submitted file with no bytes.
	ErrEmptyInput = errors.New("input file is empty")
)

func transitionError(op string, from Stage) error {
	return fmt.Errorf("%w: %s not allowed in stage %s", ErrInvalidTransition, op, from)
}

// InputFile is a video handed over by the intake layer.
type InputFile struct {
	Name string
	Data []byte
}

// Size returns the file size in bytes.
func (f InputFile) Size() int64 {
	return int64(len(f.Data))
}

// FailureKind classifies why a session failed.
type FailureKind string

const (
	FailureLoad      FailureKind = "load"
	FailureExecution FailureKind = "execution"
	FailureLogMarker FailureKind = "log_marker"
)

// Failure describes a failed session.
type Failure struct {
	Kind FailureKind
	Err  error
}

// Config configures a Session.
type Config struct {
	// Engine creates the session's engine on file submission. Required.
	Engine engine.Factory
	// Load is passed to Engine.Load.
	Load engine.LoadConfig
	// Threads is the encoder thread count (default DefaultThreads).
	Threads int
	// Inspector scrapes engine logs (default DefaultInspector()).
	Inspector LogInspector
	// Slots, when set, bounds concurrent encodes across sessions.
	Slots *workers.Pool
	// TerminateTimeout bounds the wait for an engine to stop (default 5s).
	TerminateTimeout time.Duration
	// Log receives session lines; nil logs without a prefix.
	Log *logging.Logger
}

// Session is one visitor's compression workflow. All methods are safe for
// concurrent use.
type Session struct {
	cfg    Config
	log    *logging.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu               sync.Mutex
	closed           bool
	stage            Stage
	input            *InputFile
	quality          Quality
	progress         float64
	outputSize       int64
	output           []byte
	failure          *Failure
	eng              engine.Engine
	engineReady      bool
	generation       uint64
	playbackRevision uint64
	runCancel        context.CancelFunc
	startedAt        time.Time

	subs    map[int]chan View
	nextSub int
}

// New creates an idle session.
func New(cfg Config) *Session {
	if cfg.Threads <= 0 {
		cfg.Threads = DefaultThreads
	}
	if cfg.Inspector == nil {
		cfg.Inspector = DefaultInspector()
	}
	if cfg.TerminateTimeout <= 0 {
		cfg.TerminateTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		cfg:     cfg,
		log:     cfg.Log,
		ctx:     ctx,
		cancel:  cancel,
		quality: DefaultQuality,
		subs:    make(map[int]chan View),
	}
}

// Stage returns the current stage.
func (s *Session) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// SubmitFile stores file and moves the session to QualitySelection. The
// engine is created and loaded in the background; StartCompression is
// accepted once it is ready. Only valid in Idle.
func (s *Session) SubmitFile(file InputFile) error {
	s.mu.Lock()

	if err := s.checkSubmitLocked(file); err != nil {
		s.mu.Unlock()
		return err
	}

	stale := s.releaseLocked()

	s.input = &file
	s.eng = s.cfg.Engine()
	s.setStageLocked(StageQualitySelection)

	metrics.CompressionInputBytes.Observe(float64(file.Size()))
	s.log.Info("Accepted %q (%s)", file.Name, DisplaySize(file.Size()))

	go s.loadEngine(s.generation, s.eng)

	s.notifyLocked()
	s.mu.Unlock()

	s.terminate(stale)
	return nil
}

func (s *Session) checkSubmitLocked(file InputFile) error {
	switch {
	case s.closed:
		return ErrClosed
	case s.stage != StageIdle:
		return transitionError("submit file", s.stage)
	case len(file.Data) == 0:
		return ErrEmptyInput
	case s.cfg.Engine == nil:
		return &engine.LoadError{Err: errors.New("no engine configured")}
	}
	return nil
}

func (s *Session) loadEngine(gen uint64, eng engine.Engine) {
	start := time.Now()
	err := eng.Load(s.ctx, s.cfg.Load)
	metrics.EngineLoadDuration.Observe(time.Since(start).Seconds())

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return
	}
	if err != nil {
		metrics.EngineLoadsTotal.WithLabelValues("error").Inc()
		s.failLocked(FailureLoad, err)
		return
	}

	metrics.EngineLoadsTotal.WithLabelValues("success").Inc()
	s.engineReady = true
	s.log.Debug("Engine ready in %v", time.Since(start))
	s.notifyLocked()
}

// SelectQuality changes the quality used by the next compression. Only
// valid in QualitySelection.
func (s *Session) SelectQuality(q Quality) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if !q.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownQuality, int(q))
	}
	if s.stage != StageQualitySelection {
		return transitionError("select quality", s.stage)
	}
	if s.quality != q {
		s.quality = q
		s.notifyLocked()
	}
	return nil
}

// StartCompression begins encoding the input with the selected quality.
// Only valid in QualitySelection after the engine has loaded. Progress,
// log and completion are delivered asynchronously.
func (s *Session) StartCompression() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.stage != StageQualitySelection {
		return transitionError("start compression", s.stage)
	}
	if !s.engineReady {
		return ErrEngineNotReady
	}

	runCtx, cancel := context.WithCancel(s.ctx)
	s.runCancel = cancel
	s.progress = 0
	s.outputSize = 0
	s.startedAt = time.Now()
	s.setStageLocked(StageCompressing)
	metrics.CompressionJobsInProgress.Inc()

	job := compressJob{
		gen:     s.generation,
		eng:     s.eng,
		input:   *s.input,
		quality: s.quality,
	}
	s.log.Info("Compressing at %s quality (crf %d)", job.quality, job.quality.CRF())

	go s.run(runCtx, job)

	s.notifyLocked()
	return nil
}

// OnEngineProgress records a completion fraction (0.0 to 1.0). The last
// value delivered wins. Ignored outside Compressing.
func (s *Session) OnEngineProgress(fraction float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progressLocked(fraction)
}

// OnEngineLog inspects one engine log line for the running output size and
// fatal markers. Ignored outside Compressing.
func (s *Session) OnEngineLog(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logLocked(msg)
}

// OnEngineSuccess stores the compressed output and completes the session.
// Only valid in Compressing.
func (s *Session) OnEngineSuccess(output []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	return s.succeedLocked(output)
}

// OnEngineFailure fails the session. In QualitySelection it is treated as
// an engine load failure, in Compressing as an execution failure. Ignored
// in any other stage.
func (s *Session) OnEngineFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kind := FailureExecution
	if s.stage == StageQualitySelection {
		kind = FailureLoad
	}
	s.failLocked(kind, err)
}

// Discard releases the input and output, revokes playback references and
// returns the session to Idle. Only valid in Completed or Failed.
func (s *Session) Discard() error {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if !s.stage.Terminal() {
		from := s.stage
		s.mu.Unlock()
		return transitionError("discard", from)
	}

	stale := s.releaseLocked()
	s.setStageLocked(StageIdle)
	s.notifyLocked()
	s.mu.Unlock()

	s.terminate(stale)
	return nil
}

// Close ends the session from any stage. A running compression is
// abandoned, the engine is asked to stop and every buffer is released.
// Close never blocks longer than the terminate timeout on an unresponsive
// engine. Calling Close again has no effect.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true

	if s.stage == StageCompressing {
		metrics.CompressionJobsInProgress.Dec()
		metrics.CompressionJobsTotal.WithLabelValues("abandoned", s.quality.String()).Inc()
		s.log.Info("Abandoning running compression")
	}

	stale := s.releaseLocked()
	s.setStageLocked(StageIdle)
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.mu.Unlock()

	s.cancel()
	s.terminate(stale)
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Input returns the submitted file. ok is false in Idle.
func (s *Session) Input() (file InputFile, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.input == nil {
		return InputFile{}, false
	}
	return *s.input, true
}

// Output returns the compressed bytes. ok is false unless Completed.
func (s *Session) Output() (data []byte, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != StageCompleted {
		return nil, false
	}
	return s.output, true
}

// PlaybackRevision changes whenever previously handed out playback
// references stop being valid.
func (s *Session) PlaybackRevision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playbackRevision
}

func (s *Session) setStageLocked(to Stage) {
	if s.stage != to {
		s.log.Debug("Stage %s -> %s", s.stage, to)
	}
	s.stage = to
}

func (s *Session) progressLocked(fraction float64) {
	if s.stage != StageCompressing || math.IsNaN(fraction) {
		return
	}
	fraction = min(max(fraction, 0), 1)
	if p := fraction * 100; p != s.progress {
		s.progress = p
		s.notifyLocked()
	}
}

func (s *Session) logLocked(msg string) {
	if s.stage != StageCompressing {
		return
	}

	sig := s.cfg.Inspector.Inspect(msg)
	if sig.HasSize && sig.OutputSize != s.outputSize {
		s.outputSize = sig.OutputSize
		s.notifyLocked()
	}
	if sig.Fatal {
		s.failLocked(FailureLogMarker, &engine.ExecError{Err: fmt.Errorf("engine reported: %s", msg)})
	}
}

func (s *Session) succeedLocked(output []byte) error {
	if s.stage != StageCompressing {
		return transitionError("complete", s.stage)
	}

	s.output = output
	s.outputSize = int64(len(output))
	s.progress = 100
	s.stopRunLocked()
	s.setStageLocked(StageCompleted)

	original := s.input.Size()
	q := s.quality.String()
	metrics.CompressionJobsInProgress.Dec()
	metrics.CompressionJobsTotal.WithLabelValues("success", q).Inc()
	metrics.CompressionJobDuration.WithLabelValues(q).Observe(time.Since(s.startedAt).Seconds())
	metrics.CompressionOutputBytes.Observe(float64(s.outputSize))
	if original > 0 {
		metrics.CompressionRatio.WithLabelValues(q).Observe(float64(s.outputSize) / float64(original))
	}

	s.log.Info("Compressed %s -> %s (%+.0f%%) in %v",
		DisplaySize(original), DisplaySize(s.outputSize),
		PercentChange(original, s.outputSize), time.Since(s.startedAt).Round(time.Millisecond))

	s.notifyLocked()
	return nil
}

func (s *Session) failLocked(kind FailureKind, err error) {
	switch {
	case s.stage == StageCompressing:
		metrics.CompressionJobsInProgress.Dec()
		metrics.CompressionJobsTotal.WithLabelValues("failure", s.quality.String()).Inc()
	case s.stage == StageQualitySelection && kind == FailureLoad:
	default:
		s.log.Debug("Ignoring %s failure in stage %s: %v", kind, s.stage, err)
		return
	}

	if err == nil {
		err = errors.New("engine failed")
	}
	metrics.EngineFailuresTotal.WithLabelValues(string(kind)).Inc()
	s.log.Warn("Compression failed (%s): %v", kind, err)

	s.output = nil
	s.failure = &Failure{Kind: kind, Err: err}
	s.stopRunLocked()
	s.setStageLocked(StageFailed)
	s.notifyLocked()
}

func (s *Session) stopRunLocked() {
	if s.runCancel != nil {
		s.runCancel()
		s.runCancel = nil
	}
}

// releaseLocked drops everything tied to the current generation and
// returns the engine that must be terminated once the lock is released.
func (s *Session) releaseLocked() engine.Engine {
	s.generation++
	s.stopRunLocked()

	eng := s.eng
	s.eng = nil
	s.engineReady = false
	s.input = nil
	s.output = nil
	s.outputSize = 0
	s.progress = 0
	s.failure = nil
	s.quality = DefaultQuality
	s.playbackRevision++
	return eng
}

// terminate stops eng without waiting longer than TerminateTimeout.
func (s *Session) terminate(eng engine.Engine) {
	if eng == nil {
		return
	}

	done := make(chan error, 1)
	go func() {
		done <- eng.Terminate()
	}()

	select {
	case err := <-done:
		if err != nil {
			s.log.Warn("Engine terminate failed: %v", err)
		}
	case <-time.After(s.cfg.TerminateTimeout):
		s.log.Warn("Engine did not stop within %v, abandoning it", s.cfg.TerminateTimeout)
	}
}
