package compressor

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"video-compressor/internal/engine"
	"video-compressor/internal/engine/enginetest"
	"video-compressor/internal/workers"
)

const waitTimeout = 5 * time.Second

func newTestSession(t *testing.T, fake *enginetest.Fake) *Session {
	t.Helper()
	s := New(Config{Engine: fake.Factory(), TerminateTimeout: 200 * time.Millisecond})
	t.Cleanup(s.Close)
	return s
}

// waitFor polls the session until cond holds for its snapshot.
func waitFor(t *testing.T, s *Session, what string, cond func(View) bool) View {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for {
		v := s.Snapshot()
		if cond(v) {
			return v
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s; last view %+v", what, v)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func waitStage(t *testing.T, s *Session, stage Stage) View {
	t.Helper()
	return waitFor(t, s, "stage "+stage.String(), func(v View) bool { return v.Stage == stage })
}

func submitReady(t *testing.T, s *Session, file InputFile) {
	t.Helper()
	if err := s.SubmitFile(file); err != nil {
		t.Fatalf("SubmitFile: %v", err)
	}
	waitFor(t, s, "engine ready", func(v View) bool { return v.EngineReady })
}

func clip(size int) InputFile {
	return InputFile{Name: "clip.mp4", Data: bytes.Repeat([]byte{1}, size)}
}

func TestEndToEndCompression(t *testing.T) {
	fake := enginetest.New()
	fake.Script = []engine.Event{
		{Kind: engine.EventProgress, Progress: 0.25},
		{Kind: engine.EventLog, Message: "total_size=2097152"},
		{Kind: engine.EventProgress, Progress: 0.60},
		{Kind: engine.EventProgress, Progress: 1.0},
	}
	fake.Output = make([]byte, 10<<20)

	s := newTestSession(t, fake)
	submitReady(t, s, clip(50<<20))

	if err := s.SelectQuality(QualityMedium); err != nil {
		t.Fatalf("SelectQuality: %v", err)
	}
	if err := s.StartCompression(); err != nil {
		t.Fatalf("StartCompression: %v", err)
	}

	v := waitStage(t, s, StageCompleted)

	if v.OriginalDisplay != "50.0 MB" {
		t.Errorf("original = %q, want 50.0 MB", v.OriginalDisplay)
	}
	if v.OutputDisplay != "10.0 MB" {
		t.Errorf("compressed = %q, want 10.0 MB", v.OutputDisplay)
	}
	if v.PercentChange == nil || *v.PercentChange != -80 {
		t.Errorf("percent change = %v, want -80", v.PercentChange)
	}
	if v.DownloadName != "clip_compressed.mp4" {
		t.Errorf("download name = %q", v.DownloadName)
	}
	if v.Progress != 100 {
		t.Errorf("progress = %v, want 100", v.Progress)
	}

	out, ok := s.Output()
	if !ok || len(out) != 10<<20 {
		t.Fatalf("Output() = %d bytes, %v", len(out), ok)
	}

	calls := fake.ExecCalls()
	if len(calls) != 1 {
		t.Fatalf("exec called %d times, want 1", len(calls))
	}
	want := CompressArgs("input.mp4", OutputFileName, QualityMedium, DefaultThreads)
	for i := range want {
		if calls[0][i] != want[i] {
			t.Fatalf("exec args = %v, want %v", calls[0], want)
		}
	}
	if staged, ok := fake.File("input.mp4"); !ok || len(staged) != 50<<20 {
		t.Errorf("input not staged in the engine workspace")
	}
}

func TestStartCompressionRejectedOutsideQualitySelection(t *testing.T) {
	fake := enginetest.New()
	fake.Output = []byte("out")
	s := newTestSession(t, fake)

	if err := s.StartCompression(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("StartCompression in Idle = %v, want ErrInvalidTransition", err)
	}
	if s.Stage() != StageIdle || len(fake.ExecCalls()) != 0 {
		t.Fatal("rejected start must not change stage or call the engine")
	}

	submitReady(t, s, clip(64))
	if err := s.StartCompression(); err != nil {
		t.Fatalf("StartCompression: %v", err)
	}
	waitStage(t, s, StageCompleted)

	if err := s.StartCompression(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("StartCompression in Completed = %v, want ErrInvalidTransition", err)
	}
	if s.Stage() != StageCompleted || len(fake.ExecCalls()) != 1 {
		t.Fatal("rejected start must not change stage or call the engine")
	}
}

func TestStartCompressionWhileCompressing(t *testing.T) {
	fake := enginetest.New()
	fake.ExecGate = make(chan struct{})
	s := newTestSession(t, fake)

	submitReady(t, s, clip(64))
	if err := s.StartCompression(); err != nil {
		t.Fatalf("StartCompression: %v", err)
	}
	if err := s.StartCompression(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second StartCompression = %v, want ErrInvalidTransition", err)
	}

	close(fake.ExecGate)
	waitStage(t, s, StageCompleted)
	if n := len(fake.ExecCalls()); n != 1 {
		t.Errorf("exec called %d times, want 1", n)
	}
}

func TestStartCompressionBeforeEngineReady(t *testing.T) {
	fake := enginetest.New()
	fake.LoadGate = make(chan struct{})
	s := newTestSession(t, fake)

	if err := s.SubmitFile(clip(64)); err != nil {
		t.Fatalf("SubmitFile: %v", err)
	}
	if err := s.StartCompression(); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("StartCompression = %v, want ErrEngineNotReady", err)
	}
	if s.Stage() != StageQualitySelection {
		t.Fatalf("stage = %s, want quality_selection", s.Stage())
	}

	close(fake.LoadGate)
	waitFor(t, s, "engine ready", func(v View) bool { return v.EngineReady })
	if err := s.StartCompression(); err != nil {
		t.Fatalf("StartCompression after load: %v", err)
	}
}

func TestSubmitFileRejectedInQualitySelection(t *testing.T) {
	fake := enginetest.New()
	s := newTestSession(t, fake)
	submitReady(t, s, clip(64))

	err := s.SubmitFile(InputFile{Name: "other.mp4", Data: []byte("x")})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second SubmitFile = %v, want ErrInvalidTransition", err)
	}

	v := s.Snapshot()
	if v.FileName != "clip.mp4" || !v.EngineReady || v.Stage != StageQualitySelection {
		t.Errorf("state changed by rejected submit: %+v", v)
	}
	if fake.LoadCalls() != 1 || fake.Terminated() {
		t.Error("rejected submit must not touch the engine")
	}
}

func TestSubmitEmptyFile(t *testing.T) {
	s := newTestSession(t, enginetest.New())
	if err := s.SubmitFile(InputFile{Name: "empty.mp4"}); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("SubmitFile(empty) = %v, want ErrEmptyInput", err)
	}
	if s.Stage() != StageIdle {
		t.Error("empty submit changed stage")
	}
}

func TestSelectQuality(t *testing.T) {
	s := newTestSession(t, enginetest.New())

	if err := s.SelectQuality(QualityLow); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("SelectQuality in Idle = %v, want ErrInvalidTransition", err)
	}

	submitReady(t, s, clip(64))
	if got := s.Snapshot().Quality; got != DefaultQuality {
		t.Errorf("initial quality = %s, want %s", got, DefaultQuality)
	}
	if err := s.SelectQuality(QualityLow); err != nil {
		t.Fatalf("SelectQuality: %v", err)
	}
	if err := s.SelectQuality(Quality(7)); !errors.Is(err, ErrUnknownQuality) {
		t.Fatalf("SelectQuality(7) = %v, want ErrUnknownQuality", err)
	}
	if got := s.Snapshot().Quality; got != QualityLow {
		t.Errorf("quality = %s, want low", got)
	}
}

func TestEngineLoadFailure(t *testing.T) {
	fake := enginetest.New()
	fake.LoadErr = errors.New("ffmpeg not found")
	s := newTestSession(t, fake)

	if err := s.SubmitFile(clip(64)); err != nil {
		t.Fatalf("SubmitFile: %v", err)
	}

	v := waitStage(t, s, StageFailed)
	if v.FailureKind != FailureLoad {
		t.Errorf("failure kind = %q, want load", v.FailureKind)
	}
	if v.EngineReady {
		t.Error("engine should not be ready after a failed load")
	}
}

func TestProgressLastValueWins(t *testing.T) {
	fake := enginetest.New()
	fake.ExecGate = make(chan struct{})
	s := newTestSession(t, fake)
	submitReady(t, s, clip(64))

	s.OnEngineProgress(0.5) // not compressing yet
	if got := s.Snapshot().Progress; got != 0 {
		t.Fatalf("progress before compression = %v, want 0", got)
	}

	if err := s.StartCompression(); err != nil {
		t.Fatalf("StartCompression: %v", err)
	}

	s.OnEngineProgress(0.6)
	s.OnEngineProgress(0.25)
	s.OnEngineProgress(0.25)
	if got := s.Snapshot().Progress; got != 25 {
		t.Errorf("progress = %v, want 25", got)
	}

	s.OnEngineProgress(3)
	if got := s.Snapshot().Progress; got != 100 {
		t.Errorf("progress = %v, want clamped 100", got)
	}

	close(fake.ExecGate)
	waitStage(t, s, StageCompleted)
}

func TestOnEngineLogUpdatesLiveSize(t *testing.T) {
	fake := enginetest.New()
	fake.ExecGate = make(chan struct{})
	s := newTestSession(t, fake)
	submitReady(t, s, clip(64))
	if err := s.StartCompression(); err != nil {
		t.Fatalf("StartCompression: %v", err)
	}

	s.OnEngineLog("frame=10")
	s.OnEngineLog("total_size=1536")

	v := s.Snapshot()
	if v.OutputSize != 1536 || v.OutputDisplay != "1.5 KB" {
		t.Errorf("live size = %d (%q), want 1536 (1.5 KB)", v.OutputSize, v.OutputDisplay)
	}
	if v.PercentChange != nil {
		t.Error("percent change must not be shown before completion")
	}

	close(fake.ExecGate)
	waitStage(t, s, StageCompleted)
}

func TestOnEngineFailureAfterProgress(t *testing.T) {
	fake := enginetest.New()
	fake.ExecGate = make(chan struct{})
	s := newTestSession(t, fake)
	submitReady(t, s, clip(64))
	if err := s.StartCompression(); err != nil {
		t.Fatalf("StartCompression: %v", err)
	}

	s.OnEngineProgress(0.99)
	s.OnEngineFailure(errors.New("encoder crashed"))

	v := s.Snapshot()
	if v.Stage != StageFailed {
		t.Fatalf("stage = %s, want failed", v.Stage)
	}
	if _, ok := s.Output(); ok {
		t.Error("output must be unset after failure")
	}
	if v.Failure == "" || v.FailureKind != FailureExecution {
		t.Errorf("failure = %q (%s)", v.Failure, v.FailureKind)
	}
	if err := s.OnEngineSuccess([]byte("late")); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("OnEngineSuccess after failure = %v, want ErrInvalidTransition", err)
	}
}

func TestFatalLogMarkerFailsSession(t *testing.T) {
	fake := enginetest.New()
	fake.Script = []engine.Event{
		{Kind: engine.EventProgress, Progress: 0.4},
		{Kind: engine.EventLog, Message: "Aborted(OOM)"},
	}
	fake.ExecGate = make(chan struct{}) // never opened; the run is cancelled
	s := newTestSession(t, fake)
	submitReady(t, s, clip(64))

	if err := s.StartCompression(); err != nil {
		t.Fatalf("StartCompression: %v", err)
	}

	v := waitStage(t, s, StageFailed)
	if v.FailureKind != FailureLogMarker {
		t.Errorf("failure kind = %q, want log_marker", v.FailureKind)
	}

	// The cancelled run must not overwrite the failure.
	time.Sleep(20 * time.Millisecond)
	if got := s.Snapshot(); got.Stage != StageFailed || got.FailureKind != FailureLogMarker {
		t.Errorf("state after run ended = %+v", got)
	}
}

func TestNonZeroExitFailsSession(t *testing.T) {
	fake := enginetest.New()
	fake.ExecErr = &engine.ExecError{Err: errors.New("exit status 1"), ExitCode: 1}
	s := newTestSession(t, fake)
	submitReady(t, s, clip(64))

	if err := s.StartCompression(); err != nil {
		t.Fatalf("StartCompression: %v", err)
	}

	v := waitStage(t, s, StageFailed)
	if v.FailureKind != FailureExecution {
		t.Errorf("failure kind = %q, want execution", v.FailureKind)
	}
}

func TestDiscardReleasesBuffers(t *testing.T) {
	fake := enginetest.New()
	fake.Output = []byte("compressed")
	s := newTestSession(t, fake)
	submitReady(t, s, clip(64))

	if err := s.Discard(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Discard in QualitySelection = %v, want ErrInvalidTransition", err)
	}

	if err := s.StartCompression(); err != nil {
		t.Fatalf("StartCompression: %v", err)
	}
	waitStage(t, s, StageCompleted)
	revision := s.PlaybackRevision()

	if err := s.Discard(); err != nil {
		t.Fatalf("Discard: %v", err)
	}

	v := s.Snapshot()
	if v.Stage != StageIdle || v.FileName != "" || v.OutputSize != 0 {
		t.Errorf("view after discard = %+v", v)
	}
	if _, ok := s.Input(); ok {
		t.Error("input still held after discard")
	}
	if _, ok := s.Output(); ok {
		t.Error("output still held after discard")
	}
	if s.PlaybackRevision() == revision {
		t.Error("discard must revoke playback references")
	}
	if !fake.Terminated() {
		t.Error("discard must tear down the engine")
	}
}

func TestDiscardFromFailedAllowsNewSubmission(t *testing.T) {
	failing := enginetest.New()
	failing.LoadErr = errors.New("boom")
	healthy := enginetest.New()

	engines := []*enginetest.Fake{failing, healthy}
	s := New(Config{Engine: func() engine.Engine {
		next := engines[0]
		engines = engines[1:]
		return next
	}})
	defer s.Close()

	if err := s.SubmitFile(clip(64)); err != nil {
		t.Fatalf("SubmitFile: %v", err)
	}
	waitStage(t, s, StageFailed)

	if err := s.Discard(); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if s.Snapshot().Failure != "" {
		t.Error("failure not cleared by discard")
	}

	submitReady(t, s, clip(32))
	if !failing.Terminated() {
		t.Error("failed engine not terminated")
	}
	if healthy.LoadCalls() != 1 {
		t.Errorf("new engine loaded %d times, want 1", healthy.LoadCalls())
	}
}

func TestStaleEventsIgnoredAfterDiscard(t *testing.T) {
	fake := enginetest.New()
	fake.Output = []byte("x")
	s := newTestSession(t, fake)
	submitReady(t, s, clip(64))
	if err := s.StartCompression(); err != nil {
		t.Fatalf("StartCompression: %v", err)
	}
	waitStage(t, s, StageCompleted)

	s.mu.Lock()
	oldGen := s.generation
	s.mu.Unlock()

	if err := s.Discard(); err != nil {
		t.Fatalf("Discard: %v", err)
	}

	s.dispatch(oldGen, engine.Event{Kind: engine.EventLog, Message: "total_size=999"})
	s.failJob(oldGen, FailureExecution, errors.New("late"))

	if v := s.Snapshot(); v.Stage != StageIdle || v.OutputSize != 0 {
		t.Errorf("stale events changed the session: %+v", v)
	}
}

// stuckEngine never finishes terminating.
type stuckEngine struct {
	*enginetest.Fake
	block chan struct{}
}

func (e *stuckEngine) Terminate() error {
	<-e.block
	return nil
}

func TestCloseDuringCompression(t *testing.T) {
	fake := enginetest.New()
	fake.ExecGate = make(chan struct{})
	stuck := &stuckEngine{Fake: fake, block: make(chan struct{})}
	defer close(stuck.block)

	s := New(Config{
		Engine:           func() engine.Engine { return stuck },
		TerminateTimeout: 50 * time.Millisecond,
	})
	submitReady(t, s, clip(64))
	if err := s.StartCompression(); err != nil {
		t.Fatalf("StartCompression: %v", err)
	}

	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(waitTimeout):
		t.Fatal("Close blocked on an unresponsive engine")
	}

	if !s.Closed() {
		t.Error("Closed() = false after Close")
	}
	if _, ok := s.Input(); ok {
		t.Error("input still held after Close")
	}
	if err := s.SubmitFile(clip(8)); !errors.Is(err, ErrClosed) {
		t.Errorf("SubmitFile after Close = %v, want ErrClosed", err)
	}
	if err := s.Discard(); !errors.Is(err, ErrClosed) {
		t.Errorf("Discard after Close = %v, want ErrClosed", err)
	}

	s.Close()
}

func TestSubscribe(t *testing.T) {
	fake := enginetest.New()
	fake.Output = []byte("done")
	s := New(Config{Engine: fake.Factory()})

	updates, cancel := s.Subscribe()
	defer cancel()

	first := <-updates
	if first.Stage != StageIdle {
		t.Fatalf("first view stage = %s, want idle", first.Stage)
	}

	submitReady(t, s, clip(64))
	if err := s.StartCompression(); err != nil {
		t.Fatalf("StartCompression: %v", err)
	}
	waitStage(t, s, StageCompleted)

	// Updates are coalesced; the newest one must be the completed view.
	var last View
	deadline := time.After(waitTimeout)
	for last.Stage != StageCompleted {
		select {
		case v := <-updates:
			last = v
		case <-deadline:
			t.Fatalf("never received completed view, last %+v", last)
		}
	}

	s.Close()
	if _, open := <-updates; open {
		t.Error("subscription channel not closed by Close")
	}
	cancel() // safe after Close
}

func TestEncodeSlotsBoundConcurrentRuns(t *testing.T) {
	pool := workers.NewPool(1)

	first := enginetest.New()
	first.ExecGate = make(chan struct{})
	second := enginetest.New()
	second.Output = []byte("b")

	a := New(Config{Engine: first.Factory(), Slots: pool})
	b := New(Config{Engine: second.Factory(), Slots: pool})
	defer a.Close()
	defer b.Close()

	submitReady(t, a, clip(64))
	submitReady(t, b, clip(64))

	if err := a.StartCompression(); err != nil {
		t.Fatalf("a.StartCompression: %v", err)
	}
	deadline := time.Now().Add(waitTimeout)
	for len(first.ExecCalls()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first session never started its encode")
		}
		time.Sleep(2 * time.Millisecond)
	}

	if err := b.StartCompression(); err != nil {
		t.Fatalf("b.StartCompression: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if n := len(second.ExecCalls()); n != 0 {
		t.Fatalf("second encode started while the only slot was held")
	}
	if b.Stage() != StageCompressing {
		t.Fatalf("waiting session stage = %s, want compressing", b.Stage())
	}

	close(first.ExecGate)
	waitStage(t, a, StageCompleted)
	waitStage(t, b, StageCompleted)

	deadline = time.Now().Add(waitTimeout)
	for pool.InUse() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("slots in use after both runs = %d", pool.InUse())
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestCloseReleasesSlotWait(t *testing.T) {
	pool := workers.NewPool(1)
	if !pool.TryAcquire() {
		t.Fatal("TryAcquire failed")
	}
	defer pool.Release()

	fake := enginetest.New()
	s := New(Config{Engine: fake.Factory(), Slots: pool})
	submitReady(t, s, clip(64))
	if err := s.StartCompression(); err != nil {
		t.Fatalf("StartCompression: %v", err)
	}

	s.Close()
	time.Sleep(50 * time.Millisecond)

	if n := len(fake.ExecCalls()); n != 0 {
		t.Errorf("closed session ran %d encodes", n)
	}
	if pool.InUse() != 1 {
		t.Errorf("slots in use = %d, want only the test's own", pool.InUse())
	}
}
