package compressor

import (
	"context"
	"fmt"

	"video-compressor/internal/engine"
)

type compressJob struct {
	gen     uint64
	eng     engine.Engine
	input   InputFile
	quality Quality
}

// run drives one compression on the session's engine and reports back
// through the transition methods, tagged with the job's generation.
func (s *Session) run(ctx context.Context, job compressJob) {
	if s.cfg.Slots != nil {
		if err := s.cfg.Slots.Acquire(ctx); err != nil {
			s.failJob(job.gen, FailureExecution, fmt.Errorf("waiting for encode slot: %w", err))
			return
		}
		defer s.cfg.Slots.Release()
	}

	inName := inputFileName(job.input.Name)
	if err := job.eng.WriteFile(ctx, inName, job.input.Data); err != nil {
		s.failJob(job.gen, FailureExecution, fmt.Errorf("staging input: %w", err))
		return
	}

	args := CompressArgs(inName, OutputFileName, job.quality, s.cfg.Threads)
	if err := s.exec(ctx, job, args); err != nil {
		s.failJob(job.gen, FailureExecution, err)
		return
	}

	if !s.stillRunning(job.gen) {
		return
	}

	out, err := job.eng.ReadFile(ctx, OutputFileName)
	if err != nil {
		s.failJob(job.gen, FailureExecution, fmt.Errorf("reading output: %w", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if job.gen != s.generation {
		return
	}
	if err := s.succeedLocked(out); err != nil {
		s.log.Debug("Dropping engine output: %v", err)
	}
}

// exec runs the engine and feeds its events to the session until the run
// ends. Events still buffered when Exec returns are delivered before the
// result so the final size and progress are never lost.
func (s *Session) exec(ctx context.Context, job compressJob, args []string) error {
	events := job.eng.Events()
	done := make(chan error, 1)
	go func() {
		done <- job.eng.Exec(ctx, args)
	}()

	for {
		select {
		case ev := <-events:
			s.dispatch(job.gen, ev)
		case err := <-done:
			for {
				select {
				case ev := <-events:
					s.dispatch(job.gen, ev)
				default:
					return err
				}
			}
		}
	}
}

func (s *Session) dispatch(gen uint64, ev engine.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return
	}
	switch ev.Kind {
	case engine.EventProgress:
		s.progressLocked(ev.Progress)
	case engine.EventLog:
		s.logLocked(ev.Message)
	}
}

func (s *Session) stillRunning(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.generation && s.stage == StageCompressing
}

func (s *Session) failJob(gen uint64, kind FailureKind, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return
	}
	s.failLocked(kind, err)
}
