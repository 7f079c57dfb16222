package streaming

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"video-compressor/internal/logging"
)

// Sentinel errors for streaming operations.
var (
	// ErrWriteTimeout indicates a chunk could not be written before its deadline
	// or the transfer exceeded MaxDuration.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone indicates the request context was cancelled mid-transfer.
	ErrClientGone = errors.New("client disconnected")

	// ErrStreamCanceled indicates the writer was closed before the write.
	ErrStreamCanceled = errors.New("stream canceled")
)

// TimeoutWriterConfig configures the timeout writer behavior
type TimeoutWriterConfig struct {
	// WriteTimeout bounds each chunk written to the client
	WriteTimeout time.Duration
	// MaxDuration is the absolute maximum transfer duration (0 = unlimited)
	MaxDuration time.Duration
	// ChunkSize splits large writes (0 = write as received)
	ChunkSize int
	// OnProgress is called after every mebibyte written
	OnProgress func(bytesWritten int64, duration time.Duration)
}

// DefaultTimeoutWriterConfig returns the configuration used for downloads.
func DefaultTimeoutWriterConfig() TimeoutWriterConfig {
	return TimeoutWriterConfig{
		WriteTimeout: 30 * time.Second,
		ChunkSize:    256 * 1024,
	}
}

// TimeoutWriter wraps an http.ResponseWriter with timeout protection
type TimeoutWriter struct {
	w      http.ResponseWriter
	rc     *http.ResponseController
	ctx    context.Context
	config TimeoutWriterConfig

	mu           sync.Mutex
	startTime    time.Time
	bytesWritten int64
	nextProgress int64
	closed       bool
	deadlines    bool
}

// NewTimeoutWriter creates a new timeout-protected writer
func NewTimeoutWriter(ctx context.Context, w http.ResponseWriter, config TimeoutWriterConfig) *TimeoutWriter {
	return &TimeoutWriter{
		w:            w,
		rc:           http.NewResponseController(w),
		ctx:          ctx,
		config:       config,
		startTime:    time.Now(),
		nextProgress: 1 << 20,
		deadlines:    config.WriteTimeout > 0,
	}
}

// Write implements io.Writer with timeout protection
func (tw *TimeoutWriter) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		chunk := p
		if tw.config.ChunkSize > 0 && len(chunk) > tw.config.ChunkSize {
			chunk = p[:tw.config.ChunkSize]
		}

		n, err := tw.writeChunk(chunk)
		written += n
		if err != nil {
			return written, err
		}
		p = p[len(chunk):]
	}
	return written, nil
}

func (tw *TimeoutWriter) writeChunk(p []byte) (int, error) {
	tw.mu.Lock()
	closed := tw.closed
	tw.mu.Unlock()
	if closed {
		return 0, ErrStreamCanceled
	}

	if err := tw.ctx.Err(); err != nil {
		return 0, ErrClientGone
	}
	if tw.config.MaxDuration > 0 && time.Since(tw.startTime) > tw.config.MaxDuration {
		return 0, ErrWriteTimeout
	}

	if tw.deadlines {
		if err := tw.rc.SetWriteDeadline(time.Now().Add(tw.config.WriteTimeout)); err != nil {
			// Not supported by this writer; carry on without deadlines.
			tw.deadlines = false
		}
	}

	n, err := tw.w.Write(p)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return n, ErrWriteTimeout
		}
		if tw.ctx.Err() != nil {
			return n, ErrClientGone
		}
		return n, err
	}

	if tw.deadlines {
		_ = tw.rc.Flush()
	}

	tw.mu.Lock()
	tw.bytesWritten += int64(n)
	total := tw.bytesWritten
	report := tw.config.OnProgress != nil && total >= tw.nextProgress
	for total >= tw.nextProgress {
		tw.nextProgress += 1 << 20
	}
	tw.mu.Unlock()

	if report {
		tw.config.OnProgress(total, time.Since(tw.startTime))
	}
	return n, nil
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// Close marks the writer as closed. Later writes fail with ErrStreamCanceled.
func (tw *TimeoutWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.closed {
		return nil
	}
	tw.closed = true
	if tw.deadlines {
		// Clear the deadline so later writes by the server are unaffected.
		_ = tw.rc.SetWriteDeadline(time.Time{})
	}
	return nil
}

// Stats returns streaming statistics
func (tw *TimeoutWriter) Stats() (bytesWritten int64, duration time.Duration) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.bytesWritten, time.Since(tw.startTime)
}

// StreamWithTimeout copies size bytes from r to the response with timeout
// protection. A negative size leaves Content-Length unset.
func StreamWithTimeout(ctx context.Context, w http.ResponseWriter, r io.Reader, size int64, config TimeoutWriterConfig) error {
	tw := NewTimeoutWriter(ctx, w, config)
	defer func() {
		if err := tw.Close(); err != nil {
			logging.Warn("Failed to close timeout writer: %v", err)
		}
	}()

	if size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")

	_, err := io.Copy(tw, r)

	bytesWritten, duration := tw.Stats()
	logging.Debug("Stream completed: %d bytes in %v", bytesWritten, duration)

	return err
}
