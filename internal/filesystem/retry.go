// Package filesystem provides workspace file operations with retry logic
// for transient errors on network-backed storage.
package filesystem

import (
	"context"
	"errors"
	"os"
	"syscall"
	"time"

	"video-compressor/internal/logging"
	"video-compressor/internal/metrics"
)

// RetryConfig configures retry behavior for filesystem operations
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns sensible defaults for NFS retry behavior
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

// IsTransient reports whether err is worth retrying: a stale NFS file
// handle (ESTALE) or an interrupted system call.
func IsTransient(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ESTALE || errno == syscall.EINTR
	}
	return false
}

// WriteFileWithRetry writes data to path, retrying transient errors.
func WriteFileWithRetry(ctx context.Context, path string, data []byte, perm os.FileMode, config RetryConfig) error {
	return retry(ctx, "write", path, config, func() error {
		return os.WriteFile(path, data, perm)
	})
}

// ReadFileWithRetry reads path, retrying transient errors.
func ReadFileWithRetry(ctx context.Context, path string, config RetryConfig) ([]byte, error) {
	var data []byte
	err := retry(ctx, "read", path, config, func() error {
		var err error
		data, err = os.ReadFile(path)
		return err
	})
	return data, err
}

func retry(ctx context.Context, op, path string, config RetryConfig, fn func() error) error {
	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 0 {
				logging.Info("Workspace %s succeeded on retry %d for %s", op, attempt, path)
				metrics.WorkspaceRetriesTotal.WithLabelValues(op, "success").Inc()
			}
			return nil
		}

		lastErr = err
		if !IsTransient(err) {
			return err
		}

		// Don't sleep after the last attempt
		if attempt < config.MaxRetries {
			metrics.WorkspaceRetriesTotal.WithLabelValues(op, "attempt").Inc()
			logging.Debug("Workspace %s failed for %s, retrying in %v (attempt %d/%d): %v",
				op, path, backoff, attempt+1, config.MaxRetries, err)

			timer := time.NewTimer(backoff)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}

			// Exponential backoff with cap
			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}
	}

	logging.Warn("Workspace %s failed after %d retries for %s: %v", op, config.MaxRetries, path, lastErr)
	metrics.WorkspaceRetriesTotal.WithLabelValues(op, "failure").Inc()
	return lastErr
}
