/*
Package filesystem provides workspace file operations that retry transient
errors.

Engine workspaces live under WORK_DIR, which in container deployments is
often a network mount. Reads and writes there can fail with ESTALE (stale
NFS file handle) or EINTR while the underlying file is perfectly usable a
moment later.

# Usage

	data, err := filesystem.ReadFileWithRetry(ctx, path, filesystem.DefaultRetryConfig())

Only transient errors are retried, with exponential backoff capped at
MaxBackoff. Any other error, such as a missing file, is returned at once.
The backoff wait ends early when ctx is done.

# Metrics

Retries are counted in video_compressor_workspace_retries_total by
operation (read, write) and outcome (attempt, success, failure).
*/
package filesystem
