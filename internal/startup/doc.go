// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig]:
//
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - WORK_DIR: Parent directory for per-session engine workspaces (default: /tmp/video-compressor)
//   - FFMPEG_PATH: Encoder binary, resolved through PATH (default: ffmpeg)
//   - STATIC_DIR: Web UI directory (default: ./static)
//   - MAX_UPLOAD_SIZE: Largest accepted upload, bytes or with a K/M/G suffix (default: 2GiB)
//   - SESSION_TTL: Idle time before a session is closed (default: 1h)
//   - MAX_SESSIONS: Concurrent session limit (default: 16)
//   - ENCODE_THREADS: Threads passed to each encode (default: 4)
//   - COMPRESS_WORKERS: Concurrent encodes across all sessions (default: GOMAXPROCS)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_STATIC_FILES: Log static file requests (default: false)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//   - MEMORY_LIMIT: Container memory limit for automatic GOMEMLIMIT configuration
//   - MEMORY_RATIO: Share of MEMORY_LIMIT for the Go heap (default: 0.6)
//   - GOMEMLIMIT: Direct override for Go's memory limit
//
// Invalid values are logged and replaced by their defaults. The work
// directory is created when missing and must be writable.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle Logging
//
//   - [LogMemoryConfig]: Memory limit configuration
//   - [LogEngineInit]: FFmpeg availability
//   - [LogSessionInit]: Session registry limits
//   - [LogHTTPRoutes]: Registered HTTP routes (debug level)
//   - [LogServerStarted]: Server endpoints and startup duration
//   - [LogShutdownInitiated], [LogShutdownStep], [LogShutdownComplete]
package startup
