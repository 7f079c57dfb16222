// Package main provides the entry point for the video compressor server.
//
// The server accepts one video per visitor session, compresses it with
// ffmpeg at a chosen quality, and serves the original and compressed
// files side by side for comparison before download. All encoding is
// delegated to ffmpeg; the server only manages session state.
//
// # Application Lifecycle
//
//  1. Memory Configuration: Sets GOMEMLIMIT from environment or container limits
//  2. Configuration Loading: Reads environment variables and prepares the work directory
//  3. Engine Probe: Checks that the ffmpeg binary runs
//  4. Component Initialization:
//     - Encode slots: bound concurrent ffmpeg processes across sessions
//     - Session Registry: one controller per visitor, reaped after SESSION_TTL idle
//     - Memory Monitor: refuses uploads under memory pressure
//     - Metrics Collector: session gauges for Prometheus
//  5. HTTP Server Setup: routes, middleware, static UI
//  6. Graceful Shutdown: SIGINT/SIGTERM closes sessions and terminates running encodes
//
// # HTTP Server
//
// The application runs two HTTP servers:
//
//  1. Main Server (default port 8080):
//     - Session API under /api/session (upload, quality, compress, discard)
//     - Playback with range support, JPEG previews, download
//     - Websocket progress stream at /api/session/events
//     - Static web UI
//
//  2. Metrics Server (default port 9090, optional):
//     - Prometheus metrics endpoint (/metrics)
//     - Health check endpoint (/health)
//
// # Environment Variables
//
// See [video-compressor/internal/startup] for the full list.
//
// # Related Packages
//
//   - [video-compressor/internal/compressor]: Session state machine
//   - [video-compressor/internal/engine]: ffmpeg engine
//   - [video-compressor/internal/handlers]: HTTP request handlers
//   - [video-compressor/internal/session]: Session registry
//   - [video-compressor/internal/middleware]: HTTP middleware (logging, metrics, gzip)
//   - [video-compressor/internal/startup]: Configuration and initialization
package main
