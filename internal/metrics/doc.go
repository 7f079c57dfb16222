// Package metrics provides Prometheus instrumentation for the video
// compressor.
//
// All metrics are prefixed with "video_compressor_" and registered on the
// default registry through promauto, so importing the package is enough to
// expose them on the metrics server.
//
// # Metric Categories
//
// ## HTTP Metrics
//   - HTTPRequestsTotal: Counter of requests by method, path, and status
//   - HTTPRequestDuration: Histogram of request duration by method and path
//   - HTTPRequestsInFlight: Gauge of currently processing requests
//
// ## Compression Metrics
//   - CompressionJobsTotal: Counter of finished jobs by status and quality
//   - CompressionJobDuration: Histogram of job duration by quality
//   - CompressionJobsInProgress: Gauge of running jobs
//   - CompressionInputBytes / CompressionOutputBytes: size histograms
//   - CompressionRatio: Histogram of output size divided by input size
//   - EngineLoadsTotal / EngineLoadDuration: engine start-up outcomes
//   - EngineFailuresTotal: Counter of engine failures by kind
//
// ## Session Metrics
//   - ActiveSessions: Gauge of live sessions
//   - SessionsByStage: Gauge of sessions per controller stage
//   - SessionsCreatedTotal / SessionsExpiredTotal: lifecycle counters
//   - UploadsRejectedTotal: Counter of rejected uploads by reason
//
// ## Encode Slot Metrics
//   - EncodeSlotsTotal / EncodeSlotsInUse: global encoder concurrency
//   - EncodeSlotWaitDuration: time spent waiting for a slot
//
// ## Memory Metrics
//   - MemoryUsageRatio, MemoryPaused, MemoryGCPauses
//   - HostMemoryAvailableBytes: host memory left for encoder processes
//
// ## Preview Metrics
//   - PreviewFramesTotal / PreviewFrameDuration: still-frame extraction
//
// ## Workspace Metrics
//   - WorkspaceRetriesTotal: workspace reads and writes retried after
//     transient errors (attempt, success, failure)
//
// # Collector
//
// Collector periodically copies session statistics from a StatsProvider into
// the session gauges.
package metrics
