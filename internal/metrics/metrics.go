package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_compressor_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "video_compressor_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_compressor_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Compression metrics
var (
	CompressionJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_compressor_jobs_total",
			Help: "Total number of finished compression jobs",
		},
		[]string{"status", "quality"}, // status: "success", "failure", "abandoned"
	)

	CompressionJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "video_compressor_job_duration_seconds",
			Help:    "Compression job duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"quality"},
	)

	CompressionJobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_compressor_jobs_in_progress",
			Help: "Number of compression jobs currently running",
		},
	)

	CompressionInputBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "video_compressor_input_bytes",
			Help:    "Size of submitted videos in bytes",
			Buckets: prometheus.ExponentialBuckets(1<<20, 4, 8), // 1 MiB .. 16 GiB
		},
	)

	CompressionOutputBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "video_compressor_output_bytes",
			Help:    "Size of compressed videos in bytes",
			Buckets: prometheus.ExponentialBuckets(1<<20, 4, 8),
		},
	)

	CompressionRatio = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "video_compressor_ratio",
			Help:    "Compressed size divided by original size",
			Buckets: []float64{0.05, 0.1, 0.2, 0.3, 0.5, 0.75, 1, 1.5, 2},
		},
		[]string{"quality"},
	)

	EngineLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_compressor_engine_loads_total",
			Help: "Total number of engine loads",
		},
		[]string{"status"},
	)

	EngineLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "video_compressor_engine_load_duration_seconds",
			Help:    "Engine load duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	EngineFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_compressor_engine_failures_total",
			Help: "Total number of engine failures",
		},
		[]string{"kind"}, // "load", "execution", "log_marker"
	)
)

// Session metrics
var (
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_compressor_active_sessions",
			Help: "Number of live compression sessions",
		},
	)

	SessionsByStage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "video_compressor_sessions_by_stage",
			Help: "Number of sessions in each controller stage",
		},
		[]string{"stage"},
	)

	SessionsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_compressor_sessions_created_total",
			Help: "Total number of sessions created",
		},
	)

	SessionsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_compressor_sessions_expired_total",
			Help: "Total number of sessions closed after being idle",
		},
	)

	UploadsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_compressor_uploads_rejected_total",
			Help: "Total number of rejected uploads",
		},
		[]string{"reason"},
	)
)

// Encode slot metrics
var (
	EncodeSlotsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_compressor_encode_slots",
			Help: "Number of encodes allowed to run concurrently",
		},
	)

	EncodeSlotsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_compressor_encode_slots_in_use",
			Help: "Number of encode slots currently held",
		},
	)

	EncodeSlotWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "video_compressor_encode_slot_wait_seconds",
			Help:    "Time spent waiting for an encode slot",
			Buckets: []float64{0.001, 0.01, 0.1, 1, 5, 30, 120, 600},
		},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_compressor_memory_usage_ratio",
			Help: "Go heap usage as a fraction of the memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_compressor_memory_paused",
			Help: "Whether new uploads are refused due to memory pressure (1 = refusing)",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_compressor_memory_gc_pauses_total",
			Help: "Total number of times memory pressure triggered a pause and GC",
		},
	)

	HostMemoryAvailableBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_compressor_host_memory_available_bytes",
			Help: "Host memory available for encoder processes",
		},
	)
)

// Preview metrics
var (
	PreviewFramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_compressor_preview_frames_total",
			Help: "Total number of preview frames extracted",
		},
		[]string{"source", "status"},
	)

	PreviewFrameDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "video_compressor_preview_frame_duration_seconds",
			Help:    "Preview frame extraction duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)
)

// Workspace I/O metrics
var (
	WorkspaceRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_compressor_workspace_retries_total",
			Help: "Workspace file operations retried after transient errors, by outcome",
		},
		[]string{"operation", "outcome"},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "video_compressor_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
