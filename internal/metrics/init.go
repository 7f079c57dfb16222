package metrics

// Label values shared with the packages that record them.
var (
	Stages         = []string{"idle", "quality_selection", "compressing", "completed", "failed"}
	Qualities      = []string{"high", "medium", "low"}
	JobStatuses    = []string{"success", "failure", "abandoned"}
	FailureKinds   = []string{"load", "execution", "log_marker"}
	PreviewSources = []string{"original", "compressed"}
)

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, stage := range Stages {
		SessionsByStage.WithLabelValues(stage)
	}

	for _, q := range Qualities {
		for _, status := range JobStatuses {
			CompressionJobsTotal.WithLabelValues(status, q)
		}
		CompressionJobDuration.WithLabelValues(q)
		CompressionRatio.WithLabelValues(q)
	}

	for _, status := range []string{"success", "error"} {
		EngineLoadsTotal.WithLabelValues(status)
		for _, source := range PreviewSources {
			PreviewFramesTotal.WithLabelValues(source, status)
		}
	}

	for _, kind := range FailureKinds {
		EngineFailuresTotal.WithLabelValues(kind)
	}

	for _, op := range []string{"read", "write"} {
		for _, outcome := range []string{"attempt", "success", "failure"} {
			WorkspaceRetriesTotal.WithLabelValues(op, outcome)
		}
	}

	for _, reason := range []string{"no_file", "too_many_files", "unsupported_type", "too_large", "empty_file", "memory_pressure"} {
		UploadsRejectedTotal.WithLabelValues(reason)
	}
}
