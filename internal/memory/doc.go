// Package memory keeps the compressor inside its memory budget.
//
// Uploaded videos and their compressed results are held in memory for the
// life of a session, and every compression runs an ffmpeg process beside
// the server. Two things are therefore watched: the Go heap against
// GOMEMLIMIT, and the memory the host still has available for encoders.
//
// # Configuration
//
// Call [ConfigureFromEnv] early in main, before significant allocations:
//
//   - GOMEMLIMIT: standard Go variable, takes precedence when set.
//   - MEMORY_LIMIT: container limit in bytes, usually from the Downward API.
//   - MEMORY_RATIO: share of MEMORY_LIMIT given to the heap (default 0.6).
//
// Example Kubernetes wiring:
//
//	env:
//	- name: MEMORY_LIMIT
//	  valueFrom:
//	    resourceFieldRef:
//	      resource: limits.memory
//
// # Monitoring
//
// [Monitor] samples both signals on an interval. When the heap crosses the
// critical watermark, or host available memory drops below
// Config.HostMinAvailableBytes, the monitor enters the paused state and the
// upload handler refuses new files with 503 until usage falls back under
// the high watermark.
//
//	monitor := memory.NewMonitor(memory.DefaultConfig())
//	monitor.Start()
//	defer monitor.Stop()
//
//	if monitor.IsPaused() {
//	    // refuse work
//	}
package memory
