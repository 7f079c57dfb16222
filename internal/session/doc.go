// Package session tracks the compression sessions of connected visitors.
//
// Each visitor is identified by a random UUID (carried in a cookie by the
// HTTP layer) that maps to one [compressor.Session]. A session that has not
// been touched for the configured TTL is treated like a closed browser tab:
// the reaper closes it, which abandons any running compression and releases
// its buffers and engine workspace.
//
// The registry also implements [metrics.StatsProvider] so the metrics
// collector can export session counts by stage.
package session
