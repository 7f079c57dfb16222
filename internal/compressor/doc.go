// Package compressor implements the per-visitor compression session.
//
// A Session owns one input video, one engine instance and, once finished,
// one compressed output. It moves through a fixed set of stages:
//
//	Idle -> QualitySelection -> Compressing -> Completed | Failed
//
// Discard returns a finished session (Completed or Failed) to Idle and
// releases every buffer it held. Close tears the session down from any
// stage.
//
// Engine work runs on background goroutines owned by the session. Results
// come back through the same transition methods a caller would use
// (OnEngineProgress, OnEngineLog, OnEngineSuccess, OnEngineFailure), so all
// stage rules are enforced in one place. Each background task is tagged
// with the session generation it started under; once Discard or Close bumps
// the generation, late results from that task are dropped.
//
// Engine diagnostics are scraped through a LogInspector. The default
// inspector recognises the running "total_size=" counter written by
// ffmpeg's -progress output and a small set of fatal markers. A non-zero
// engine exit fails the session as well, so the log text is not the only
// failure signal.
package compressor
