// Package handlers provides the HTTP API of the video compressor.
//
// Every visitor owns one compression session, identified by a cookie. The
// handlers cover:
//   - Session lifecycle (create, snapshot, delete)
//   - Upload, quality selection, compression and discard
//   - A websocket stream of session snapshots for live progress
//   - Range-capable playback of the original and compressed videos
//   - Still-frame previews for side-by-side comparison
//   - The compressed download
//   - Health, readiness, version and metrics endpoints
//
// Errors are returned as JSON. Stage violations map to 409, rejected
// uploads to 400/413/415 and memory pressure to 503.
package handlers
