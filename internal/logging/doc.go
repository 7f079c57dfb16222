// Package logging provides a small leveled logger for the video
// compressor.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information, including raw engine output
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable;
// DEBUG=true forces debug output regardless of LOG_LEVEL.
//
// Session-scoped lines go through a Scoped logger so that controller and
// engine output for one upload can be grepped by its session prefix:
//
//	log := logging.Scoped("session", id[:8])
//	log.Info("compression started (quality=%s)", q)
package logging
