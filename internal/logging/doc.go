// Package logging provides structured logging with per-module log level configuration.
//
// # Overview
//
// The logging system uses Go's slog package. Every module logger filters by
// its own level and forwards to one shared output chain:
//   - stderr, or a log file when one is configured (stdout belongs to the
//     shell and its jobs)
//   - the systemd journal when journald is reachable
//   - an in-memory ring buffer served by the debug API
//
// # Usage
//
// Initialize the logging system once at startup:
//
//	closeLog, err := logging.Initialize(logging.Config{
//		Level:  "warn",      // Global log level: debug, info, warn, error
//		Format: "text",      // Output format: text or json
//		File:   "",          // Empty logs to stderr
//		Modules: map[string]string{
//			"reaper": "debug",   // Per-module overrides
//		},
//	})
//
// Get a logger for your module:
//
//	logger := logging.GetLogger("jobs")
//	logger.Info("Job started", "pid", pid)
//
// Loggers obtained before Initialize are the same objects afterwards and
// follow the configured outputs and levels. SetLevels changes levels at
// runtime without reopening outputs.
//
// # Log Levels
//
//	debug - Verbose debugging information
//	info  - Job lifecycle messages
//	warn  - Warning conditions (default)
//	error - Error conditions
//
// # Viewing Logs
//
// On a system with journald:
//
//	journalctl -t jobsh                 # All shell logs
//	journalctl -t jobsh MODULE=reaper   # One module
//	journalctl -t jobsh PID=4242        # One job
package logging
