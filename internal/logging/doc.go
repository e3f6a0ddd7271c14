// Package logging provides structured logging with per-module log level configuration.
//
// # Overview
//
// Records go through log/slog with automatic output routing:
//   - to the configured writer (stderr by default) when it leads somewhere
//   - to the systemd journal when journald is reachable
//   - to both when both are available
//
// Stdout is left alone so that child process output printed by the CLI
// stays machine readable.
//
// # Usage
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"process": "debug",
//		},
//	})
//
//	logger := logging.GetLogger("run").With("launcher", name)
//	logger.Info("Starting", "count", n)
//
// Loggers obtained before Initialize are updated in place.
//
// # Viewing Logs
//
//	journalctl -t procspawn
//	journalctl -t procspawn MODULE=process BINARY=ffmpeg
//
// # Configuration
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	process = "debug"
package logging
