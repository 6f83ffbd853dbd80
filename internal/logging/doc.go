// Package logging provides structured logging with per-module log level
// configuration.
//
// The logging system uses Go's slog package with automatic output routing:
//   - stdout (text or JSON) when connected to a terminal, pipe, or file
//   - systemd journal when journald is available
//   - an in-memory ring buffer that backs the API's log endpoint
//
// Initialize once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"supervisor": "debug",
//		},
//	})
//
// Then obtain module loggers anywhere:
//
//	logger := logging.GetLogger("supervisor").With("channel", name)
//	logger.Info("Channel started")
//
// Module-specific levels override the global level for that module only.
package logging
