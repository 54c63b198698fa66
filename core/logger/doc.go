// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports different environments (development vs production)
// and integrates with the Fiber web framework used by the collection API.
//
// # Correlation
//
// Two correlation ids are supported:
//   - run_id: attached by WithRunID at the start of every CLI command, so all lines of
//     one sync, diff, check or export run can be grouped.
//   - ray_id: attached by WithRayID from the Fiber context for HTTP requests.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Encoding: json (production) or console (development)
//   - Output: optional JSON log file next to stderr; "{time}" gives one file per run
//   - FileLevel: minimum level written to Output (debug by default)
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info"})
//	log, runID := logger.WithRunID(log)
//	log.Info("Starting sync", zap.String("run", runID))
package logger
