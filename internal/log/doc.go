// Package log provides the application's logging setup, built on top of the
// standard slog package.
//
// This package extends slog to provide:
//   - Fan-out of one log record to multiple handlers (console and file)
//   - Configurable log levels with verbose mode support
//   - Consistent log formatting across the application
//
// # Usage
//
//	// Console-only logger
//	logger := log.NewLogger(os.Stderr, true) // verbose=true
//
//	// Console plus persistent JSON log file
//	logger, closer, err := log.NewLoggerWithFile(os.Stderr, "waybackcrawl.log", false)
//	if err != nil { ... }
//	defer closer.Close()
//
//	// Set as default logger
//	slog.SetDefault(logger)
package log
