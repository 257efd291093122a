// Package logging provides structured logging for panel.sh.
//
// It wraps log/slog with the conventions the rest of the service relies on:
// JSON output for production, text for development, service and version
// fields on every record, and a runtime debug toggle.
//
// # Configuration
//
// The base level, format and output come from config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// On top of that, the debug_logging device setting can switch the running
// process to debug output without a restart via Logger.SetDebug; clearing
// it restores the configured level.
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	apiLog := logger.With("component", "api")
//	apiLog.Info("listening", "port", 8080)
//
// Never log secrets: tokens, passwords, session cookies.
package logging
