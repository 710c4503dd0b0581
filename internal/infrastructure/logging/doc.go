// Package logging provides structured logging for the IR bridge.
//
// It wraps Go's log/slog so every component logs with the same shape:
// JSON in production, text during development, and the default fields
// service and version on every entry.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, file
//	  file:
//	    path: "./logs/graylogic-ir.log"
//	    max_size: 10     # megabytes before rotation
//	    max_backups: 3
//	    max_age: 28      # days
//	    compress: false
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("command learned", "name", "tv_power", "samples", 67)
//
// Never log MQTT passwords, Wi-Fi secrets or bearer tokens.
package logging
