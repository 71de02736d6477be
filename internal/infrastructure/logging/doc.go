// Package logging provides structured logging for Gray Logic Link.
//
// It wraps log/slog with JSON or text output, level filtering and default
// service/version attributes on every record:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Component("link").Info("links activated", "bound", 12)
//
// Never log secrets such as the MQTT password or InfluxDB token.
package logging
