// Package logging provides structured logging for the valve bridge.
//
// This package wraps Go's standard log/slog package so every component logs
// with the same format and default fields (service, version).
//
// Configuration:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	deviceLog := logger.With("component", "device")
//	deviceLog.Info("controller connected", "remote", addr)
//
// Never log secrets, tokens, or passwords.
package logging
