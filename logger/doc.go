// Package logger provides structured logging for spacs using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("httpclient")
//	log.Debug("Request completed", logger.Fields("status", 200))
//
// Components look their logger up by name, so an application can route the
// client's output elsewhere with logger.Register("httpclient", custom).
package logger
