// Package logger provides structured logging on top of zerolog.
//
// Fields are passed as maps so call sites stay independent of zerolog:
//
//	log := logger.New(&cfg, "faultdemo").WithComponent("handler")
//	log.Warn("request failed", logger.Fields("code", 40401, "path", "/games/7"))
//
// Values that implement Loggable decide for themselves which fields are
// logged; FieldsOf extracts them from an error chain.
package logger
