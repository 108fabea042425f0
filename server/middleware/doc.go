// Package middleware provides the gin middleware that put failures through
// a handler chain: Errors, Recovery, RateLimit and Auth all render with the
// same chain so every failing request gets one payload and one log record.
// RequestID, RequestLogger and BodySizeLimit are the supporting stack.
package middleware
