// Package resilience provides transport-agnostic wrappers that protect
// operations: token bucket rate limiting, retry with exponential backoff and
// bulkhead concurrency limiting.
//
// The wrappers are plain functions over closures, so the same limiter or
// policy can guard an HTTP handler, a gRPC method or a storage call:
//
//	limiters := resilience.DefaultLimiters()
//	err := resilience.Limit(limiters.For(resilience.CategoryBatch), func() error {
//	    return importRows(ctx, rows)
//	})
//
//	user, err := resilience.Retry(ctx, resilience.StoragePolicy(), func() (*User, error) {
//	    return repo.Find(ctx, id)
//	})
//
// Failures raised here are recognised by Classify, which maps them to the
// RATE_LIMIT_EXCEEDED, BULKHEAD_FULL, EXTERNAL_SERVICE_TIMEOUT and
// EXTERNAL_SERVICE_ERROR kinds.
package resilience
