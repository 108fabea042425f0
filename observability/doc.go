// Package observability wires OpenTelemetry metrics and traces for fault
// handling.
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, &cfg)
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("faultdemo"))
//	metrics.RecordFault(ctx, "ENTITY_NOT_FOUND", 40401, "http", "business")
//
// Traces: handler chains call RecordFault so that every failure reported to
// a client is also attached to the active span.
package observability
