// Package convert turns business errors into protocol responses and
// arbitrary failures into business errors.
//
// ToHTTP and ToGRPCStatus render a *errors.BusinessError for the request
// protocol and the RPC protocol. KindFromGRPCCode and FromGRPCError map RPC
// statuses received by clients back into the taxonomy. Classify reduces any
// error to a BusinessError through an ordered list of rules.
package convert
