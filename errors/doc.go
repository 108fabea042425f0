// Package errors provides the closed business error taxonomy shared by the
// HTTP and gRPC surfaces of a service.
//
// Every failure that leaves a service is expressed as a Kind. The catalog
// assigns each Kind a stable public numeric code, a default message, an HTTP
// status and a gRPC status code. BusinessError carries a Kind through the
// call stack; ErrorPayload is the body clients receive.
package errors
