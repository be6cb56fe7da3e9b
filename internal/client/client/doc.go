// Package client talks to the mockpay gRPC endpoint.
//
// GRPCClient keeps the session's access and refresh tokens, attaches the
// access token to payment calls through a unary interceptor, and when the
// server answers Unauthenticated it refreshes the pair once and retries the
// call. gRPC status codes are mapped onto the sentinel errors in errors.go
// so callers can match them with errors.Is.
package client
