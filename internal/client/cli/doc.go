// Package cli implements the interactive mockpay client: a small REPL that
// registers and logs in users, rotates tokens, and submits charges and
// refunds over gRPC.
package cli
