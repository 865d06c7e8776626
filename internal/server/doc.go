// Package server is the HTTP host for the adminauth engine: configuration
// from an optional TOML file and the environment, storage wiring and the chi
// router.
//
// Routes live under /api/v1. Every API route passes through
// middleware.Gate; /health and /metrics do not.
//
// # Architecture boundaries
//
// Handlers decode JSON, call one Engine method and map its sentinel errors
// to status codes. Authentication, authorization, lockout and audit all
// happen inside the engine.
//
// # What this package must NOT do
//
//   - Inspect password hashes or tokens.
//   - Write audit events directly.
package server
