// Package session stores refresh-token sessions and their compact binary
// encoding.
//
// # Binary encoding
//
// [RedisStore] keeps each [Session] as a versioned binary blob (see
// [Encode]). Only the SHA-256 of the refresh token is ever stored.
//
// # Architecture boundaries
//
// This package owns the [Store] contract, the in-memory and Redis
// implementations, and the [Session] model. It does NOT interpret JWT tokens,
// evaluate permissions, or decide whether a refresh may proceed; those
// responsibilities belong to the engine.
//
// # What this package must NOT do
//
//   - Import adminauth, jwt, or permission (no upward imports).
//   - Store raw refresh tokens.
//   - Deactivate sessions on its own initiative.
package session
