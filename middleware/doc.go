// Package middleware adapts adminauth.Engine to net/http.
//
// # Chain
//
//   - [Gate.Handler] runs first: client IP, bearer authentication, rate limit.
//   - [RequireAuth] rejects guests with 401.
//   - [Gate.RequirePermission] and [RequireRole] reject with 403.
//
// Rejections are JSON envelopes ({"status":"ERROR","message":...}).
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. Token checks,
// rate windows and permission decisions all stay in the Engine.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly.
//   - Access Redis or any store.
//   - Fail a request because a bearer token is invalid; that is RequireAuth's call.
package middleware
