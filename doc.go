// Package adminauth is the identity, session and authorization core of an
// administrative back office: password login with lockout, HS256 access and
// refresh tokens backed by revocable sessions, role and permission checks,
// request rate limiting and an asynchronous security audit trail.
//
// Engine methods are safe to call from multiple goroutines once
// [Builder.Build] has returned.
//
// # Architecture boundaries
//
// adminauth is the public surface. It exposes [Engine], [Builder], [Config] and
// value types (AccountInfo, LoginResult, MetricsSnapshot). Flow orchestration,
// rate-limit windows and audit dispatch live under internal/. The account,
// session, password, permission and jwt packages hold the domain types and
// store contracts a host implements or reuses.
//
// Caller identity travels in the context: [WithClientIP] and [WithUserAgent]
// tag audit events, [WithPrincipal] names the actor of administrative
// operations.
//
// # What this package must NOT do
//
//   - Return password hashes from any method.
//   - Let an audit sink failure fail the operation that raised the event.
//   - Import middleware or a store adapter (they import adminauth).
package adminauth
