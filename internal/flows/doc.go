// Package flows contains the orchestration behind every Engine operation.
//
// Each Run* function (RunLogin, RunRefresh, RunLogout, RunCreateAccount, ...)
// takes a typed dependency struct and reports everything it observes through
// Hooks: audit events, metric increments and warnings. The Engine wires the
// stores, token manager and password hasher into those structs once at Build
// time and keeps its own methods thin.
//
// # Architecture boundaries
//
// Flows coordinate the account store, session store, token issuance and
// password hashing. They do NOT own any of these resources; ownership stays
// with the Engine. Account writes always go through account.Mutate so that
// concurrent writers retry on version conflicts instead of overwriting each
// other.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import the root adminauth package (to avoid import cycles).
//   - Decide HTTP status codes or response shapes.
package flows
