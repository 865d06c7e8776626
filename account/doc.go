// Package account holds the operator identity model and its lifecycle state machine.
//
// # Architecture boundaries
//
// Lifecycle transitions are pure functions over [Account] values. Persistence goes
// through [Store], whose Save performs an optimistic version check; [Mutate] wraps a
// transition in the load/apply/save retry loop.
//
// # What this package must NOT do
//
//   - Mutate an account inside a read-only accessor (see [StateOf] vs [CheckUnlock]).
//   - Know about tokens, sessions, or audit.
package account
