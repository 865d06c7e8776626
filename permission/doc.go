// Package permission decides whether a principal may perform an action, and
// holds the catalogue of known permissions and role definitions.
//
// # Evaluation
//
// A [Principal] carries immutable role and permission name sets resolved
// once per token. [Evaluator.Allowed] grants a [Requirement] when the
// principal holds RESOURCE_ACTION, or the generic ACTION, or when the
// principal reads or writes its own user record.
//
// # Architecture boundaries
//
// This package is a pure in-memory data structure with no I/O. Seeding the
// catalogue into a store is done by the engine.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Import adminauth, jwt, or session.
//   - Emit audit events; denials are audited by the caller.
package permission
