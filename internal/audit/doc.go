// Package audit implements fire-and-forget delivery of security events.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, slog, no-op, Postgres).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: immutable record with ULID, kind, account, client and detail.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit; that responsibility belongs to the engine and flow functions.
//
// # What this package must NOT do
//
//   - Return sink failures to the code path that raised the event.
//   - Filter or suppress events based on business logic.
//   - Import adminauth or any sibling internal package other than ids.
package audit
