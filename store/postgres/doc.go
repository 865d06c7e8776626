// Package postgres implements the adminauth stores on PostgreSQL through
// database/sql and the pgx stdlib driver.
//
//   - [AccountStore]: account.Store and account.RoleStore. Save is a
//     compare-and-swap on the version column.
//   - [SessionStore]: session.Store keyed by the SHA-256 of the refresh token.
//   - [AuditStore]: an audit sink with list, failure-count and purge queries.
//
// The schema ships embedded; [Migrate] applies it with golang-migrate.
//
// # What this package must NOT do
//
//   - Decide lifecycle transitions. Callers hand in the next account state.
//   - Store raw refresh tokens or plaintext passwords.
package postgres
