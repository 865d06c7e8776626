// Package password owns credential hashing and the password strength policy.
//
// # Hash formats
//
// New hashes are argon2id PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<key>
//
// bcrypt hashes ($2a$, $2b$, $2y$) imported from the previous account table are
// still verified through [Multi]; [Multi.NeedsUpgrade] reports them so the caller can
// re-hash on the next successful login.
//
// # Policy
//
// [Policy.Validate] applies the hard rules (presence, length, denylist, character
// classes) and the soft score. It returns a [Result] and never an error.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Log plaintext passwords.
//   - Import any other adminauth package.
package password
