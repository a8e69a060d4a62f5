// Package identity implements registration, login, and session lifecycle
// for taskdeck on top of the storage engine.
//
// Credentials are bcrypt hashes; login failures never reveal whether the
// email or the password was wrong, and the no-account path burns a dummy
// compare so both paths cost the same.
//
// Sessions are opaque random tokens stored in the sessions collection with
// an absolute expiry. Expiry is evaluated lazily: the validation read that
// discovers an expired session deletes it. Nothing sweeps sessions in the
// background, so an expired session that is never read stays in storage
// until store.DeleteExpiredSessions is invoked explicitly.
//
// Guest identities are synthesized entirely in memory. They bypass the
// unique-email index, are invisible to account lookups and export, and
// vanish on process exit.
package identity
