// Package store provides the embedded storage engine for taskdeck using SQLite.
//
// # Architecture
//
// The engine exposes four named collections, each declared once at
// initialization and immutable for the process lifetime:
//
//   - accounts: unique index on email
//   - tasks: indexes on owner_id, status, due_date
//   - projects: index on owner_id
//   - sessions: indexes on owner_id, expires_at
//
// The collection contracts are split into AccountStore, TaskStore,
// ProjectStore, and SessionStore interfaces; SQLiteStore implements all of
// them in a single struct, allowing easy composition while keeping clear
// interface boundaries. The engine is agnostic to business rules - session
// validity, credential checks, and the completed-at invariant belong to the
// layers above.
//
// # Operations
//
// Every collection supports the same five primitives: insert (fails on a
// unique-index breach, never overwrites), get by key, get by index,
// patch-style update (stamps updated_at, returns the full record), and
// idempotent delete, plus a scan over the owner foreign key.
//
// # Error Handling
//
// Common errors:
//
//   - ErrNotFound: requested record does not exist
//   - ErrDuplicateEmail: unique email index breach on account insert
//   - ErrAlreadyExists: primary key collision on insert
//
// All methods accept context.Context.
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// Use NewSQLiteStore with a t.TempDir() path for tests.
package store
