// Package repositories implements SQLite persistence for client-side state.
//
// Key Implementations:
//   - [StateRepository] : key/value rows in client_state; backs the cookie jar and the critical-mode flag
//   - [ProfileRepository] : the cached /auth/me profile; cleared on forced logout
//
// Both repositories take a migrated *sql.DB from shared.OpenDatabase.
package repositories
