// Package models defines the client-side entities cached between CLI invocations.
//
//   - [Profile] : non-credential user data returned by the backend's profile endpoint
//
// The [ProfileStore] interface is implemented by the SQLite repository and the Redis cache.
// Every store also satisfies the session package's LocalState so a forced logout can wipe it.
package models
