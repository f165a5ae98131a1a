// Package storage is the durable local key/value store of the client core.
//
// It plays the role browser local storage has for the web dashboard: the
// bearer token, the cached user identity and the per-user profile records
// all live here. Every component depends on the Repository interface, so
// the backing store is chosen by configuration:
//
//   - SQLite: single-user workstation, file on disk (default);
//   - Redis: shared terminals that keep state outside the process;
//   - Memory: tests and throwaway sessions.
//
// Keys
//
//	token              raw bearer token
//	user               JSON identity
//	profile:{id|email} JSON profile record, one per user
//	profile            legacy unkeyed profile record (migrated, then deleted)
//
// Get returns (nil, nil) for a missing key. Single-key writes are atomic;
// SetMany/DeleteMany group several keys into one transaction where the
// backend supports it.
package storage
