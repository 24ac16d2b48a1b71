// Package repositories implements SQLite persistence for accounts, managed playlists and job history.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// Users, playlists and job records support soft deletes via deleted_at timestamps and exclude deleted
// records from queries by default. Sessions are deleted outright.
//
// Key Implementations:
//   - [UserRepository] : accounts keyed by Spotify user id, upserted at login
//   - [SessionRepository] : opaque session ids bound to OAuth tokens
//   - [SettingsRepository] : naming templates, with the premium flag derived from the user row
//   - [PlaylistRepository] : the organizer's playlist store with genre lookups and sync writes
//   - [JobRepository] : history of finished organize jobs
//
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
