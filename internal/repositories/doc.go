// Package repositories implements SQLite persistence for harmoniq's entities.
//
// Key Implementations:
//   - [UserRepository] : application accounts with email lookups, soft deletes & sequence numbers
//   - [CredentialRepository] : the one Tidal credential per user; upserts keyed by user id
//   - [PlaylistRepository] : playlists recorded by the sync task, unique per (user, tidal id)
//
// [CredentialRepository] satisfies the credential store contract of the auth package: Save is an upsert on the
// unique user_id column, Delete is a hard delete, and Get wraps [shared.ErrCredentialNotFound] when no row exists.
//
// Sequence numbers give users stable, human-readable ordering independent of UUIDs.
// [NextSequence] atomically increments per-table counters in dedicated sequence tables.
package repositories
