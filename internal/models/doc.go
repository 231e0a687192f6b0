// Package models defines domain entities and persistence interfaces for harmoniq.
//
// # Entities
//
//   - [User] : application accounts; the owner of a Tidal credential
//   - [Credential] : the single Tidal grant stored per user (access & refresh token, expiry, profile)
//   - [Playlist] : Tidal playlists recorded by the sync task, with a [SyncStatus]
//
// [User] implements the [Model] interface (ID, timestamps, validation, soft delete) and is persisted through a
// [Repository]. [Credential] and [Playlist] are plain structs keyed by owner; their repositories take a context.
//
// # Credential State
//
// A credential carries no state column. [Credential.State] derives one of [StateAbsent], [StateValid],
// [StateRefreshable] or [StateTerminal] from the expiry and the presence of a refresh token, given the current time
// and a safety buffer. Tokens inside the buffer are treated as expiring; [CredentialState.Expiring] reports that.
package models
