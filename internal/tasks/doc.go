// Package tasks syncs Tidal account data into the local database.
//
// # Operations
//
//  1. [Syncer.SyncProfile] : fetch /users/me and record the provider id, email, username and country on the credential
//  2. [Syncer.SyncPlaylists] : page through the user's playlist collection and upsert every playlist as pending
//  3. [Syncer.SyncAll] : run SyncPlaylists for many users with bounded concurrency
//
// # Progress Reporting
//
// Operations accept an optional channel of [ProgressUpdate]. Sends never block; a slow reader misses updates.
//
// A user whose credential is missing or cannot be renewed fails on its own; SyncAll keeps going with the others.
package tasks
