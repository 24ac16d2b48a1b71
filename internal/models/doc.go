// Package models defines domain entities and persistence interfaces for the genre organizer.
//
// The package contains three categories of types:
//
// 1. Library DTOs: lightweight structs describing data read from the music provider
//   - [Track], [Artist] and [TrackPage] : liked songs with the artists used for classification
//   - [Playlist] : the live view of a playlist on the provider
//
// 2. Job state: the in-memory organize job and its result
//   - [Job], [JobStatus], [OrganizeResult], [PlaylistSummary]
//
// 3. Persistent entities: database-backed models with soft delete support
//   - [User], [Session] : accounts and their OAuth tokens
//   - [UserSettings] : naming templates and account tier
//   - [ManagedPlaylist] : playlists created by the organizer and tracked for sync
//   - [JobRecord] : the history row written when a job reaches a terminal state
//
// Persistent entities implement [Model]. [Repository] defines standard CRUD operations for database access.
package models
