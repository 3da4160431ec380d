// Package models defines the persisted entities of sonicsync and the repository contract used to store them.
//
// Library data itself (tracks, albums, playlists) is never persisted; it is fetched from the Subsonic server on
// demand. What is kept locally is bookkeeping around that data:
//   - [CachedMetadata] : enrichment results (BPM, genre, country) keyed by Subsonic track id
//   - [Upload] : tracks already pushed to AzuraCast, so repeated syncs skip the download
//   - [SyncRun] : one execution of a playlist sync with its counters and outcome
//
// All entities implement [Model], which provides ids, timestamps, validation and soft delete state.
// The [Repository] interface defines the CRUD operations implemented in the repositories package.
package models
