// Package tasks runs playlist jobs between the Subsonic library, M3U files and an AzuraCast station,
// with real-time progress reporting.
//
// # Core Operations
//
// The [SyncEngine] interface defines three operations:
//
//  1. [SyncEngine.ExportM3U] : Subsonic playlist → M3U file
//     - Resolves the playlist by id, then by case-insensitive name
//     - Writes #EXTINF entries whose locations carry the Subsonic track id
//
//  2. [SyncEngine.BulkExport] : Many playlists → m3u, json, csv, markdown or txt files
//     - Rate-limited fetches feed a bounded pool of writers
//     - Writes export_manifest.json summarizing successes and failures
//
//  3. [SyncEngine.SyncM3U] : M3U file → AzuraCast playlist
//     - Resolves each entry to a Subsonic track by id or by "artist title" search
//     - Skips tracks the upload ledger or the station library already holds
//     - Downloads, tags (see [enhancer] and [audio]) and uploads the rest
//     - Links everything to the station playlist in file order
//
// [Watcher] repeats SyncM3U whenever a playlist in a directory changes.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
//
// # Persistence
//
// The optional [Ledger] and [RunRecorder] interfaces are satisfied by repositories.UploadLedger and
// repositories.SyncRunRepository. Recording errors are logged and never fail a sync.
package tasks
