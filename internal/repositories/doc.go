// Package repositories implements SQLite persistence for sonicsync's bookkeeping entities.
//
// Each repository handles CRUD operations, and the sequenced ones use atomic sequence generation for
// human-readable ordering. All repositories support soft deletes via deleted_at timestamps and exclude
// deleted records from queries by default.
//
// Key Implementations:
//   - [MetadataRepository] : enrichment cache keyed by Subsonic track id
//   - [UploadRepository] : ledger of tracks already uploaded to AzuraCast
//   - [SyncRunRepository] : playlist sync history with status tracking
//   - [UploadLedger] : adapter exposing the upload ledger to the sync engine
//
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
