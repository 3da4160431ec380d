package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/sonicsync/internal/models"
	"github.com/desertthunder/sonicsync/internal/shared"
)

const syncRunColumns = `
	id, sequence, playlist_name, source, status, tracks_total, tracks_uploaded, tracks_linked,
	tracks_failed, error_message, started_at, completed_at, created_at, updated_at, deleted_at`

// SyncRunRepository implements [models.Repository] for [models.SyncRun].
//
// Handles sync run CRUD operations with soft delete support and status-based queries.
type SyncRunRepository struct {
	db *sql.DB
}

// NewSyncRunRepository creates a new SyncRunRepository with the given database connection
func NewSyncRunRepository(db *sql.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

// Create inserts a new sync run into the database with generated ID and sequence
func (r *SyncRunRepository) Create(run *models.SyncRun) error {
	sequence, err := NextSequence(r.db, "sync_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	run.SetID(shared.GenerateID())
	run.SetSequence(sequence)

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO sync_runs (
			id, sequence, playlist_name, source, status, tracks_total, tracks_uploaded, tracks_linked,
			tracks_failed, error_message, started_at, completed_at, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		run.ID(),
		sequence,
		run.PlaylistName,
		run.Source,
		string(run.Status),
		run.TracksTotal,
		run.TracksUploaded,
		run.TracksLinked,
		run.TracksFailed,
		nullable(run.ErrorMessage),
		run.StartedAt,
		run.CompletedAt,
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}

	return nil
}

// Get retrieves a sync run by ID, excluding soft-deleted runs
func (r *SyncRunRepository) Get(id string) (*models.SyncRun, error) {
	query := `SELECT ` + syncRunColumns + ` FROM sync_runs WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, id), id)
}

// Latest returns the most recent run for a playlist
func (r *SyncRunRepository) Latest(playlistName string) (*models.SyncRun, error) {
	query := `
		SELECT ` + syncRunColumns + `
		FROM sync_runs
		WHERE playlist_name = ? AND deleted_at IS NULL
		ORDER BY sequence DESC
		LIMIT 1
	`
	return r.scan(r.db.QueryRow(query, playlistName), playlistName)
}

// Update writes the status and counters of an existing sync run
func (r *SyncRunRepository) Update(run *models.SyncRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	run.SetUpdatedAt(now)

	query := `
		UPDATE sync_runs
		SET status = ?, tracks_total = ?, tracks_uploaded = ?, tracks_linked = ?, tracks_failed = ?,
			error_message = ?, started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		string(run.Status),
		run.TracksTotal,
		run.TracksUploaded,
		run.TracksLinked,
		run.TracksFailed,
		nullable(run.ErrorMessage),
		run.StartedAt,
		run.CompletedAt,
		now,
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update sync run: %w", err)
	}
	return expectRow(result, "sync run", run.ID())
}

// Delete soft-deletes a sync run by ID
func (r *SyncRunRepository) Delete(id string) error {
	return softDelete(r.db, "sync_runs", "sync run", id)
}

// List retrieves sync runs matching criteria, newest first. Supported keys: "status", "playlist_name", "limit".
func (r *SyncRunRepository) List(criteria map[string]any) ([]*models.SyncRun, error) {
	query := `SELECT ` + syncRunColumns + ` FROM sync_runs WHERE deleted_at IS NULL`
	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	if name, ok := criteria["playlist_name"].(string); ok && name != "" {
		query += " AND playlist_name = ?"
		args = append(args, name)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.SyncRun
	for rows.Next() {
		run, err := r.scan(rows, "")
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

func (r *SyncRunRepository) scan(s scanner, key string) (*models.SyncRun, error) {
	var (
		id           string
		sequence     int
		playlistName string
		source       string
		status       string
		total        int
		uploaded     int
		linked       int
		failed       int
		errorMessage sql.NullString
		startedAt    sql.NullTime
		completedAt  sql.NullTime
		createdAt    time.Time
		updatedAt    time.Time
		deletedAt    sql.NullTime
	)

	err := s.Scan(
		&id, &sequence, &playlistName, &source, &status, &total, &uploaded, &linked,
		&failed, &errorMessage, &startedAt, &completedAt, &createdAt, &updatedAt, &deletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sync run %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync run: %w", err)
	}

	run := models.NewSyncRun(sequence, playlistName, source)
	run.SetID(id)
	run.SetCreatedAt(createdAt)
	run.SetUpdatedAt(updatedAt)
	run.Status = models.SyncStatus(status)
	run.TracksTotal, run.TracksUploaded, run.TracksLinked, run.TracksFailed = total, uploaded, linked, failed
	run.ErrorMessage = errorMessage.String
	if startedAt.Valid {
		run.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	if deletedAt.Valid {
		run.SetDeletedAt(&deletedAt.Time)
	}

	return run, nil
}
