package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/sonicsync/internal/models"
	"github.com/desertthunder/sonicsync/internal/shared"
)

const metadataColumns = `id, track_id, artist, title, bpm, genre, country, source, created_at, updated_at, deleted_at`

// MetadataRepository implements [models.Repository] for [models.CachedMetadata].
//
// Entries are keyed by Subsonic track id; [MetadataRepository.Upsert] is the write path used by the enhancer.
type MetadataRepository struct {
	db *sql.DB
}

func NewMetadataRepository(db *sql.DB) *MetadataRepository {
	return &MetadataRepository{db: db}
}

// Create inserts a new cache entry with a generated ID
func (r *MetadataRepository) Create(m *models.CachedMetadata) error {
	m.SetID(shared.GenerateID())

	if err := m.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO metadata_cache (id, track_id, artist, title, bpm, genre, country, source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		m.ID(), m.TrackID, m.Artist, m.Title, m.BPM, m.Genre, m.Country, m.Source, m.CreatedAt(), m.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert metadata: %w", err)
	}
	return nil
}

// Get retrieves a cache entry by ID, excluding soft-deleted entries
func (r *MetadataRepository) Get(id string) (*models.CachedMetadata, error) {
	query := `SELECT ` + metadataColumns + ` FROM metadata_cache WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, id), id)
}

// GetByTrackID retrieves the cache entry for a Subsonic track
func (r *MetadataRepository) GetByTrackID(trackID string) (*models.CachedMetadata, error) {
	query := `SELECT ` + metadataColumns + ` FROM metadata_cache WHERE track_id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, trackID), trackID)
}

// Update modifies the lookup result of an existing entry
func (r *MetadataRepository) Update(m *models.CachedMetadata) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	m.SetUpdatedAt(now)

	query := `
		UPDATE metadata_cache
		SET artist = ?, title = ?, bpm = ?, genre = ?, country = ?, source = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, m.Artist, m.Title, m.BPM, m.Genre, m.Country, m.Source, now, m.ID())
	if err != nil {
		return fmt.Errorf("failed to update metadata: %w", err)
	}
	return expectRow(result, "metadata", m.ID())
}

// Upsert stores m for its track, replacing any previous entry including a soft-deleted one.
func (r *MetadataRepository) Upsert(m *models.CachedMetadata) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if m.ID() == "" {
		m.SetID(shared.GenerateID())
	}

	now := time.Now().UTC()
	m.SetUpdatedAt(now)

	query := `
		INSERT INTO metadata_cache (id, track_id, artist, title, bpm, genre, country, source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(track_id) DO UPDATE SET
			artist = excluded.artist,
			title = excluded.title,
			bpm = excluded.bpm,
			genre = excluded.genre,
			country = excluded.country,
			source = excluded.source,
			updated_at = excluded.updated_at,
			deleted_at = NULL
	`

	_, err := r.db.Exec(query,
		m.ID(), m.TrackID, m.Artist, m.Title, m.BPM, m.Genre, m.Country, m.Source, m.CreatedAt(), now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert metadata: %w", err)
	}
	return nil
}

// Delete soft-deletes a cache entry by ID
func (r *MetadataRepository) Delete(id string) error {
	return softDelete(r.db, "metadata_cache", "metadata", id)
}

// List retrieves cache entries matching criteria. Supported keys: "source", "genre", "artist".
func (r *MetadataRepository) List(criteria map[string]any) ([]*models.CachedMetadata, error) {
	query := `SELECT ` + metadataColumns + ` FROM metadata_cache WHERE deleted_at IS NULL`
	args := []any{}

	for _, key := range []string{"source", "genre", "artist"} {
		if v, ok := criteria[key].(string); ok && v != "" {
			query += " AND " + key + " = ?"
			args = append(args, v)
		}
	}

	query += " ORDER BY updated_at DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	var entries []*models.CachedMetadata
	for rows.Next() {
		m, err := r.scan(rows, "")
		if err != nil {
			return nil, err
		}
		entries = append(entries, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}

func (r *MetadataRepository) scan(s scanner, key string) (*models.CachedMetadata, error) {
	var (
		id, trackID, artist, title string
		genre, country, source     string
		bpm                        sql.NullFloat64
		createdAt, updatedAt       time.Time
		deletedAt                  sql.NullTime
	)

	err := s.Scan(&id, &trackID, &artist, &title, &bpm, &genre, &country, &source, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("metadata %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan metadata: %w", err)
	}

	m := models.NewCachedMetadata(trackID, artist, title)
	m.SetID(id)
	m.SetCreatedAt(createdAt)
	m.SetUpdatedAt(updatedAt)
	m.Genre, m.Country, m.Source = genre, country, source
	if bpm.Valid {
		m.BPM = &bpm.Float64
	}
	if deletedAt.Valid {
		m.SetDeletedAt(&deletedAt.Time)
	}
	return m, nil
}
