package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/sonicsync/internal/models"
	"github.com/desertthunder/sonicsync/internal/shared"
)

const uploadColumns = `id, sequence, subsonic_id, media_id, path, title, artist, album, created_at, updated_at, deleted_at`

// UploadRepository implements [models.Repository] for [models.Upload].
type UploadRepository struct {
	db *sql.DB
}

func NewUploadRepository(db *sql.DB) *UploadRepository {
	return &UploadRepository{db: db}
}

// Create inserts a new upload with generated ID and sequence
func (r *UploadRepository) Create(u *models.Upload) error {
	sequence, err := NextSequence(r.db, "uploads")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	u.SetID(shared.GenerateID())
	u.SetSequence(sequence)

	if err := u.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO uploads (id, sequence, subsonic_id, media_id, path, title, artist, album, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		u.ID(), sequence, u.SubsonicID, u.MediaID, u.Path, u.Title, u.Artist, u.Album, u.CreatedAt(), u.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert upload: %w", err)
	}
	return nil
}

// Get retrieves an upload by ID, excluding soft-deleted uploads
func (r *UploadRepository) Get(id string) (*models.Upload, error) {
	query := `SELECT ` + uploadColumns + ` FROM uploads WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, id), id)
}

// GetBySubsonicID retrieves the upload of a Subsonic track
func (r *UploadRepository) GetBySubsonicID(subsonicID string) (*models.Upload, error) {
	query := `SELECT ` + uploadColumns + ` FROM uploads WHERE subsonic_id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, subsonicID), subsonicID)
}

// Update modifies the AzuraCast side of an existing upload
func (r *UploadRepository) Update(u *models.Upload) error {
	if err := u.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	u.SetUpdatedAt(now)

	query := `
		UPDATE uploads
		SET media_id = ?, path = ?, title = ?, artist = ?, album = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, u.MediaID, u.Path, u.Title, u.Artist, u.Album, now, u.ID())
	if err != nil {
		return fmt.Errorf("failed to update upload: %w", err)
	}
	return expectRow(result, "upload", u.ID())
}

// Delete soft-deletes an upload by ID
func (r *UploadRepository) Delete(id string) error {
	return softDelete(r.db, "uploads", "upload", id)
}

// List retrieves uploads matching criteria. Supported keys: "artist", "album".
func (r *UploadRepository) List(criteria map[string]any) ([]*models.Upload, error) {
	query := `SELECT ` + uploadColumns + ` FROM uploads WHERE deleted_at IS NULL`
	args := []any{}

	for _, key := range []string{"artist", "album"} {
		if v, ok := criteria[key].(string); ok && v != "" {
			query += " AND " + key + " = ?"
			args = append(args, v)
		}
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query uploads: %w", err)
	}
	defer rows.Close()

	var uploads []*models.Upload
	for rows.Next() {
		u, err := r.scan(rows, "")
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return uploads, nil
}

func (r *UploadRepository) scan(s scanner, key string) (*models.Upload, error) {
	var (
		id, subsonicID, mediaID, path string
		title, artist, album          string
		sequence                      int
		createdAt, updatedAt          time.Time
		deletedAt                     sql.NullTime
	)

	err := s.Scan(&id, &sequence, &subsonicID, &mediaID, &path, &title, &artist, &album, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("upload %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan upload: %w", err)
	}

	u := models.NewUpload(sequence, subsonicID, mediaID, path)
	u.SetID(id)
	u.SetCreatedAt(createdAt)
	u.SetUpdatedAt(updatedAt)
	u.Title, u.Artist, u.Album = title, artist, album
	if deletedAt.Valid {
		u.SetDeletedAt(&deletedAt.Time)
	}
	return u, nil
}

// restore revives the soft-deleted upload of u's track with u's values.
func (r *UploadRepository) restore(u *models.Upload) error {
	now := time.Now().UTC()
	u.SetUpdatedAt(now)

	query := `
		UPDATE uploads
		SET media_id = ?, path = ?, title = ?, artist = ?, album = ?, updated_at = ?, deleted_at = NULL
		WHERE subsonic_id = ?
	`

	result, err := r.db.Exec(query, u.MediaID, u.Path, u.Title, u.Artist, u.Album, now, u.SubsonicID)
	if err != nil {
		return fmt.Errorf("failed to restore upload: %w", err)
	}
	return expectRow(result, "upload", u.SubsonicID)
}
