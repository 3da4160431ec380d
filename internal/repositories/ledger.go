package repositories

import (
	"errors"
	"fmt"

	"github.com/desertthunder/sonicsync/internal/models"
)

// UploadLedger implements tasks.Ledger using [UploadRepository].
//
// Recording a track that is already in the ledger updates the existing row instead of failing.
type UploadLedger struct {
	repo *UploadRepository
}

// NewUploadLedger creates a new UploadLedger with the given repository
func NewUploadLedger(repo *UploadRepository) *UploadLedger {
	return &UploadLedger{repo: repo}
}

// Uploaded returns the AzuraCast media id and path recorded for a Subsonic track.
func (l *UploadLedger) Uploaded(subsonicID string) (mediaID, path string, ok bool, err error) {
	u, err := l.repo.GetBySubsonicID(subsonicID)
	if errors.Is(err, ErrNotFound) {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, err
	}
	return u.MediaID, u.Path, true, nil
}

// RecordUpload stores the AzuraCast side of an uploaded Subsonic track.
func (l *UploadLedger) RecordUpload(subsonicID, mediaID, path, title, artist, album string) error {
	existing, err := l.repo.GetBySubsonicID(subsonicID)
	switch {
	case err == nil:
		existing.MediaID, existing.Path = mediaID, path
		existing.Title, existing.Artist, existing.Album = title, artist, album
		return l.repo.Update(existing)
	case !errors.Is(err, ErrNotFound):
		return fmt.Errorf("failed to look up upload: %w", err)
	}

	u := models.NewUpload(0, subsonicID, mediaID, path)
	u.Title, u.Artist, u.Album = title, artist, album

	err = l.repo.Create(u)
	if isUniqueViolation(err) {
		// a soft-deleted row still holds the track id
		return l.repo.restore(u)
	}
	if err != nil {
		return fmt.Errorf("failed to record upload: %w", err)
	}
	return nil
}
