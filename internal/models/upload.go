package models

import (
	"fmt"
	"strings"

	"github.com/desertthunder/sonicsync/internal/shared"
)

// Upload records a Subsonic track that was pushed to AzuraCast as media MediaID at Path.
type Upload struct {
	record

	SubsonicID string
	MediaID    string
	Path       string
	Title      string
	Artist     string
	Album      string
}

func NewUpload(sequence int, subsonicID, mediaID, path string) *Upload {
	return &Upload{record: newRecord(sequence), SubsonicID: subsonicID, MediaID: mediaID, Path: path}
}

func (u *Upload) Validate() error {
	switch {
	case strings.TrimSpace(u.SubsonicID) == "":
		return fmt.Errorf("%w: subsonic id is required", shared.ErrInvalidInput)
	case strings.TrimSpace(u.MediaID) == "":
		return fmt.Errorf("%w: media id is required", shared.ErrInvalidInput)
	case strings.TrimSpace(u.Path) == "":
		return fmt.Errorf("%w: path is required", shared.ErrInvalidInput)
	}
	return nil
}
