package models

import (
	"fmt"
	"strings"

	"github.com/desertthunder/sonicsync/internal/shared"
)

// Metadata sources recorded on [CachedMetadata].
const (
	SourceLastFM = "lastfm"
	SourceTags   = "tags"
	SourceNone   = "none"
)

// CachedMetadata is an enrichment result for one Subsonic track.
//
// A row with Source [SourceNone] records a lookup that found nothing, so the track is not looked up again.
type CachedMetadata struct {
	record

	TrackID string
	Artist  string
	Title   string
	BPM     *float64
	Genre   string
	Country string
	Source  string
}

// NewCachedMetadata creates an empty cache entry for a track.
func NewCachedMetadata(trackID, artist, title string) *CachedMetadata {
	return &CachedMetadata{record: newRecord(0), TrackID: trackID, Artist: artist, Title: title, Source: SourceNone}
}

func (m *CachedMetadata) Validate() error {
	if strings.TrimSpace(m.TrackID) == "" {
		return fmt.Errorf("%w: track id is required", shared.ErrInvalidInput)
	}
	if m.BPM != nil && *m.BPM < 0 {
		return fmt.Errorf("%w: bpm must not be negative", shared.ErrInvalidInput)
	}
	return nil
}

// Empty reports whether the lookup produced no usable metadata.
func (m *CachedMetadata) Empty() bool {
	return m.BPM == nil && m.Genre == "" && m.Country == ""
}
