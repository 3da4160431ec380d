package enhancer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sonicsync/internal/audio"
	"github.com/desertthunder/sonicsync/internal/models"
	"github.com/desertthunder/sonicsync/internal/repositories"
	"github.com/desertthunder/sonicsync/internal/shared"
)

// DefaultMaxAge is how long a cached result is trusted before the track is looked up again.
const DefaultMaxAge = 30 * 24 * time.Hour

// Metadata is the enrichment result for one track.
type Metadata struct {
	BPM     *float64
	Genre   string
	Country string
	Source  string // one of models.SourceLastFM, models.SourceTags, models.SourceNone
}

// Empty reports whether nothing was found.
func (m *Metadata) Empty() bool {
	return m.BPM == nil && m.Genre == "" && m.Country == ""
}

// Enhancer looks up metadata for a Subsonic track.
//
// audioPath may name a downloaded copy of the track whose tags are used as a fallback; it may be empty.
type Enhancer interface {
	EnhanceTrack(ctx context.Context, id, artist, title, audioPath string) (*Metadata, error)
}

var _ Enhancer = (*CachedEnhancer)(nil)

// CachedEnhancer answers from the metadata cache and consults its [Lookup] on a miss.
type CachedEnhancer struct {
	repo   *repositories.MetadataRepository
	lookup Lookup
	logger *log.Logger
	maxAge time.Duration
	now    func() time.Time
}

// NewCachedEnhancer creates an enhancer over repo. lookup may be nil, in which case only file tags are used.
func NewCachedEnhancer(repo *repositories.MetadataRepository, lookup Lookup, logger *log.Logger) *CachedEnhancer {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &CachedEnhancer{
		repo:   repo,
		lookup: lookup,
		logger: logger.With("component", "enhancer"),
		maxAge: DefaultMaxAge,
		now:    time.Now,
	}
}

// WithMaxAge changes how long cached entries are trusted.
func (e *CachedEnhancer) WithMaxAge(d time.Duration) *CachedEnhancer {
	e.maxAge = d
	return e
}

func (e *CachedEnhancer) EnhanceTrack(ctx context.Context, id, artist, title, audioPath string) (*Metadata, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	cached, err := e.repo.GetByTrackID(id)
	switch {
	case err == nil && e.now().Sub(cached.UpdatedAt()) < e.maxAge:
		e.logger.Debug("metadata cache hit", "track", id, "source", cached.Source)
		return fromCache(cached), nil
	case err != nil && !errors.Is(err, repositories.ErrNotFound):
		return nil, fmt.Errorf("failed to read metadata cache: %w", err)
	}

	md, err := e.resolve(ctx, artist, title, audioPath)
	if err != nil {
		return nil, err
	}

	entry := models.NewCachedMetadata(id, artist, title)
	if cached != nil {
		entry.SetID(cached.ID())
		entry.SetCreatedAt(cached.CreatedAt())
	}
	entry.BPM, entry.Genre, entry.Country, entry.Source = md.BPM, md.Genre, md.Country, md.Source

	if err := e.repo.Upsert(entry); err != nil {
		return nil, fmt.Errorf("failed to cache metadata for %s: %w", id, err)
	}
	e.logger.Debug("metadata cached", "track", id, "source", md.Source, "genre", md.Genre)
	return md, nil
}

// resolve merges the remote lookup with file tags. Remote genre and country win; BPM only comes from tags.
func (e *CachedEnhancer) resolve(ctx context.Context, artist, title, audioPath string) (*Metadata, error) {
	md := &Metadata{Source: models.SourceNone}

	if e.lookup != nil && artist != "" && title != "" {
		info, err := e.lookup.TrackInfo(ctx, artist, title)
		switch {
		case errors.Is(err, shared.ErrTrackNotFound):
			e.logger.Debug("track unknown to lookup", "artist", artist, "title", title)
		case err != nil:
			return nil, fmt.Errorf("metadata lookup failed for %s - %s: %w", artist, title, err)
		default:
			md.Genre, md.Country = info.Genre, info.Country
			if md.Genre != "" || md.Country != "" {
				md.Source = models.SourceLastFM
			}
		}
	}

	if audioPath == "" {
		return md, nil
	}

	tags, err := audio.ReadTags(audioPath)
	if err != nil {
		e.logger.Warn("could not read tags", "path", audioPath, "err", err)
		return md, nil
	}

	fromTags := false
	if tags.BPM != nil {
		md.BPM, fromTags = tags.BPM, true
	}
	if md.Genre == "" && tags.Genre != "" {
		md.Genre, fromTags = tags.Genre, true
	}
	if md.Country == "" && tags.Country != "" {
		md.Country, fromTags = tags.Country, true
	}
	if fromTags && md.Source == models.SourceNone {
		md.Source = models.SourceTags
	}
	return md, nil
}

func fromCache(m *models.CachedMetadata) *Metadata {
	return &Metadata{BPM: m.BPM, Genre: m.Genre, Country: m.Country, Source: m.Source}
}

// Tags converts md into the ID3 fields written to downloaded files.
func (md *Metadata) Tags() audio.Tags {
	return audio.Tags{Genre: md.Genre, Country: md.Country, BPM: md.BPM}
}
