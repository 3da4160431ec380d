package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/sonicsync/internal/shared"
	"github.com/desertthunder/sonicsync/internal/subsonic"
)

// Curator picks track ids for a free-text prompt, typically by driving a model through the [Toolbox].
type Curator interface {
	SelectTracks(ctx context.Context, prompt string, n int) ([]string, error)
}

// SongGetter resolves curated ids back to tracks.
type SongGetter interface {
	GetSong(ctx context.Context, id string) (*subsonic.Track, error)
}

// SearchCurator answers prompts without a model: the prompt is searched as-is, and random tracks fill
// whatever the search leaves short.
type SearchCurator struct {
	toolbox *Toolbox
	genres  []string
}

var _ Curator = (*SearchCurator)(nil)

func NewSearchCurator(toolbox *Toolbox, genres ...string) *SearchCurator {
	return &SearchCurator{toolbox: toolbox, genres: genres}
}

func (c *SearchCurator) SelectTracks(ctx context.Context, prompt string, n int) ([]string, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: track count must be positive", shared.ErrInvalidInput)
	}

	seen := make(map[string]bool, n)
	var ids []string
	collect := func(res ToolResult) error {
		if res.Error != nil {
			return res.Error
		}
		for _, t := range res.Tracks {
			if len(ids) == n {
				break
			}
			if !seen[t.ID] {
				seen[t.ID] = true
				ids = append(ids, t.ID)
			}
		}
		return nil
	}

	args, _ := json.Marshal(searchArgs{Query: strings.TrimSpace(prompt), Limit: n, Genres: c.genres})
	if err := collect(c.toolbox.Call(ctx, SearchTracks, args)); err != nil {
		return nil, err
	}

	if len(ids) < n {
		genre := ""
		if len(c.genres) > 0 {
			genre = c.genres[0]
		}
		args, _ := json.Marshal(randomArgs{Count: n - len(ids), Genre: genre})
		if err := collect(c.toolbox.Call(ctx, RandomTracks, args)); err != nil && len(ids) == 0 {
			return nil, err
		}
	}
	return ids, nil
}

// Curate asks curator for n tracks and resolves them in order.
//
// Ids the library does not know are skipped, and so are tracks that duplicate an earlier pick by
// title, artist and album.
func Curate(ctx context.Context, curator Curator, songs SongGetter, prompt string, n int) ([]subsonic.Track, error) {
	ids, err := curator.SelectTracks(ctx, prompt, n)
	if err != nil {
		return nil, fmt.Errorf("curation failed: %w", err)
	}

	var (
		tracks []subsonic.Track
		seen   []subsonic.ExternalTrack
	)
	for _, id := range ids {
		t, err := songs.GetSong(ctx, id)
		switch {
		case err == nil && t != nil:
		case err == nil, errors.Is(err, subsonic.ErrNotFound):
			continue
		default:
			return nil, fmt.Errorf("failed to resolve curated track %s: %w", id, err)
		}

		ext := subsonic.ToExternal(*t)
		if subsonic.IsDuplicate(ext, seen) {
			continue
		}
		seen = append(seen, ext)
		tracks = append(tracks, *t)
	}
	return tracks, nil
}
