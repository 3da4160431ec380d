package subsonic

import (
	"context"
	"strconv"
	"strings"
)

// Search3 runs the unified ID3 search. Zero artist or album counts exclude that type; a zero song count uses the
// server default.
func (c *Client) Search3(ctx context.Context, query string, artistCount, albumCount, songCount int) (*SearchResult3, error) {
	params := values("query", query, "songCount", itoa(songCount))
	params.Set("artistCount", strconv.Itoa(max(artistCount, 0)))
	params.Set("albumCount", strconv.Itoa(max(albumCount, 0)))

	var payload struct {
		SearchResult3 searchDTO `json:"searchResult3"`
	}
	if _, err := c.getJSON(ctx, "search3", params, &payload); err != nil {
		return nil, err
	}

	artists, albums, songs := c.splitResult("search3", payload.SearchResult3)
	return &SearchResult3{Artists: artists, Albums: albums, Songs: songs}, nil
}

// SearchTracks returns up to limit tracks for query, optionally narrowed by genre.
//
// An empty query draws random songs in batches of at most [MaxPageSize] until limit is reached or the server returns
// a short batch. Entries dropped while decoding do not count as a short batch. Otherwise search3 is queried for songs only. With genres set, a track is kept when its genre equals
// or contains one of the terms, ignoring case.
func (c *Client) SearchTracks(ctx context.Context, query string, limit int, genres []string) ([]Track, error) {
	if limit <= 0 {
		return []Track{}, nil
	}

	var tracks []Track
	if strings.TrimSpace(query) == "" {
		for len(tracks) < limit {
			want := clampPage(limit - len(tracks))
			batch, sent, err := c.randomSongs(ctx, want, RandomSongsOptions{})
			if err != nil {
				return nil, err
			}
			tracks = append(tracks, batch...)
			if sent < want || len(batch) == 0 {
				break
			}
		}
	} else {
		res, err := c.Search3(ctx, query, 0, 0, limit)
		if err != nil {
			return nil, err
		}
		tracks = res.Songs
	}

	if len(genres) > 0 {
		tracks = FilterByGenre(tracks, genres)
	}
	if len(tracks) > limit {
		tracks = tracks[:limit]
	}
	return tracks, nil
}

// FilterByGenre keeps tracks whose genre equals or contains any of terms, ignoring case. Blank terms are ignored.
func FilterByGenre(tracks []Track, terms []string) []Track {
	wanted := make([]string, 0, len(terms))
	for _, term := range terms {
		if term = strings.ToLower(strings.TrimSpace(term)); term != "" {
			wanted = append(wanted, term)
		}
	}
	if len(wanted) == 0 {
		return tracks
	}

	kept := make([]Track, 0, len(tracks))
	for _, t := range tracks {
		if genreMatches(t.Genre, wanted) {
			kept = append(kept, t)
		}
	}
	return kept
}

func genreMatches(genre string, terms []string) bool {
	genre = strings.ToLower(strings.TrimSpace(genre))
	if genre == "" {
		return false
	}
	for _, term := range terms {
		if genre == term || strings.Contains(genre, term) {
			return true
		}
	}
	return false
}
