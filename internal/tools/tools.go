package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sonicsync/internal/shared"
	"github.com/desertthunder/sonicsync/internal/subsonic"
)

const (
	SearchTracks = "search_tracks"
	RandomTracks = "random_tracks"
	GetAlbum     = "get_album"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Library is the part of the Subsonic client the tools call.
type Library interface {
	SearchTracks(ctx context.Context, query string, limit int, genres []string) ([]subsonic.Track, error)
	GetRandomSongs(ctx context.Context, size int, opts subsonic.RandomSongsOptions) ([]subsonic.Track, error)
	GetAlbumInfo(ctx context.Context, id string) (*subsonic.Album, []subsonic.Track, error)
}

var _ Library = (*subsonic.Client)(nil)

// Definition describes a tool to the model. Parameters is a JSON Schema object.
type Definition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// TrackSummary is the compact track shape handed to the model.
type TrackSummary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album,omitempty"`
	Genre    string `json:"genre,omitempty"`
	Year     int    `json:"year,omitempty"`
	Duration string `json:"duration"`
}

// AlbumSummary describes the album returned by get_album.
type AlbumSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Artist string `json:"artist"`
	Year   int    `json:"year,omitempty"`
	Genre  string `json:"genre,omitempty"`
	Songs  int    `json:"song_count"`
}

// ToolResult is the JSON document returned for every call. Exactly one of Tracks and Error is meaningful.
type ToolResult struct {
	Tool   string         `json:"tool"`
	OK     bool           `json:"ok"`
	Tracks []TrackSummary `json:"tracks,omitempty"`
	Album  *AlbumSummary  `json:"album,omitempty"`
	Error  *ToolError     `json:"error,omitempty"`
}

type searchArgs struct {
	Query  string   `json:"query"`
	Limit  int      `json:"limit"`
	Genres []string `json:"genres"`
}

type randomArgs struct {
	Count    int    `json:"count"`
	Genre    string `json:"genre"`
	FromYear int    `json:"from_year"`
	ToYear   int    `json:"to_year"`
}

type albumArgs struct {
	ID string `json:"id"`
}

// Toolbox dispatches tool calls against a [Library].
type Toolbox struct {
	library Library
	policy  shared.RetryPolicy
	logger  *log.Logger
}

// Option configures a [Toolbox].
type Option func(*Toolbox)

// WithRetryPolicy replaces the default policy of three attempts with exponential backoff.
// The Retryable predicate is always the toolbox's own.
func WithRetryPolicy(p shared.RetryPolicy) Option {
	return func(t *Toolbox) {
		t.policy.Attempts, t.policy.Backoff = p.Attempts, p.Backoff
	}
}

func WithLogger(l *log.Logger) Option {
	return func(t *Toolbox) { t.logger = l }
}

// NewToolbox creates a toolbox over library.
func NewToolbox(library Library, opts ...Option) *Toolbox {
	t := &Toolbox{
		library: library,
		policy: shared.RetryPolicy{
			Attempts:  3,
			Backoff:   shared.ExponentialBackoff(250*time.Millisecond, 2*time.Second),
			Retryable: retryable,
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = shared.NewLogger(nil)
	}
	t.logger = t.logger.With("component", "tools")
	return t
}

// Definitions lists the tools in the order they should be offered to the model.
func Definitions() []Definition {
	return []Definition{
		{
			Name:        SearchTracks,
			Description: "Search the music library for tracks. An empty query returns random tracks. Genres keep tracks whose genre contains any of the terms.",
			Parameters: json.RawMessage(`{"type":"object","properties":{` +
				`"query":{"type":"string"},` +
				`"limit":{"type":"integer","minimum":1,"maximum":100},` +
				`"genres":{"type":"array","items":{"type":"string"}}}}`),
		},
		{
			Name:        RandomTracks,
			Description: "Draw random tracks, optionally restricted to a genre and a range of release years.",
			Parameters: json.RawMessage(`{"type":"object","properties":{` +
				`"count":{"type":"integer","minimum":1,"maximum":100},` +
				`"genre":{"type":"string"},` +
				`"from_year":{"type":"integer"},` +
				`"to_year":{"type":"integer"}}}`),
		},
		{
			Name:        GetAlbum,
			Description: "Get an album and its tracks by album id.",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"id":{"type":"string"}},"required":["id"]}`),
		},
	}
}

// Call runs the named tool with JSON arguments. Failures are reported inside the result.
func (t *Toolbox) Call(ctx context.Context, name string, args json.RawMessage) ToolResult {
	res, err := t.call(ctx, name, args)
	if err != nil {
		te := NewToolError(err)
		t.logger.Warn("tool call failed", "tool", name, "kind", te.Kind, "code", te.Code, "retryable", te.Retryable)
		return ToolResult{Tool: name, Error: te}
	}
	res.Tool, res.OK = name, true
	return res
}

// CallJSON is [Toolbox.Call] with the result encoded for the model.
func (t *Toolbox) CallJSON(ctx context.Context, name string, args json.RawMessage) ([]byte, error) {
	return shared.MarshalJSON(t.Call(ctx, name, args), false)
}

func (t *Toolbox) call(ctx context.Context, name string, raw json.RawMessage) (ToolResult, error) {
	switch name {
	case SearchTracks:
		var args searchArgs
		if err := decodeArgs(raw, &args); err != nil {
			return ToolResult{}, err
		}
		tracks, err := shared.RetryValue(ctx, t.policy, func(ctx context.Context) ([]subsonic.Track, error) {
			return t.library.SearchTracks(ctx, strings.TrimSpace(args.Query), clampLimit(args.Limit), args.Genres)
		})
		if err != nil {
			return ToolResult{}, err
		}
		return ToolResult{Tracks: Summarize(tracks)}, nil

	case RandomTracks:
		var args randomArgs
		if err := decodeArgs(raw, &args); err != nil {
			return ToolResult{}, err
		}
		if args.FromYear != 0 && args.ToYear != 0 && args.FromYear > args.ToYear {
			return ToolResult{}, invalidArguments("from_year %d is after to_year %d", args.FromYear, args.ToYear)
		}
		opts := subsonic.RandomSongsOptions{Genre: args.Genre, FromYear: args.FromYear, ToYear: args.ToYear}
		tracks, err := shared.RetryValue(ctx, t.policy, func(ctx context.Context) ([]subsonic.Track, error) {
			return t.library.GetRandomSongs(ctx, clampLimit(args.Count), opts)
		})
		if err != nil {
			return ToolResult{}, err
		}
		return ToolResult{Tracks: Summarize(tracks)}, nil

	case GetAlbum:
		var args albumArgs
		if err := decodeArgs(raw, &args); err != nil {
			return ToolResult{}, err
		}
		if strings.TrimSpace(args.ID) == "" {
			return ToolResult{}, invalidArguments("id is required")
		}

		var (
			album  *subsonic.Album
			tracks []subsonic.Track
		)
		err := shared.Retry(ctx, t.policy, func(ctx context.Context) error {
			var err error
			album, tracks, err = t.library.GetAlbumInfo(ctx, args.ID)
			return err
		})
		if err != nil {
			return ToolResult{}, err
		}
		return ToolResult{Album: summarizeAlbum(album), Tracks: Summarize(tracks)}, nil

	default:
		return ToolResult{}, &ToolError{Kind: KindUnknownTool, Message: fmt.Sprintf("no tool named %q", name)}
	}
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return invalidArguments("malformed arguments: %v", err)
	}
	return nil
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return defaultLimit
	case n > maxLimit:
		return maxLimit
	}
	return n
}

// Summarize converts tracks into the shape returned to the model.
func Summarize(tracks []subsonic.Track) []TrackSummary {
	out := make([]TrackSummary, 0, len(tracks))
	for _, t := range tracks {
		s := TrackSummary{
			ID:       t.ID,
			Title:    t.Title,
			Artist:   t.Artist,
			Album:    t.Album,
			Genre:    t.Genre,
			Duration: shared.FormatDuration(t.Duration),
		}
		if t.Year != nil {
			s.Year = *t.Year
		}
		out = append(out, s)
	}
	return out
}

func summarizeAlbum(a *subsonic.Album) *AlbumSummary {
	if a == nil {
		return nil
	}
	s := &AlbumSummary{ID: a.ID, Name: a.Name, Artist: a.Artist, Genre: a.Genre, Songs: a.SongCount}
	if a.Year != nil {
		s.Year = *a.Year
	}
	return s
}
