package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sonicsync/internal/audio"
	"github.com/desertthunder/sonicsync/internal/azuracast"
	"github.com/desertthunder/sonicsync/internal/enhancer"
	"github.com/desertthunder/sonicsync/internal/formatter"
	"github.com/desertthunder/sonicsync/internal/models"
	"github.com/desertthunder/sonicsync/internal/shared"
	"github.com/desertthunder/sonicsync/internal/subsonic"
)

// Library is the part of the Subsonic client the engine needs.
type Library interface {
	GetPlaylists(ctx context.Context, username string) ([]subsonic.Playlist, error)
	GetPlaylist(ctx context.Context, id string) (*subsonic.Playlist, error)
	GetSong(ctx context.Context, id string) (*subsonic.Track, error)
	SearchTracks(ctx context.Context, query string, limit int, genres []string) ([]subsonic.Track, error)
	DownloadTo(ctx context.Context, id string, w io.Writer) (int64, error)
	GetCoverArt(ctx context.Context, id string, size int) ([]byte, error)
}

var _ Library = (*subsonic.Client)(nil)

// Ledger remembers which Subsonic tracks were already uploaded to the station.
type Ledger interface {
	Uploaded(subsonicID string) (mediaID, path string, ok bool, err error)
	RecordUpload(subsonicID, mediaID, path, title, artist, album string) error
}

// RunRecorder persists sync run history.
type RunRecorder interface {
	Create(run *models.SyncRun) error
	Update(run *models.SyncRun) error
}

// SyncEngine defines the playlist jobs exposed to the CLI, server and UI.
type SyncEngine interface {
	// ExportM3U writes a Subsonic playlist, looked up by id or name, to an M3U file.
	ExportM3U(ctx context.Context, progress chan<- ProgressUpdate, idOrName, path string) (*ExportResult, error)

	// BulkExport exports several Subsonic playlists concurrently.
	BulkExport(ctx context.Context, progress chan<- ProgressUpdate, ids []string, opts BulkExportOpts) (*BulkExportResult, error)

	// SyncM3U mirrors the tracks of an M3U file into a station playlist, uploading what the station lacks.
	SyncM3U(ctx context.Context, progress chan<- ProgressUpdate, path string, opts SyncOptions) (*SyncResult, error)
}

// ExportResult describes a written playlist file.
type ExportResult struct {
	Export *formatter.PlaylistExport
	Path   string
}

// PlaylistEngine implements SyncEngine.
// Contains dependencies on the Subsonic library, the station and optional enrichment and persistence layers.
type PlaylistEngine struct {
	library  Library
	station  azuracast.Client
	enhancer enhancer.Enhancer
	tagger   *audio.Tagger
	ledger   Ledger
	runs     RunRecorder
	logger   *log.Logger

	workers     int
	rateLimit   float64
	downloadDir string
}

// EngineOption configures a [PlaylistEngine].
type EngineOption func(*PlaylistEngine)

// WithStation sets the AzuraCast station used by SyncM3U.
func WithStation(c azuracast.Client) EngineOption {
	return func(e *PlaylistEngine) { e.station = c }
}

// WithEnhancer enables metadata enrichment and ID3 tagging of uploads.
func WithEnhancer(en enhancer.Enhancer, tagger *audio.Tagger) EngineOption {
	return func(e *PlaylistEngine) {
		e.enhancer = en
		e.tagger = tagger
	}
}

func WithLedger(l Ledger) EngineOption {
	return func(e *PlaylistEngine) { e.ledger = l }
}

func WithRunRecorder(r RunRecorder) EngineOption {
	return func(e *PlaylistEngine) { e.runs = r }
}

func WithLogger(l *log.Logger) EngineOption {
	return func(e *PlaylistEngine) { e.logger = l }
}

// WithSyncConfig applies the [sync] section of the config file.
func WithSyncConfig(cfg shared.SyncConfig) EngineOption {
	return func(e *PlaylistEngine) {
		if cfg.Workers > 0 {
			e.workers = cfg.Workers
		}
		if cfg.RateLimit > 0 {
			e.rateLimit = cfg.RateLimit
		}
		if cfg.DownloadDir != "" {
			e.downloadDir = cfg.DownloadDir
		}
	}
}

// NewPlaylistEngine creates a new PlaylistEngine reading from library.
func NewPlaylistEngine(library Library, opts ...EngineOption) *PlaylistEngine {
	e := &PlaylistEngine{
		library:   library,
		workers:   4,
		rateLimit: 2,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = shared.NewLogger(nil)
	}
	e.logger = e.logger.With("component", "tasks")
	return e
}

// sendProgress sends a progress update through the channel without blocking.
func (e *PlaylistEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// FindPlaylist resolves idOrName to a playlist with its entries, trying it as an id first and
// then as a case-insensitive name.
func (e *PlaylistEngine) FindPlaylist(ctx context.Context, idOrName string) (*subsonic.Playlist, error) {
	if e.library == nil {
		return nil, fmt.Errorf("%w: subsonic client not initialized", shared.ErrServiceUnavailable)
	}

	p, err := e.library.GetPlaylist(ctx, idOrName)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, subsonic.ErrNotFound) && !errors.Is(err, subsonic.ErrParameter) {
		return nil, fmt.Errorf("failed to get playlist: %w", err)
	}

	playlists, err := e.library.GetPlaylists(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	for _, pl := range playlists {
		if strings.EqualFold(pl.Name, idOrName) {
			return e.library.GetPlaylist(ctx, pl.ID)
		}
	}
	return nil, fmt.Errorf("%w: no playlist found with id or name '%s'", shared.ErrPlaylistNotFound, idOrName)
}

func (e *PlaylistEngine) ExportM3U(ctx context.Context, progress chan<- ProgressUpdate, idOrName, path string) (*ExportResult, error) {
	e.sendProgress(progress, fetchPlaylistUpdate(idOrName))

	p, err := e.FindPlaylist(ctx, idOrName)
	if err != nil {
		return nil, err
	}

	export := formatter.NewPlaylistExport(p)
	e.sendProgress(progress, foundPlaylistUpdate(export))

	written, err := formatter.WriteM3UExport(export, path)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, exportCompletedUpdate(1, 1, p.Name, 1))
	e.logger.Info("exported playlist", "name", p.Name, "tracks", len(export.Tracks), "path", written)
	return &ExportResult{Export: export, Path: written}, nil
}

// ExportSearch writes the results of a track search to an M3U file named after the query.
func (e *PlaylistEngine) ExportSearch(ctx context.Context, query string, limit int, genres []string, path string) (*ExportResult, error) {
	if e.library == nil {
		return nil, fmt.Errorf("%w: subsonic client not initialized", shared.ErrServiceUnavailable)
	}

	tracks, err := e.library.SearchTracks(ctx, query, limit, genres)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	name := "random"
	if strings.TrimSpace(query) != "" {
		name = query
	}
	export := formatter.NewTrackExport(name, tracks)

	written, err := formatter.WriteM3UExport(export, path)
	if err != nil {
		return nil, err
	}
	return &ExportResult{Export: export, Path: written}, nil
}
