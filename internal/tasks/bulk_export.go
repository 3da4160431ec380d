package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/sonicsync/internal/formatter"
	"github.com/desertthunder/sonicsync/internal/shared"
	"golang.org/x/time/rate"
)

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     string  // Export format: m3u, json, csv, markdown, txt
	OutputDir  string  // Base output directory (default: sonicsync_export_{epoch})
	NumWorkers int     // Concurrent workers (default: 4, max 10)
	RateLimit  float64 // Subsonic requests per second (default: 5)
	CoverSize  int     // Cover art size for markdown exports; 0 requests the original
}

// PlaylistExportJob is a playlist fetched and ready to be written.
type PlaylistExportJob struct {
	PlaylistID string
	Export     *formatter.PlaylistExport
}

// PlaylistExportResult is the outcome of exporting one playlist.
type PlaylistExportResult struct {
	PlaylistID   string
	PlaylistName string
	Success      bool
	Files        []string
	Error        error
}

// BulkExportResult summarizes a [PlaylistEngine.BulkExport] run.
type BulkExportResult struct {
	TotalPlaylists    int
	SuccessfulExports int
	FailedExports     int
	OutputDirectory   string
	ManifestPath      string
	Results           []PlaylistExportResult
}

func (r *BulkExportResult) manifest() []formatter.ManifestEntry {
	entries := make([]formatter.ManifestEntry, 0, len(r.Results))
	for _, res := range r.Results {
		entries = append(entries, formatter.ManifestEntry{
			PlaylistID:   res.PlaylistID,
			PlaylistName: res.PlaylistName,
			Success:      res.Success,
			Files:        res.Files,
			Err:          res.Error,
		})
	}
	return entries
}

// BulkExport exports multiple Subsonic playlists concurrently.
//
// Playlists are fetched one at a time under the rate limit and handed to a pool of writers.
// A failed playlist is recorded in the result and the manifest without stopping the others.
// An empty ids exports every playlist visible to the configured user.
func (e *PlaylistEngine) BulkExport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	ids []string,
	opts BulkExportOpts,
) (*BulkExportResult, error) {
	if e.library == nil {
		return nil, fmt.Errorf("%w: subsonic client not initialized", shared.ErrServiceUnavailable)
	}

	if opts.Format == "" {
		opts.Format = "m3u"
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("sonicsync_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if len(ids) == 0 {
		playlists, err := e.library.GetPlaylists(ctx, "")
		if err != nil {
			return nil, fmt.Errorf("failed to list playlists: %w", err)
		}
		for _, p := range playlists {
			ids = append(ids, p.ID)
		}
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		TotalPlaylists:  len(ids),
		OutputDirectory: opts.OutputDir,
		Results:         make([]PlaylistExportResult, 0, len(ids)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan PlaylistExportJob, len(ids))
	results := make(chan PlaylistExportResult, len(ids))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, limiter, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, playlistID := range ids {
			if err := limiter.Wait(ctx); err != nil {
				return
			}

			p, err := e.library.GetPlaylist(ctx, playlistID)
			if err != nil {
				results <- PlaylistExportResult{
					PlaylistID:   playlistID,
					PlaylistName: fmt.Sprintf("Unknown (%s)", playlistID),
					Error:        fmt.Errorf("failed to fetch playlist: %w", err),
				}
				continue
			}

			jobs <- PlaylistExportJob{PlaylistID: playlistID, Export: formatter.NewPlaylistExport(p)}
			e.sendProgress(prog, exportingPlaylistUpdate(i+1, len(ids), p.Name))
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(completed, len(ids), res.PlaylistName, len(res.Files)))
		} else {
			result.FailedExports++
			e.sendProgress(prog, exportFailedUpdate(completed, len(ids), res.PlaylistName, res.Error))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteBulkExportManifest(result.manifest(), opts.Format, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// exportWorker writes playlists from jobs until the channel closes or ctx is canceled.
func (e *PlaylistEngine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan PlaylistExportJob,
	results chan<- PlaylistExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		if ctx.Err() != nil {
			return
		}
		results <- e.exportSinglePlaylist(ctx, limiter, job, opts)
	}
}

// exportSinglePlaylist writes one playlist in the requested format.
func (e *PlaylistEngine) exportSinglePlaylist(
	ctx context.Context,
	limiter *rate.Limiter,
	j PlaylistExportJob,
	opts BulkExportOpts,
) PlaylistExportResult {
	result := PlaylistExportResult{
		PlaylistID:   j.PlaylistID,
		PlaylistName: j.Export.Playlist.Name,
		Files:        []string{},
	}
	base := filepath.Join(opts.OutputDir, formatter.Slug(j.Export.Playlist.Name)+"_"+j.PlaylistID)

	switch opts.Format {
	case "csv":
		csvRes, err := formatter.WriteCSVExport(j.Export, base)
		if err != nil {
			result.Error = fmt.Errorf("CSV export failed: %w", err)
			return result
		}
		result.Files = []string{csvRes.TracksFile, csvRes.MetadataFile}

	case "markdown":
		mdRes, err := formatter.WriteMarkdownExport(j.Export, base, e.coverArt(ctx, limiter, j.Export, opts.CoverSize))
		if err != nil {
			result.Error = fmt.Errorf("markdown export failed: %w", err)
			return result
		}
		result.Files = mdRes.Files

	case "txt":
		path, err := formatter.WriteTextExport(j.Export, base+"_tracks.txt")
		if err != nil {
			result.Error = fmt.Errorf("text export failed: %w", err)
			return result
		}
		result.Files = []string{path}

	case "json":
		path, err := formatter.WriteJSONExport(j.Export, base+".json")
		if err != nil {
			result.Error = fmt.Errorf("JSON export failed: %w", err)
			return result
		}
		result.Files = []string{path}

	case "m3u":
		path, err := formatter.WriteM3UExport(j.Export, base+".m3u")
		if err != nil {
			result.Error = fmt.Errorf("M3U export failed: %w", err)
			return result
		}
		result.Files = []string{path}

	default:
		result.Error = fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidInput, opts.Format)
		return result
	}

	result.Success = true
	return result
}

// coverArt fetches the playlist cover, or nil when the playlist has none or the fetch fails.
func (e *PlaylistEngine) coverArt(ctx context.Context, limiter *rate.Limiter, export *formatter.PlaylistExport, size int) []byte {
	id := export.Playlist.CoverArt
	if id == "" {
		return nil
	}
	if err := limiter.Wait(ctx); err != nil {
		return nil
	}
	data, err := e.library.GetCoverArt(ctx, id, size)
	if err != nil {
		e.logger.Warn("cover art unavailable", "playlist", export.Playlist.Name, "err", err)
		return nil
	}
	return data
}
