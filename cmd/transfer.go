package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/sonicsync/internal/shared"
	"github.com/desertthunder/sonicsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Export writes one Subsonic playlist to an M3U file.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	idOrName := cmd.StringArg("playlist")
	if idOrName == "" {
		return fmt.Errorf("%w: playlist id or name", shared.ErrMissingArgument)
	}

	engine, err := r.engine(false)
	if err != nil {
		return err
	}

	var result *tasks.ExportResult
	err = r.withProgress(func(progress chan<- tasks.ProgressUpdate) error {
		var err error
		result, err = engine.ExportM3U(ctx, progress, idOrName, cmd.String("output"))
		return err
	})
	if err != nil {
		return err
	}

	r.writePlainln("✓ Exported %s (%d tracks, %s) to %s",
		result.Export.Playlist.Name, len(result.Export.Tracks), shared.FormatDuration(result.Export.Playlist.Duration), result.Path)
	return nil
}

// BulkExport exports several playlists, or all of them, in one format.
func (r *Runner) BulkExport(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.StringSlice("id")
	if len(ids) == 0 && !cmd.Bool("all") {
		return fmt.Errorf("%w: pass --id at least once or --all", shared.ErrMissingArgument)
	}

	engine, err := r.engine(false)
	if err != nil {
		return err
	}

	opts := tasks.BulkExportOpts{
		Format:     strings.ToLower(cmd.String("format")),
		OutputDir:  cmd.String("output-dir"),
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  cmd.Float("rate-limit"),
		CoverSize:  int(cmd.Int("cover-size")),
	}

	var result *tasks.BulkExportResult
	err = r.withProgress(func(progress chan<- tasks.ProgressUpdate) error {
		var err error
		result, err = engine.BulkExport(ctx, progress, ids, opts)
		return err
	})
	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Bulk Export Complete")
	r.writePlain("Exported:  %d/%d playlists\n", result.SuccessfulExports, result.TotalPlaylists)
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Manifest:  %s\n", result.ManifestPath)

	if result.FailedExports > 0 {
		r.writePlain("\nFailed %d playlists:\n", result.FailedExports)
		for _, res := range result.Results {
			if !res.Success {
				r.writePlain("  - %s: %v\n", res.PlaylistName, res.Error)
			}
		}
	}
	return nil
}

func (r *Runner) syncOptions(cmd *cli.Command) tasks.SyncOptions {
	return tasks.SyncOptions{
		PlaylistName: cmd.String("name"),
		Workers:      int(cmd.Int("workers")),
		RateLimit:    cmd.Float("rate-limit"),
		Clear:        cmd.Bool("clear"),
		DryRun:       cmd.Bool("dry-run"),
	}
}

// Sync mirrors an M3U file into a station playlist.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("file")
	if path == "" {
		return fmt.Errorf("%w: m3u file", shared.ErrMissingArgument)
	}

	engine, err := r.engine(true)
	if err != nil {
		return err
	}

	opts := r.syncOptions(cmd)
	r.logger.Info("starting sync", "file", path, "dry_run", opts.DryRun)

	var result *tasks.SyncResult
	err = r.withProgress(func(progress chan<- tasks.ProgressUpdate) error {
		var err error
		result, err = engine.SyncM3U(ctx, progress, path, opts)
		return err
	})
	if err != nil {
		return err
	}

	r.writeSyncSummary(result, opts.DryRun)
	return nil
}

func (r *Runner) writeSyncSummary(result *tasks.SyncResult, dryRun bool) {
	title := "Sync Complete"
	if dryRun {
		title = "Dry Run Complete"
	}

	r.writePlain("\n")
	r.writePlainHeader(title)
	if result.Run != nil {
		r.writePlain("Playlist: %s\n", result.Run.PlaylistName)
		r.writePlain("Duration: %s\n", result.Run.Duration().Round(time.Millisecond))
	}
	r.writePlain("Tracks:   %d\n", len(result.Tracks))
	if dryRun {
		r.writePlain("To upload: %d\n", result.Uploaded)
	} else {
		r.writePlain("Uploaded: %d\n", result.Uploaded)
		r.writePlain("Linked:   %d\n", result.Linked)
	}

	if result.Failed > 0 {
		r.writePlain("\nFailed %d tracks:\n", result.Failed)
		for _, res := range result.Tracks {
			if res.Err != nil {
				r.writePlain("  - %s: %v\n", res.Label(), res.Err)
			}
		}
	}
}

// Watch syncs every M3U file written to a directory until interrupted.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.StringArg("dir")
	if dir == "" {
		dir = r.cfg().Sync.PlaylistDir
	}
	if dir == "" {
		return fmt.Errorf("%w: playlist directory", shared.ErrMissingArgument)
	}

	engine, err := r.engine(true)
	if err != nil {
		return err
	}

	watcher := tasks.NewWatcher(dir, engine, r.syncOptions(cmd))
	if d := cmd.Duration("debounce"); d > 0 {
		watcher = watcher.WithDebounce(d)
	}

	abs, _ := filepath.Abs(dir)
	r.writePlain("Watching %s for playlist changes (Ctrl+C to stop)\n", abs)
	r.logger.Info("watching playlists", "dir", abs)

	err = r.withProgress(func(progress chan<- tasks.ProgressUpdate) error {
		return watcher.Run(ctx, progress)
	})
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
