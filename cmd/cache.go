package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/sonicsync/internal/models"
	"github.com/desertthunder/sonicsync/internal/repositories"
	"github.com/desertthunder/sonicsync/internal/shared"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// CacheRuns lists recent sync runs, newest first.
func (r *Runner) CacheRuns(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	runs, err := repositories.NewSyncRunRepository(db).List(map[string]any{
		"playlist_name": cmd.String("playlist"),
		"status":        cmd.String("status"),
		"limit":         int(cmd.Int("limit")),
	})
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		r.writePlain("No sync runs recorded\n")
		return nil
	}

	r.writePlainHeader(fmt.Sprintf("Sync Runs (%d)", len(runs)))
	for _, run := range runs {
		r.writePlain("#%-4d %-10s %s (%s)\n", run.Sequence(), run.Status, run.PlaylistName, humanize.Time(run.CreatedAt()))
		r.writePlain("      %d tracks • %d uploaded • %d linked • %d failed", run.TracksTotal, run.TracksUploaded, run.TracksLinked, run.TracksFailed)
		if run.Done() {
			r.writePlain(" • took %s", run.Duration().Round(time.Second))
		}
		r.writePlain("\n")
		if run.Status == models.SyncFailed && run.ErrorMessage != "" {
			r.writePlain("      error: %s\n", run.ErrorMessage)
		}
	}
	return nil
}

// CacheUploads lists the tracks the ledger remembers as uploaded to the station.
func (r *Runner) CacheUploads(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	uploads, err := repositories.NewUploadRepository(db).List(map[string]any{
		"artist": cmd.String("artist"),
		"album":  cmd.String("album"),
	})
	if err != nil {
		return err
	}

	r.writePlainHeader(fmt.Sprintf("Uploads (%s)", humanize.Comma(int64(len(uploads)))))
	for _, u := range uploads {
		r.writePlain("%s - %s → %s [media %s, %s]\n", u.Artist, u.Title, u.Path, u.MediaID, humanize.Time(u.CreatedAt()))
	}
	return nil
}

// CacheMetadata lists cached enrichment results.
func (r *Runner) CacheMetadata(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	entries, err := repositories.NewMetadataRepository(db).List(map[string]any{
		"artist": cmd.String("artist"),
		"genre":  cmd.String("genre"),
		"source": cmd.String("source"),
	})
	if err != nil {
		return err
	}

	r.writePlainHeader(fmt.Sprintf("Metadata Cache (%d)", len(entries)))
	for _, m := range entries {
		r.writePlain("%-12s %s - %s", m.Source, m.Artist, m.Title)
		if m.Genre != "" {
			r.writePlain(" • %s", m.Genre)
		}
		if m.BPM != nil {
			r.writePlain(" • %.0f bpm", *m.BPM)
		}
		if m.Country != "" {
			r.writePlain(" • %s", m.Country)
		}
		r.writePlain("\n")
	}
	return nil
}

// CacheForget drops the cached metadata of one track so the next sync looks it up again.
func (r *Runner) CacheForget(ctx context.Context, cmd *cli.Command) error {
	trackID := cmd.StringArg("track")
	if trackID == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	db, err := r.database()
	if err != nil {
		return err
	}

	repo := repositories.NewMetadataRepository(db)
	entry, err := repo.GetByTrackID(trackID)
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: no cached metadata for %s", shared.ErrCacheMiss, trackID)
	} else if err != nil {
		return err
	}

	if err := repo.Delete(entry.ID()); err != nil {
		return err
	}
	r.writePlain("✓ Forgot metadata for %s - %s\n", entry.Artist, entry.Title)
	return nil
}

// cacheCommand inspects the local sync history, upload ledger and metadata cache.
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect local sync history and caches",
		Commands: []*cli.Command{
			{
				Name:  "runs",
				Usage: "List recent sync runs",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "playlist", Usage: "Only runs for this station playlist"},
					&cli.StringFlag{Name: "status", Usage: "Only runs with this status (pending, running, completed, failed)"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum number of runs", Value: 20},
				},
				Action: r.CacheRuns,
			},
			{
				Name:  "uploads",
				Usage: "List tracks uploaded to the station",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "artist", Usage: "Filter by artist"},
					&cli.StringFlag{Name: "album", Usage: "Filter by album"},
				},
				Action: r.CacheUploads,
			},
			{
				Name:  "metadata",
				Usage: "List cached track metadata",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "artist", Usage: "Filter by artist"},
					&cli.StringFlag{Name: "genre", Usage: "Filter by genre"},
					&cli.StringFlag{Name: "source", Usage: "Filter by source (lastfm, tags, none)"},
				},
				Action: r.CacheMetadata,
			},
			{
				Name:      "forget",
				Usage:     "Drop cached metadata for a track",
				Arguments: []cli.Argument{&cli.StringArg{Name: "track"}},
				Action:    r.CacheForget,
			},
		},
	}
}
