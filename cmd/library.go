package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/sonicsync/internal/formatter"
	"github.com/desertthunder/sonicsync/internal/shared"
	"github.com/desertthunder/sonicsync/internal/subsonic"
	"github.com/desertthunder/sonicsync/internal/tools"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// Ping checks the connection and credentials and reports what the server advertises.
func (r *Runner) Ping(ctx context.Context, cmd *cli.Command) error {
	client, err := r.libraryClient()
	if err != nil {
		return err
	}

	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	info := client.Capabilities()
	if cmd.Bool("json") {
		return r.writeJSON(info, true)
	}

	r.writePlain("✓ Connected to %s\n", client.Config().URL)
	r.writePlain("  API version:  %s\n", info.Version)
	if info.Type != "" {
		r.writePlain("  Server:       %s %s\n", info.Type, info.ServerVersion)
	}
	r.writePlain("  OpenSubsonic: %v\n", info.OpenSubsonic)
	if len(info.Extensions) > 0 {
		names := make([]string, len(info.Extensions))
		for i, ext := range info.Extensions {
			names[i] = ext.Name
		}
		r.writePlain("  Extensions:   %s\n", strings.Join(names, ", "))
	}
	return nil
}

// Search runs a track search, optionally saving the results as an M3U playlist.
// An empty query returns random tracks.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")

	limit := int(cmd.Int("limit"))
	genres := cmd.StringSlice("genre")

	if path := cmd.String("m3u"); path != "" {
		engine, err := r.engine(false)
		if err != nil {
			return err
		}
		res, err := engine.ExportSearch(ctx, query, limit, genres, path)
		if err != nil {
			return err
		}
		r.writePlain("✓ Saved %d tracks to %s\n", len(res.Export.Tracks), res.Path)
		return nil
	}

	client, err := r.libraryClient()
	if err != nil {
		return err
	}
	tracks, err := client.SearchTracks(ctx, query, limit, genres)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(tools.Summarize(tracks), cmd.Bool("pretty"))
	}

	if len(tracks) == 0 {
		r.writePlain("No tracks found for %q\n", query)
		return nil
	}
	r.writeTracks(tracks)
	return nil
}

// Playlists lists the server's playlists.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	client, err := r.libraryClient()
	if err != nil {
		return err
	}

	playlists, err := client.GetPlaylists(ctx, cmd.String("owner"))
	if err != nil {
		return fmt.Errorf("failed to list playlists: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Playlists (%d)", len(playlists)))
	for _, p := range playlists {
		r.writePlain("%-24s %s\n", p.ID, p.Name)
		r.writePlain("%-24s %s tracks • %s • %s", "", humanize.Comma(int64(p.SongCount)), shared.FormatDuration(p.Duration), shared.VisibilityString(p.Public))
		if !p.Changed.IsZero() {
			r.writePlain(" • updated %s", humanize.Time(p.Changed))
		}
		r.writePlain("\n")
	}
	return nil
}

// Curate builds a track list for a free-form prompt with the tool-backed curator.
func (r *Runner) Curate(ctx context.Context, cmd *cli.Command) error {
	prompt := cmd.StringArg("prompt")
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("%w: curation prompt", shared.ErrMissingArgument)
	}

	client, err := r.libraryClient()
	if err != nil {
		return err
	}

	toolbox := tools.NewToolbox(client, tools.WithLogger(r.logger))
	curator := tools.NewSearchCurator(toolbox, cmd.StringSlice("genre")...)

	tracks, err := tools.Curate(ctx, curator, client, prompt, int(cmd.Int("count")))
	if err != nil {
		return err
	}
	if len(tracks) == 0 {
		return fmt.Errorf("%w: nothing matched %q", shared.ErrTrackNotFound, prompt)
	}

	if cmd.Bool("json") {
		return r.writeJSON(tools.Summarize(tracks), true)
	}
	r.writeTracks(tracks)

	if path := cmd.String("m3u"); path != "" {
		written, err := formatter.WriteM3UExport(formatter.NewTrackExport(prompt, tracks), path)
		if err != nil {
			return err
		}
		r.writePlain("\n✓ Saved to %s\n", written)
	}

	if name := cmd.String("create"); name != "" {
		ids := make([]string, len(tracks))
		for i, t := range tracks {
			ids[i] = t.ID
		}
		p, err := client.CreatePlaylist(ctx, name, ids)
		if err != nil {
			return fmt.Errorf("failed to create playlist: %w", err)
		}
		r.writePlain("\n✓ Created playlist %s (%d tracks)\n", p.Name, p.SongCount)
	}
	return nil
}

// ToolsList prints the tool definitions offered to a model.
func (r *Runner) ToolsList(ctx context.Context, cmd *cli.Command) error {
	return r.writeJSON(tools.Definitions(), true)
}

// ToolsCall invokes one tool with JSON arguments and prints the JSON result.
func (r *Runner) ToolsCall(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: tool name", shared.ErrMissingArgument)
	}

	args, err := decodeJSONArg(cmd.String("args"))
	if err != nil {
		return err
	}

	client, err := r.libraryClient()
	if err != nil {
		return err
	}

	if d := cmd.Duration("timeout"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	out, err := tools.NewToolbox(client, tools.WithLogger(r.logger)).CallJSON(ctx, name, args)
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", out)
}

func (r *Runner) writeTracks(tracks []subsonic.Track) {
	for i, t := range tracks {
		r.writePlain("%3d. %s - %s", i+1, t.Artist, t.Title)
		if t.Album != "" {
			r.writePlain(" (%s)", t.Album)
		}
		r.writePlain(" [%s] %s\n", shared.FormatDuration(t.Duration), t.ID)
	}
}
