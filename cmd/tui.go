package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/sonicsync/internal/shared"
	"github.com/desertthunder/sonicsync/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive library browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	client, err := r.libraryClient()
	if err != nil {
		return err
	}

	dir := cmd.String("download-dir")
	if dir == "" {
		dir = r.cfg().Sync.DownloadDir
	}

	p := tea.NewProgram(ui.NewModel(ctx, client, dir), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// tuiCommand returns the top-level TUI command for browsing the library.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"browse", "ui"},
		Usage:   "Browse artists, albums and tracks and download files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "download-dir",
				Usage: "Directory for downloaded tracks (default: [sync] download_dir)",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the interface is open",
				Value: "./tmp/sonicsync-tui.log",
			},
		},
		Action: r.TUI,
	}
}
