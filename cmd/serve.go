package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/sonicsync/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP feed server until the context is canceled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	client, err := r.libraryClient()
	if err != nil {
		return err
	}

	cfg := r.cfg().Server
	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = int(cmd.Int("port"))
	}
	if cfg.Token == "" {
		r.logger.Warn("server token is empty, playlist feeds are readable by anyone who can reach the server")
	}

	srv := server.New(cfg, client, r.logger)
	r.writePlain("Serving playlists on http://%s (Ctrl+C to stop)\n", srv.Addr())

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve health and M3U playlist feeds over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "Listen host (default: [server] host)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Listen port (default: [server] port)"},
		},
		Action: r.Serve,
	}
}
