package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sonicsync/internal/audio"
	"github.com/desertthunder/sonicsync/internal/azuracast"
	"github.com/desertthunder/sonicsync/internal/enhancer"
	"github.com/desertthunder/sonicsync/internal/repositories"
	"github.com/desertthunder/sonicsync/internal/shared"
	"github.com/desertthunder/sonicsync/internal/subsonic"
	"github.com/desertthunder/sonicsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The Subsonic client, station client and database are built on first use from the loaded config,
// so commands such as setup work without a reachable server.
type Runner struct {
	config     *shared.Config
	configPath string
	library    *subsonic.Client
	station    azuracast.Client
	db         *sql.DB
	ownsDB     bool
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	getenv     func(string) string
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Library    *subsonic.Client
	Station    azuracast.Client
	DB         *sql.DB
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Getenv     func(string) string
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		library:    opts.Library,
		station:    opts.Station,
		db:         opts.DB,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		getenv:     opts.Getenv,
	}
}

func (r *Runner) flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
			Sources: cli.EnvVars("SONICSYNC_CONFIG"),
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable debug logging",
		},
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, pingCommand, searchCommand, playlistsCommand, exportCommand, bulkExportCommand,
		syncCommand, watchCommand, curateCommand, toolsCommand, serveCommand, cacheCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the configuration named by --config, falling back to defaults when the file is missing,
// and applies environment overrides and the log level.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" && r.configPath == "" {
		r.configPath = path
	}

	if r.config == nil {
		cfg, err := r.loadConfig()
		if err != nil {
			return ctx, err
		}
		r.config = cfg
	}
	r.config.ApplyEnv(r.getenv)

	level := shared.ParseLogLevel(r.config.Log.Level)
	if cmd.Bool("verbose") {
		level = log.DebugLevel
	}
	shared.SetLogLevel(r.logger, level)
	return ctx, nil
}

// After releases the database opened during the command.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	if r.db != nil && r.ownsDB {
		if err := r.db.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
		r.db = nil
	}
	return nil
}

func (r *Runner) loadConfig() (*shared.Config, error) {
	if r.configPath == "" {
		return shared.DefaultConfig(), nil
	}
	if _, err := os.Stat(r.configPath); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		return shared.DefaultConfig(), nil
	}
	cfg, err := shared.LoadConfig(r.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", r.configPath, err)
	}
	return cfg, nil
}

// SetLogger replaces the logger used by the runner and the clients it builds afterwards.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) cfg() *shared.Config {
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}
	return r.config
}

// libraryClient returns the Subsonic client, building it from the [subsonic] section on first use.
func (r *Runner) libraryClient() (*subsonic.Client, error) {
	if r.library != nil {
		return r.library, nil
	}

	sc := r.cfg().Subsonic
	c, err := subsonic.NewClient(
		subsonic.NewConfig(sc),
		subsonic.WithLogger(r.logger),
		subsonic.WithTransport(subsonic.NewTransportConfig(sc)),
		subsonic.WithRateLimit(sc.RateLimit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Subsonic client: %w", err)
	}
	r.library = c
	return c, nil
}

// stationClient returns the AzuraCast client, building it from the [azuracast] section on first use.
func (r *Runner) stationClient() (azuracast.Client, error) {
	if r.station != nil {
		return r.station, nil
	}

	c, err := azuracast.NewHTTPClient(r.cfg().AzuraCast, r.httpClient, r.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, err)
	}
	r.station = c
	return c, nil
}

// database opens the configured database and applies pending migrations on first use.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.OpenDatabase(r.cfg().Database)
	if err != nil {
		return nil, err
	}
	r.db, r.ownsDB = db, true
	return db, nil
}

// engine wires the playlist engine. Exports only need the library; withStation adds the station,
// the upload ledger, run history and metadata enhancement used by sync. A database that cannot be
// opened only disables the persistence layers.
func (r *Runner) engine(withStation bool) (*tasks.PlaylistEngine, error) {
	library, err := r.libraryClient()
	if err != nil {
		return nil, err
	}

	opts := []tasks.EngineOption{tasks.WithLogger(r.logger), tasks.WithSyncConfig(r.cfg().Sync)}

	if !withStation {
		return tasks.NewPlaylistEngine(library, opts...), nil
	}

	station, err := r.stationClient()
	if err != nil {
		return nil, err
	}
	opts = append(opts, tasks.WithStation(station))

	if db, err := r.database(); err != nil {
		r.logger.Warn("database unavailable, upload ledger and run history disabled", "err", err)
	} else {
		opts = append(opts,
			tasks.WithLedger(repositories.NewUploadLedger(repositories.NewUploadRepository(db))),
			tasks.WithRunRecorder(repositories.NewSyncRunRepository(db)),
		)
		if lookup, err := enhancer.NewLastFMClient(r.cfg().LastFM, r.httpClient); err == nil {
			en := enhancer.NewCachedEnhancer(repositories.NewMetadataRepository(db), lookup, r.logger)
			opts = append(opts, tasks.WithEnhancer(en, audio.NewTagger()))
		} else {
			r.logger.Debug("metadata enhancement disabled", "err", err)
		}
	}

	return tasks.NewPlaylistEngine(library, opts...), nil
}

// printProgress drains progress until it is closed, writing each message on its own line.
func (r *Runner) printProgress(progress <-chan tasks.ProgressUpdate, done chan<- struct{}) {
	defer close(done)
	last := tasks.Phase(-1)
	for update := range progress {
		if update.Phase != last && update.Step <= 1 {
			r.writePlain("\n")
			last = update.Phase
		}
		r.writePlain("  %s\n", update.Message)
	}
}

// withProgress runs fn with a progress channel that is printed as updates arrive.
func (r *Runner) withProgress(fn func(chan<- tasks.ProgressUpdate) error) error {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go r.printProgress(progress, done)

	err := fn(progress)
	close(progress)
	<-done
	return err
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	rule := strings.Repeat("═", 39)
	r.writePlain("%s\n%v\n%s\n", rule, title, rule)
}

// decodeJSONArg parses a JSON flag value, treating an empty string as an empty object.
func decodeJSONArg(s string) (json.RawMessage, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return json.RawMessage(`{}`), nil
	}
	if !json.Valid([]byte(s)) {
		return nil, fmt.Errorf("%w: arguments are not valid JSON", shared.ErrInvalidArgument)
	}
	return json.RawMessage(s), nil
}
