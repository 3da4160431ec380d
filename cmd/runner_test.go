package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sonicsync/internal/models"
	"github.com/desertthunder/sonicsync/internal/repositories"
	"github.com/desertthunder/sonicsync/internal/shared"
	"github.com/desertthunder/sonicsync/internal/subsonic"
	tu "github.com/desertthunder/sonicsync/internal/testing"
)

func noEnv(string) string { return "" }

func newTestLibrary(t *testing.T, srv *tu.SubsonicServer) *subsonic.Client {
	t.Helper()
	c, err := subsonic.NewClient(
		subsonic.Config{URL: srv.URL, Username: "alice", Password: "sesame"},
		subsonic.WithHTTPClient(srv.Client()),
		subsonic.WithLogger(log.New(io.Discard)),
	)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c
}

// newTestRunner wires a runner to the fixture server with default config and captured output.
func newTestRunner(t *testing.T, srv *tu.SubsonicServer) (*Runner, *bytes.Buffer) {
	t.Helper()
	output := &bytes.Buffer{}
	opts := RunnerOpts{
		Config: shared.DefaultConfig(),
		Logger: log.New(io.Discard),
		Output: output,
		Getenv: noEnv,
	}
	if srv != nil {
		opts.Library = newTestLibrary(t, srv)
	}
	return NewRunner(opts), output
}

func run(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	return newApp(r).Run(context.Background(), append([]string{"sonicsync"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			db := tu.NewTestDB(t)

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				DB:         db,
			})

			if runner.config != config || runner.logger != logger || runner.output != output {
				t.Error("expected config, logger and output to be set")
			}
			if runner.httpClient != httpClient || runner.db != db {
				t.Error("expected httpClient and db to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
			if runner.ownsDB {
				t.Error("injected databases are closed by their owner")
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
			if runner.cfg() == nil {
				t.Error("expected default config on demand")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			result := output.String()
			if !strings.Contains(result, `"key": "value"`) || !strings.HasSuffix(result, "\n") {
				t.Errorf("expected formatted JSON with newline, got %s", result)
			}
		})

		t.Run("writes compact JSON", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			runner.writeJSON(map[string]int{"n": 1}, false)
			if output.String() != "{\"n\":1}\n" {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("returns marshal errors", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})
			if err := runner.writeJSON(make(chan int), false); err == nil {
				t.Error("expected marshal error")
			}
		})

		t.Run("returns write errors", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
			if err := runner.writeJSON("x", false); err == nil {
				t.Error("expected write error")
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		runner.writePlain("a %d", 1)
		runner.writePlainln("b")
		runner.writePlainHeader("Title")

		got := output.String()
		if !strings.HasPrefix(got, "a 1\nb\n") || !strings.Contains(got, "═\nTitle\n═") {
			t.Errorf("unexpected output %q", got)
		}
	})
}

func TestRunner_Before(t *testing.T) {
	t.Run("Loads Config And Env", func(t *testing.T) {
		dir := t.TempDir()
		path := tu.WriteFile(t, dir, "config.toml", "[log]\nlevel = \"warn\"\n\n[subsonic]\nurl = \"https://music.local\"\nusername = \"bob\"\n")

		runner := NewRunner(RunnerOpts{
			Logger: log.New(io.Discard),
			Output: &bytes.Buffer{},
			Getenv: func(k string) string {
				if k == "SUBSONIC_PASSWORD" {
					return "from-env"
				}
				return ""
			},
		})

		if err := run(t, runner, "--config", path, "tools", "list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		cfg := runner.cfg()
		if cfg.Subsonic.Username != "bob" || cfg.Subsonic.Password != "from-env" {
			t.Errorf("unexpected subsonic config %+v", cfg.Subsonic)
		}
		if runner.logger.GetLevel() != log.WarnLevel {
			t.Errorf("expected warn level, got %v", runner.logger.GetLevel())
		}
	})

	t.Run("Missing File Uses Defaults", func(t *testing.T) {
		out := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Logger: log.New(io.Discard), Output: out, Getenv: noEnv})

		if err := run(t, runner, "-c", filepath.Join(t.TempDir(), "nope.toml"), "--verbose", "tools", "list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if strings.Contains(out.String(), "sonicsync version") {
			t.Errorf("--verbose should not print the version, got %q", out.String())
		}
		if runner.cfg().Server.Port != shared.DefaultConfig().Server.Port {
			t.Error("expected default config")
		}
		if runner.logger.GetLevel() != log.DebugLevel {
			t.Errorf("expected debug level with --verbose, got %v", runner.logger.GetLevel())
		}
	})

	t.Run("Short Version Flag", func(t *testing.T) {
		out := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Logger: log.New(io.Discard), Output: out, Getenv: noEnv})

		if err := run(t, runner, "-v"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out.String(), "0.1.0") {
			t.Errorf("expected version output, got %q", out.String())
		}
		if runner.logger.GetLevel() == log.DebugLevel {
			t.Error("-v should not enable debug logging")
		}
	})

	t.Run("Invalid File", func(t *testing.T) {
		path := tu.WriteFile(t, t.TempDir(), "config.toml", "[subsonic\n")
		runner := NewRunner(RunnerOpts{Logger: log.New(io.Discard), Output: &bytes.Buffer{}, Getenv: noEnv})

		if err := run(t, runner, "-c", path, "tools", "list"); err == nil {
			t.Error("expected config error")
		}
	})
}

func TestRunner_Clients(t *testing.T) {
	t.Run("Subsonic Config Errors", func(t *testing.T) {
		runner, _ := newTestRunner(t, nil)
		runner.config.Subsonic.URL = "music.local"

		if _, err := runner.libraryClient(); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected invalid config, got %v", err)
		}
	})

	t.Run("Station Requires Credentials", func(t *testing.T) {
		runner, _ := newTestRunner(t, nil)

		if _, err := runner.stationClient(); !errors.Is(err, shared.ErrServiceUnavailable) || !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected unavailable station, got %v", err)
		}
	})

	t.Run("Database Is Opened Once", func(t *testing.T) {
		runner, _ := newTestRunner(t, nil)
		runner.config.Database.Path = filepath.Join(t.TempDir(), "test.db")

		first, err := runner.database()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		second, _ := runner.database()
		if first != second || !runner.ownsDB {
			t.Error("expected a single owned database")
		}
		if err := runner.After(context.Background(), nil); err != nil || runner.db != nil {
			t.Errorf("expected database closed, got %v", err)
		}
	})
}

func TestDecodeJSONArg(t *testing.T) {
	if got, err := decodeJSONArg("  "); err != nil || string(got) != "{}" {
		t.Errorf("expected empty object, got %s, %v", got, err)
	}
	if got, err := decodeJSONArg(`{"query":"air"}`); err != nil || string(got) != `{"query":"air"}` {
		t.Errorf("unexpected result %s, %v", got, err)
	}
	if _, err := decodeJSONArg("{nope"); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected invalid argument, got %v", err)
	}
}

func TestCacheRuns(t *testing.T) {
	db := tu.NewTestDB(t)
	repo := repositories.NewSyncRunRepository(db)

	done := models.NewSyncRun(0, "Morning", "morning.m3u")
	done.Start(3)
	done.TracksUploaded, done.TracksLinked = 1, 3
	done.Complete()
	if err := repo.Create(done); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	failed := models.NewSyncRun(0, "Night", "night.m3u")
	failed.Start(2)
	failed.Fail(errors.New("station unreachable"))
	if err := repo.Create(failed); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{Config: shared.DefaultConfig(), DB: db, Logger: log.New(io.Discard), Output: output, Getenv: noEnv})

	if err := run(t, runner, "cache", "runs"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	got := output.String()
	for _, want := range []string{"Sync Runs (2)", "Morning", "3 tracks • 1 uploaded • 3 linked", "error: station unreachable"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output:\n%s", want, got)
		}
	}

	output.Reset()
	if err := run(t, runner, "cache", "runs", "--status", "completed"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if strings.Contains(output.String(), "Night") {
		t.Error("expected status filter to drop failed runs")
	}
}

func TestCacheMetadata(t *testing.T) {
	db := tu.NewTestDB(t)
	repo := repositories.NewMetadataRepository(db)

	bpm := 96.0
	m := models.NewCachedMetadata("t-1", "Air", "Kelly Watch the Stars")
	m.Genre, m.BPM, m.Source = "electronic", &bpm, models.SourceLastFM
	if err := repo.Create(m); err != nil {
		t.Fatalf("failed to create metadata: %v", err)
	}

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{Config: shared.DefaultConfig(), DB: db, Logger: log.New(io.Discard), Output: output, Getenv: noEnv})

	if err := run(t, runner, "cache", "metadata", "--artist", "Air"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := output.String(); !strings.Contains(got, "Kelly Watch the Stars • electronic • 96 bpm") {
		t.Errorf("unexpected output %s", got)
	}

	if err := run(t, runner, "cache", "forget", "t-1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := repo.GetByTrackID("t-1"); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("expected metadata to be forgotten, got %v", err)
	}
	if err := run(t, runner, "cache", "forget", "t-1"); !errors.Is(err, shared.ErrCacheMiss) {
		t.Errorf("expected cache miss, got %v", err)
	}
}

func TestSetup(t *testing.T) {
	t.Run("Config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		runner, output := newTestRunner(t, nil)
		runner.configPath = path

		if err := run(t, runner, "setup", "config"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, path)
		if !strings.Contains(output.String(), "Configuration written") {
			t.Errorf("unexpected output %s", output.String())
		}

		if err := run(t, runner, "setup", "config"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected refusal to overwrite, got %v", err)
		}
		if err := os.WriteFile(path, []byte("stale"), 0600); err != nil {
			t.Fatal(err)
		}
		if err := run(t, runner, "setup", "config", "--force"); err != nil {
			t.Errorf("expected overwrite with --force, got %v", err)
		}
		if got := tu.MustReadFile(t, path); got == "stale" {
			t.Error("expected --force to replace the existing file")
		}
	})

	t.Run("Database", func(t *testing.T) {
		runner, output := newTestRunner(t, nil)
		runner.config.Database.Path = filepath.Join(t.TempDir(), "sonicsync.db")

		if err := run(t, runner, "setup", "database"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, runner.config.Database.Path)
		if !strings.Contains(output.String(), "[✓] 001") {
			t.Errorf("expected applied migrations, got %s", output.String())
		}
	})
}
