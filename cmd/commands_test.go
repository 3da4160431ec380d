package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/sonicsync/internal/shared"
	"github.com/desertthunder/sonicsync/internal/tools"
	tu "github.com/desertthunder/sonicsync/internal/testing"
)

func searchFixture(srv *tu.SubsonicServer) {
	srv.OK("search3", map[string]any{"searchResult3": map[string]any{"song": []any{
		tu.Song("1", "Teardrop", "Massive Attack", "Mezzanine", "Trip-Hop"),
		tu.Song("2", "Glory Box", "Portishead", "Dummy", "Trip-Hop"),
	}}})
}

func TestPing(t *testing.T) {
	srv := tu.NewSubsonicServer(t)
	srv.OK("ping", nil)
	runner, output := newTestRunner(t, srv)

	if err := run(t, runner, "ping"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	got := output.String()
	if !strings.Contains(got, "✓ Connected to "+srv.URL) || !strings.Contains(got, "navidrome 0.53.0") {
		t.Errorf("unexpected output %s", got)
	}

	t.Run("Failure", func(t *testing.T) {
		srv := tu.NewSubsonicServer(t)
		srv.Fail("ping", 40, "Wrong username or password")
		runner, _ := newTestRunner(t, srv)

		if err := run(t, runner, "ping"); err == nil || !strings.Contains(err.Error(), "ping failed") {
			t.Errorf("expected ping failure, got %v", err)
		}
	})
}

func TestSearch(t *testing.T) {
	t.Run("Plain", func(t *testing.T) {
		srv := tu.NewSubsonicServer(t)
		searchFixture(srv)
		runner, output := newTestRunner(t, srv)

		if err := run(t, runner, "search", "trip", "--limit", "5"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		got := output.String()
		if !strings.Contains(got, "1. Massive Attack - Teardrop (Mezzanine) [3:35] 1") {
			t.Errorf("unexpected output %s", got)
		}
		if q := srv.Calls("search3")[0]; q.Get("query") != "trip" || q.Get("songCount") != "5" {
			t.Errorf("unexpected search params %v", q)
		}
	})

	t.Run("JSON", func(t *testing.T) {
		srv := tu.NewSubsonicServer(t)
		searchFixture(srv)
		runner, output := newTestRunner(t, srv)

		if err := run(t, runner, "search", "trip", "--genre", "trip", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		var got []tools.TrackSummary
		if err := json.Unmarshal(output.Bytes(), &got); err != nil {
			t.Fatalf("expected JSON output, got %v", err)
		}
		if len(got) != 2 || got[1].Title != "Glory Box" {
			t.Errorf("unexpected summaries %+v", got)
		}
	})

	t.Run("Saves M3U", func(t *testing.T) {
		srv := tu.NewSubsonicServer(t)
		searchFixture(srv)
		runner, output := newTestRunner(t, srv)
		path := filepath.Join(t.TempDir(), "trip.m3u")

		if err := run(t, runner, "search", "trip", "--m3u", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Saved 2 tracks") {
			t.Errorf("unexpected output %s", output.String())
		}
		if got := tu.MustReadFile(t, path); !strings.HasPrefix(got, "#EXTM3U") || !strings.Contains(got, "Teardrop") {
			t.Errorf("unexpected playlist %s", got)
		}
	})
}

func TestPlaylists(t *testing.T) {
	srv := tu.NewSubsonicServer(t)
	srv.OK("getPlaylists", map[string]any{"playlists": map[string]any{"playlist": []any{
		map[string]any{"id": "pl-1", "name": "Morning", "songCount": 1200, "duration": 4000, "public": true},
	}}})
	runner, output := newTestRunner(t, srv)

	if err := run(t, runner, "playlists"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	got := output.String()
	for _, want := range []string{"Playlists (1)", "Morning", "1,200 tracks • 1:06:40 • Public"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output:\n%s", want, got)
		}
	}
}

func TestExport(t *testing.T) {
	srv := tu.NewSubsonicServer(t)
	srv.OK("getPlaylist", map[string]any{"playlist": map[string]any{
		"id": "pl-1", "name": "Morning", "songCount": 2, "duration": 430,
		"entry": []any{tu.Song("1", "Teardrop", "Massive Attack", "Mezzanine", "Trip-Hop"), tu.Song("2", "Roads", "Portishead", "Dummy", "Trip-Hop")},
	}})
	runner, output := newTestRunner(t, srv)
	path := filepath.Join(t.TempDir(), "morning.m3u")

	if err := run(t, runner, "export", "pl-1", "-o", path); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := output.String(); !strings.Contains(got, "Found playlist: Morning (2 tracks)") || !strings.Contains(got, "Exported Morning (2 tracks, 7:10)") {
		t.Errorf("unexpected output %s", got)
	}
	if got := tu.MustReadFile(t, path); !strings.Contains(got, "Portishead - Roads") {
		t.Errorf("unexpected playlist %s", got)
	}

	if err := run(t, runner, "export"); !errors.Is(err, shared.ErrMissingArgument) {
		t.Errorf("expected missing argument, got %v", err)
	}
}

func TestBulkExport(t *testing.T) {
	t.Run("Requires Selection", func(t *testing.T) {
		runner, _ := newTestRunner(t, tu.NewSubsonicServer(t))
		if err := run(t, runner, "bulk-export"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected missing argument, got %v", err)
		}
	})

	t.Run("Writes Manifest", func(t *testing.T) {
		srv := tu.NewSubsonicServer(t)
		srv.OK("getPlaylist", map[string]any{"playlist": map[string]any{
			"id": "pl-1", "name": "Morning", "songCount": 1,
			"entry": []any{tu.Song("1", "Teardrop", "Massive Attack", "Mezzanine", "Trip-Hop")},
		}})
		runner, output := newTestRunner(t, srv)
		dir := t.TempDir()

		if err := run(t, runner, "bulk-export", "--id", "pl-1", "--format", "json", "-o", dir); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := output.String(); !strings.Contains(got, "Exported:  1/1 playlists") {
			t.Errorf("unexpected output %s", got)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "export_manifest.json"))
	})
}

func TestSync_RequiresStation(t *testing.T) {
	runner, _ := newTestRunner(t, tu.NewSubsonicServer(t))
	path := tu.WriteFile(t, t.TempDir(), "morning.m3u", "#EXTM3U\n")

	if err := run(t, runner, "sync", path); !errors.Is(err, shared.ErrServiceUnavailable) {
		t.Errorf("expected unavailable station, got %v", err)
	}
	if err := run(t, runner, "sync"); !errors.Is(err, shared.ErrMissingArgument) {
		t.Errorf("expected missing argument, got %v", err)
	}
}

func TestCurate(t *testing.T) {
	srv := tu.NewSubsonicServer(t)
	searchFixture(srv)
	srv.OK("getRandomSongs", map[string]any{"randomSongs": map[string]any{"song": []any{
		tu.Song("3", "Roads", "Portishead", "Dummy", "Trip-Hop"),
	}}})
	srv.Handle("getSong", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		titles := map[string]string{"1": "Teardrop", "2": "Glory Box", "3": "Roads"}
		w.Header().Set("Content-Type", "application/json")
		w.Write(tu.Envelope("ok", map[string]any{"song": tu.Song(id, titles[id], "Artist "+id, "Album", "Trip-Hop")}))
	})
	srv.OK("createPlaylist", map[string]any{"playlist": map[string]any{"id": "pl-9", "name": "Rainy", "songCount": 3}})
	runner, output := newTestRunner(t, srv)
	path := filepath.Join(t.TempDir(), "rainy.m3u")

	if err := run(t, runner, "curate", "rainy trip hop", "-n", "3", "--m3u", path, "--create", "Rainy"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got := output.String()
	for _, want := range []string{"Artist 1 - Teardrop", "Artist 3 - Roads", "Created playlist Rainy (3 tracks)"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output:\n%s", want, got)
		}
	}
	tu.AssertFileExists(t, path)
	if q := srv.Calls("createPlaylist")[0]; strings.Join(q["songId"], ",") != "1,2,3" {
		t.Errorf("unexpected playlist songs %v", q["songId"])
	}

	if err := run(t, runner, "curate", " "); !errors.Is(err, shared.ErrMissingArgument) {
		t.Errorf("expected missing argument, got %v", err)
	}
}

func TestTools(t *testing.T) {
	t.Run("List", func(t *testing.T) {
		runner, output := newTestRunner(t, nil)

		if err := run(t, runner, "tools", "list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		var defs []tools.Definition
		if err := json.Unmarshal(output.Bytes(), &defs); err != nil || len(defs) != 3 {
			t.Errorf("expected 3 definitions, got %d, %v", len(defs), err)
		}
	})

	t.Run("Call", func(t *testing.T) {
		srv := tu.NewSubsonicServer(t)
		searchFixture(srv)
		runner, output := newTestRunner(t, srv)

		if err := run(t, runner, "tools", "call", tools.SearchTracks, "--args", `{"query":"trip","limit":1}`); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		var res tools.ToolResult
		if err := json.Unmarshal(output.Bytes(), &res); err != nil {
			t.Fatalf("expected JSON result, got %v", err)
		}
		if !res.OK || len(res.Tracks) != 1 || res.Tracks[0].ID != "1" {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("Unknown Tool Is A Result", func(t *testing.T) {
		runner, output := newTestRunner(t, tu.NewSubsonicServer(t))

		if err := run(t, runner, "tools", "call", "nope"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), `"unknown_tool"`) {
			t.Errorf("unexpected output %s", output.String())
		}
	})

	t.Run("Bad Arguments", func(t *testing.T) {
		runner, _ := newTestRunner(t, tu.NewSubsonicServer(t))
		if err := run(t, runner, "tools", "call", tools.SearchTracks, "-a", "{nope"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected invalid argument, got %v", err)
		}
	})
}
