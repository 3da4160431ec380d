package tasks

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/desertthunder/sonicsync/internal/audio"
	"github.com/desertthunder/sonicsync/internal/azuracast"
	"github.com/desertthunder/sonicsync/internal/enhancer"
	"github.com/desertthunder/sonicsync/internal/formatter"
	"github.com/desertthunder/sonicsync/internal/models"
	"github.com/desertthunder/sonicsync/internal/repositories"
	"github.com/desertthunder/sonicsync/internal/shared"
	"github.com/desertthunder/sonicsync/internal/subsonic"
	tu "github.com/desertthunder/sonicsync/internal/testing"
)

const morningM3U = `#EXTM3U
#EXTINF:200,Artist A - Alpha
http://music.local/rest/stream?id=1
#EXTINF:180,Artist B - Beta
2
#EXTINF:240,Artist C - Gamma
/music/c/gamma.mp3
`

func syncFixture(t *testing.T) (*fakeLibrary, *fakeStation, string) {
	t.Helper()
	lib := newFakeLibrary()
	lib.songs["1"] = track("1", "Alpha", "Artist A")
	lib.songs["2"] = track("2", "Beta", "Artist B")
	lib.search["Artist C Gamma"] = []subsonic.Track{track("9", "Gamma (Live)", "Artist C"), track("3", "Gamma", "Artist C")}

	station := newFakeStation(azuracast.Media{ID: "m-1", Title: "Alpha", Artist: "artist a", Album: "Album", Path: "music/alpha.mp3"})
	path := tu.WriteFile(t, t.TempDir(), "morning.m3u", morningM3U)
	return lib, station, path
}

func fastSync() EngineOption {
	return WithSyncConfig(shared.SyncConfig{Workers: 2, RateLimit: 1000})
}

func TestPlaylistEngine_SyncM3U(t *testing.T) {
	ctx := context.Background()

	t.Run("Uploads Missing Tracks And Links In Order", func(t *testing.T) {
		lib, station, path := syncFixture(t)
		db := tu.NewTestDB(t)
		ledger := repositories.NewUploadLedger(repositories.NewUploadRepository(db))
		runs := repositories.NewSyncRunRepository(db)

		engine := NewPlaylistEngine(lib, WithStation(station), WithLedger(ledger), WithRunRecorder(runs), fastSync())
		progress := make(chan ProgressUpdate, 100)

		res, err := engine.SyncM3U(ctx, progress, path, SyncOptions{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if res.Uploaded != 2 || res.Linked != 3 || res.Failed != 0 {
			t.Errorf("expected 2 uploaded, 3 linked, 0 failed; got %d, %d, %d", res.Uploaded, res.Linked, res.Failed)
		}
		if res.Playlist == nil || res.Playlist.Name != "morning" {
			t.Errorf("expected playlist named after the file, got %+v", res.Playlist)
		}
		if len(station.added) != 3 || station.added[0] != "m-1" {
			t.Errorf("unexpected playlist assignments %v", station.added)
		}
		for _, want := range []string{"sonicsync/Artist B - Beta.mp3", "sonicsync/Artist C - Gamma.mp3"} {
			if _, ok := station.uploads[want]; !ok {
				t.Errorf("expected upload at %s, got %v", want, keys(station.uploads))
			}
		}
		if res.Tracks[2].Track.ID != "3" {
			t.Errorf("expected exact search match, got %+v", res.Tracks[2].Track)
		}

		for _, id := range []string{"1", "2", "3"} {
			if _, _, ok, err := ledger.Uploaded(id); err != nil || !ok {
				t.Errorf("expected track %s in ledger, got %v, %v", id, ok, err)
			}
		}

		run, err := runs.Latest("morning")
		if err != nil {
			t.Fatalf("expected recorded run, got %v", err)
		}
		if run.Status != models.SyncCompleted || run.TracksTotal != 3 || run.TracksUploaded != 2 || run.TracksLinked != 3 {
			t.Errorf("unexpected run %+v", run)
		}

		transfers := 0
		close(progress)
		for u := range progress {
			if u.Phase == TransferTracks {
				transfers++
			}
		}
		if transfers != 3 {
			t.Errorf("expected 3 transfer updates, got %d", transfers)
		}
	})

	t.Run("Ledger Skips Uploads", func(t *testing.T) {
		lib, station, path := syncFixture(t)
		ledger := repositories.NewUploadLedger(repositories.NewUploadRepository(tu.NewTestDB(t)))
		if err := ledger.RecordUpload("2", "m-2", "sonicsync/beta.mp3", "Beta", "Artist B", "Album"); err != nil {
			t.Fatalf("failed to seed ledger: %v", err)
		}

		engine := NewPlaylistEngine(lib, WithStation(station), WithLedger(ledger), fastSync())
		res, err := engine.SyncM3U(ctx, nil, path, SyncOptions{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if res.Uploaded != 1 || len(station.uploads) != 1 {
			t.Errorf("expected a single upload, got %d", res.Uploaded)
		}
		if station.added[1] != "m-2" {
			t.Errorf("expected ledger media id to be linked, got %v", station.added)
		}
		if slices.Contains(lib.downloads, "2") {
			t.Error("expected ledger hit to skip the download")
		}
	})

	t.Run("Reports Missing Tracks", func(t *testing.T) {
		lib, station, _ := syncFixture(t)
		path := tu.WriteFile(t, t.TempDir(), "gaps.m3u", "404\n1\n")
		runs := &memoryRuns{}

		engine := NewPlaylistEngine(lib, WithStation(station), WithRunRecorder(runs), fastSync())
		res, err := engine.SyncM3U(ctx, nil, path, SyncOptions{PlaylistName: "Gaps"})
		if err != nil {
			t.Fatalf("expected partial success, got %v", err)
		}

		if res.Failed != 1 || res.Linked != 1 {
			t.Errorf("expected 1 failed and 1 linked, got %d, %d", res.Failed, res.Linked)
		}
		if !errors.Is(res.Tracks[0].Err, subsonic.ErrNotFound) {
			t.Errorf("expected not found for first entry, got %v", res.Tracks[0].Err)
		}
		if _, ok := station.playlists["Gaps"]; !ok {
			t.Error("expected playlist name option to be used")
		}

		last := runs.updated[len(runs.updated)-1]
		if last.Status != models.SyncCompleted || last.TracksFailed != 1 {
			t.Errorf("unexpected final run %+v", last)
		}
	})

	t.Run("Clears Existing Playlist", func(t *testing.T) {
		for _, clear := range []bool{false, true} {
			lib, station, path := syncFixture(t)
			station.playlists["morning"] = &azuracast.Playlist{ID: 7, Name: "Morning"}

			engine := NewPlaylistEngine(lib, WithStation(station), fastSync())
			res, err := engine.SyncM3U(ctx, nil, path, SyncOptions{Clear: clear})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if res.Playlist.ID != 7 {
				t.Errorf("expected existing playlist to be reused, got %+v", res.Playlist)
			}
			if cleared := len(station.cleared) == 1; cleared != clear {
				t.Errorf("clear=%v: unexpected clears %v", clear, station.cleared)
			}
		}
	})

	t.Run("Dry Run", func(t *testing.T) {
		lib, station, path := syncFixture(t)

		engine := NewPlaylistEngine(lib, WithStation(station), fastSync())
		res, err := engine.SyncM3U(ctx, nil, path, SyncOptions{DryRun: true})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if res.Uploaded != 2 || res.Linked != 0 || res.Playlist != nil {
			t.Errorf("unexpected dry run result %+v", res)
		}
		if len(station.uploads) != 0 || len(station.added) != 0 || len(station.playlists) != 0 {
			t.Error("expected station to be untouched")
		}
	})

	t.Run("Station Unavailable", func(t *testing.T) {
		lib, station, path := syncFixture(t)
		station.knownErr = shared.ErrServiceUnavailable
		runs := &memoryRuns{}

		engine := NewPlaylistEngine(lib, WithStation(station), WithRunRecorder(runs), fastSync())
		if _, err := engine.SyncM3U(ctx, nil, path, SyncOptions{}); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Fatalf("expected service unavailable, got %v", err)
		}

		if len(runs.created) != 1 || runs.created[0].Status != models.SyncRunning {
			t.Errorf("expected run created as running, got %+v", runs.created)
		}
		last := runs.updated[len(runs.updated)-1]
		if last.Status != models.SyncFailed || last.ErrorMessage == "" {
			t.Errorf("expected failed run, got %+v", last)
		}
	})

	t.Run("Upload Failure Is Per Track", func(t *testing.T) {
		lib, station, path := syncFixture(t)
		station.uploadErr = shared.ErrUploadFailed

		engine := NewPlaylistEngine(lib, WithStation(station), fastSync())
		res, err := engine.SyncM3U(ctx, nil, path, SyncOptions{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Failed != 2 || res.Linked != 1 {
			t.Errorf("expected 2 failed and 1 linked, got %d, %d", res.Failed, res.Linked)
		}
	})

	t.Run("Tags Uploads", func(t *testing.T) {
		lib, station, path := syncFixture(t)
		lib.audio = append([]byte{0xff, 0xfb, 0x90, 0x64}, bytes.Repeat([]byte{0}, 412)...)
		md := &enhancer.Metadata{Genre: "Trip-Hop", Country: "GB", Source: models.SourceLastFM}

		engine := NewPlaylistEngine(lib,
			WithStation(station),
			WithEnhancer(fakeEnhancer{md: md}, audio.NewTagger()),
			WithSyncConfig(shared.SyncConfig{Workers: 1, RateLimit: 1000, DownloadDir: t.TempDir()}),
		)
		if _, err := engine.SyncM3U(ctx, nil, path, SyncOptions{}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		data := station.uploads["sonicsync/Artist B - Beta.mp3"]
		if err := audio.CheckMP3(data); err != nil || !bytes.HasPrefix(data, []byte("ID3")) {
			t.Fatalf("expected tagged mp3 upload, got %v", err)
		}

		local := filepath.Join(t.TempDir(), "beta.mp3")
		if err := os.WriteFile(local, data, 0o644); err != nil {
			t.Fatal(err)
		}
		tags, err := audio.ReadTags(local)
		if err != nil {
			t.Fatalf("expected readable tags, got %v", err)
		}
		if tags.Title != "Beta" || tags.Artist != "Artist B" || tags.Genre != "Trip-Hop" || tags.Country != "GB" {
			t.Errorf("unexpected tags %+v", tags)
		}
	})

	t.Run("Repeated Entries Upload Once", func(t *testing.T) {
		lib, station, _ := syncFixture(t)
		entry := "#EXTINF:180,Artist B - Beta\n2\n"
		path := tu.WriteFile(t, t.TempDir(), "repeat.m3u", "#EXTM3U\n"+strings.Repeat(entry, 3))

		engine := NewPlaylistEngine(lib,
			WithStation(station),
			WithSyncConfig(shared.SyncConfig{Workers: 3, RateLimit: 1000, DownloadDir: t.TempDir()}),
		)
		res, err := engine.SyncM3U(ctx, nil, path, SyncOptions{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(lib.downloads) != 1 || len(station.uploads) != 1 {
			t.Errorf("expected one download and one upload, got %v, %v", lib.downloads, keys(station.uploads))
		}
		if res.Uploaded != 1 || res.Linked != 3 || res.Failed != 0 {
			t.Errorf("expected 1 uploaded, 3 linked, 0 failed; got %d, %d, %d", res.Uploaded, res.Linked, res.Failed)
		}
		if len(station.added) != 3 || station.added[0] != station.added[1] || station.added[1] != station.added[2] {
			t.Errorf("expected every entry linked to the same media, got %v", station.added)
		}
	})

	t.Run("Canceled Run Keeps Counts", func(t *testing.T) {
		lib, station, path := syncFixture(t)
		cctx, cancel := context.WithCancel(ctx)
		defer cancel()
		runs := &memoryRuns{}

		engine := NewPlaylistEngine(&cancelingLibrary{fakeLibrary: lib, id: "3", cancel: cancel},
			WithStation(station), WithRunRecorder(runs), fastSync())
		res, err := engine.SyncM3U(cctx, nil, path, SyncOptions{Workers: 1})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected canceled, got %v", err)
		}

		if res.Uploaded != 1 || res.Failed != 1 {
			t.Errorf("expected 1 uploaded and 1 failed, got %d, %d", res.Uploaded, res.Failed)
		}
		last := runs.updated[len(runs.updated)-1]
		if last.Status != models.SyncFailed || last.TracksUploaded != 1 || last.TracksFailed != 1 {
			t.Errorf("expected failed run with counts, got %+v", last)
		}
	})

	t.Run("Requires Station", func(t *testing.T) {
		if _, err := NewPlaylistEngine(newFakeLibrary()).SyncM3U(ctx, nil, "x.m3u", SyncOptions{}); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected service unavailable, got %v", err)
		}
	})
}

func TestRemotePath(t *testing.T) {
	tc := []struct {
		track subsonic.Track
		want  string
	}{
		{subsonic.Track{Title: "Beta", Artist: "Artist B", Suffix: "MP3"}, "sonicsync/Artist B - Beta.mp3"},
		{subsonic.Track{Title: "What?", Artist: "AC/DC", Path: "a/b.flac"}, "sonicsync/AC_DC - What_.flac"},
		{subsonic.Track{Title: "x", Artist: "y"}, "sonicsync/y - x.mp3"},
	}

	for _, tt := range tc {
		if got := RemotePath(&tt.track); got != tt.want {
			t.Errorf("RemotePath(%+v) = %q, want %q", tt.track, got, tt.want)
		}
	}
}

func TestTrackSyncResult_Label(t *testing.T) {
	tr := track("1", "Alpha", "Artist A")
	tc := []struct {
		res  TrackSyncResult
		want string
	}{
		{TrackSyncResult{Track: &tr}, "Artist A - Alpha"},
		{TrackSyncResult{Entry: formatter.M3UEntry{Artist: "B", Title: "Beta"}}, "B - Beta"},
		{TrackSyncResult{Entry: formatter.M3UEntry{Location: "/music/x.mp3"}}, "/music/x.mp3"},
	}
	for _, tt := range tc {
		if got := tt.res.Label(); got != tt.want {
			t.Errorf("Label() = %q, want %q", got, tt.want)
		}
	}
}

func keys(m map[string][]byte) string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return strings.Join(out, ", ")
}
