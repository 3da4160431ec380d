package enhancer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sonicsync/internal/audio"
	"github.com/desertthunder/sonicsync/internal/models"
	"github.com/desertthunder/sonicsync/internal/repositories"
	"github.com/desertthunder/sonicsync/internal/shared"
	tu "github.com/desertthunder/sonicsync/internal/testing"
)

type fakeLookup struct {
	info  *TrackInfo
	err   error
	calls int
}

func (f *fakeLookup) TrackInfo(ctx context.Context, artist, title string) (*TrackInfo, error) {
	f.calls++
	return f.info, f.err
}

func newTestEnhancer(t *testing.T, lookup Lookup) (*CachedEnhancer, *repositories.MetadataRepository) {
	t.Helper()
	repo := repositories.NewMetadataRepository(tu.NewTestDB(t))
	return NewCachedEnhancer(repo, lookup, log.New(io.Discard)), repo
}

func taggedFile(t *testing.T, tags audio.Tags) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "track.mp3")
	data := append([]byte{0xff, 0xfb, 0x90, 0x64}, bytes.Repeat([]byte{0}, 256)...)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if err := audio.NewTagger().Write(path, tags); err != nil {
		t.Fatalf("failed to tag file: %v", err)
	}
	return path
}

func TestCachedEnhancer(t *testing.T) {
	ctx := context.Background()

	t.Run("Looks Up And Caches", func(t *testing.T) {
		lookup := &fakeLookup{info: &TrackInfo{Genre: "Trip-Hop", Country: "GB"}}
		e, repo := newTestEnhancer(t, lookup)

		md, err := e.EnhanceTrack(ctx, "tr-1", "Massive Attack", "Teardrop", "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if md.Genre != "Trip-Hop" || md.Country != "GB" || md.Source != models.SourceLastFM {
			t.Errorf("unexpected metadata %+v", md)
		}

		if _, err := e.EnhanceTrack(ctx, "tr-1", "Massive Attack", "Teardrop", ""); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if lookup.calls != 1 {
			t.Errorf("expected second call to hit the cache, got %d lookups", lookup.calls)
		}

		cached, err := repo.GetByTrackID("tr-1")
		if err != nil || cached.Genre != "Trip-Hop" {
			t.Errorf("expected cached row, got %+v, %v", cached, err)
		}
	})

	t.Run("Caches Misses", func(t *testing.T) {
		lookup := &fakeLookup{err: shared.ErrTrackNotFound}
		e, _ := newTestEnhancer(t, lookup)

		for range 2 {
			md, err := e.EnhanceTrack(ctx, "tr-2", "Nobody", "Nothing", "")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !md.Empty() || md.Source != models.SourceNone {
				t.Errorf("expected empty result, got %+v", md)
			}
		}
		if lookup.calls != 1 {
			t.Errorf("expected the miss to be cached, got %d lookups", lookup.calls)
		}
	})

	t.Run("Lookup Failure Is Not Cached", func(t *testing.T) {
		lookup := &fakeLookup{err: shared.ErrServiceUnavailable}
		e, repo := newTestEnhancer(t, lookup)

		if _, err := e.EnhanceTrack(ctx, "tr-3", "A", "B", ""); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Fatalf("expected service unavailable, got %v", err)
		}
		if _, err := repo.GetByTrackID("tr-3"); !errors.Is(err, repositories.ErrNotFound) {
			t.Errorf("expected nothing cached, got %v", err)
		}
	})

	t.Run("Falls Back To Tags", func(t *testing.T) {
		bpm := 94.0
		path := taggedFile(t, audio.Tags{Genre: "Downtempo", BPM: &bpm})
		e, _ := newTestEnhancer(t, nil)

		md, err := e.EnhanceTrack(ctx, "tr-4", "Bonobo", "Kiara", path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if md.Source != models.SourceTags || md.Genre != "Downtempo" || md.BPM == nil || *md.BPM != 94 {
			t.Errorf("unexpected metadata %+v", md)
		}
	})

	t.Run("Remote Wins Over Tags", func(t *testing.T) {
		bpm := 120.0
		path := taggedFile(t, audio.Tags{Genre: "Other", BPM: &bpm})
		e, _ := newTestEnhancer(t, &fakeLookup{info: &TrackInfo{Genre: "House"}})

		md, err := e.EnhanceTrack(ctx, "tr-5", "A", "B", path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if md.Genre != "House" || md.Source != models.SourceLastFM || md.BPM == nil {
			t.Errorf("unexpected metadata %+v", md)
		}
	})

	t.Run("Stale Entries Refresh", func(t *testing.T) {
		lookup := &fakeLookup{info: &TrackInfo{Genre: "Jazz"}}
		e, _ := newTestEnhancer(t, lookup)
		e.WithMaxAge(time.Hour)

		e.EnhanceTrack(ctx, "tr-6", "A", "B", "")
		e.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		lookup.info = &TrackInfo{Genre: "Bebop"}

		md, err := e.EnhanceTrack(ctx, "tr-6", "A", "B", "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if md.Genre != "Bebop" || lookup.calls != 2 {
			t.Errorf("expected refreshed lookup, got %+v after %d calls", md, lookup.calls)
		}
	})

	t.Run("Requires Track ID", func(t *testing.T) {
		e, _ := newTestEnhancer(t, nil)
		if _, err := e.EnhanceTrack(ctx, "", "A", "B", ""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected missing argument, got %v", err)
		}
	})
}
