package repositories

import (
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/desertthunder/sonicsync/internal/models"
	"github.com/desertthunder/sonicsync/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "uploads")
		if err != nil {
			t.Fatalf("failed to get sequence: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	if got, _ := NextSequence(db, "sync_runs"); got != 1 {
		t.Errorf("expected independent counter per table, got %d", got)
	}

	if _, err := NextSequence(db, "missing"); err == nil {
		t.Error("expected error for table without a sequence")
	}
}

func TestMetadataRepository(t *testing.T) {
	t.Run("Create And Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewMetadataRepository(db)
		bpm := 96.5
		m := models.NewCachedMetadata("tr-1", "Massive Attack", "Teardrop")
		m.BPM, m.Genre, m.Country, m.Source = &bpm, "Trip Hop", "GB", models.SourceLastFM

		if err := repo.Create(m); err != nil {
			t.Fatalf("failed to create metadata: %v", err)
		}
		if m.ID() == "" {
			t.Fatal("metadata ID should be set after creation")
		}

		got, err := repo.GetByTrackID("tr-1")
		if err != nil {
			t.Fatalf("failed to get metadata: %v", err)
		}
		if got.ID() != m.ID() || got.BPM == nil || *got.BPM != 96.5 || got.Genre != "Trip Hop" {
			t.Errorf("unexpected metadata %+v", got)
		}

		byID, err := repo.Get(m.ID())
		if err != nil || byID.TrackID != "tr-1" {
			t.Errorf("unexpected metadata by id %+v, %v", byID, err)
		}
	})

	t.Run("Miss Entries Keep Null BPM", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewMetadataRepository(db)
		if err := repo.Create(models.NewCachedMetadata("tr-2", "a", "b")); err != nil {
			t.Fatalf("failed to create metadata: %v", err)
		}

		got, err := repo.GetByTrackID("tr-2")
		if err != nil {
			t.Fatalf("failed to get metadata: %v", err)
		}
		if got.BPM != nil || !got.Empty() || got.Source != models.SourceNone {
			t.Errorf("expected empty miss entry, got %+v", got)
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewMetadataRepository(db)
		m := models.NewCachedMetadata("tr-1", "a", "b")
		if err := repo.Create(m); err != nil {
			t.Fatalf("failed to create metadata: %v", err)
		}

		m.Genre = "Ambient"
		if err := repo.Update(m); err != nil {
			t.Fatalf("failed to update metadata: %v", err)
		}

		got, _ := repo.Get(m.ID())
		if got.Genre != "Ambient" {
			t.Errorf("expected updated genre, got %q", got.Genre)
		}
	})

	t.Run("Upsert Replaces And Restores", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewMetadataRepository(db)
		first := models.NewCachedMetadata("tr-1", "a", "b")
		if err := repo.Upsert(first); err != nil {
			t.Fatalf("failed to upsert metadata: %v", err)
		}
		if err := repo.Delete(first.ID()); err != nil {
			t.Fatalf("failed to delete metadata: %v", err)
		}

		second := models.NewCachedMetadata("tr-1", "a", "b")
		second.Genre, second.Source = "Dub", models.SourceTags
		if err := repo.Upsert(second); err != nil {
			t.Fatalf("failed to upsert metadata: %v", err)
		}

		got, err := repo.GetByTrackID("tr-1")
		if err != nil {
			t.Fatalf("expected restored entry, got %v", err)
		}
		if got.Genre != "Dub" || got.Source != models.SourceTags || got.ID() != first.ID() {
			t.Errorf("unexpected upserted entry %+v", got)
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewMetadataRepository(db)
		for i, source := range []string{models.SourceLastFM, models.SourceNone, models.SourceLastFM} {
			m := models.NewCachedMetadata(string(rune('a'+i)), "artist", "title")
			m.Source = source
			if err := repo.Create(m); err != nil {
				t.Fatalf("failed to create metadata: %v", err)
			}
		}

		all, err := repo.List(nil)
		if err != nil || len(all) != 3 {
			t.Fatalf("expected 3 entries, got %d, %v", len(all), err)
		}

		hits, _ := repo.List(map[string]any{"source": models.SourceLastFM})
		if len(hits) != 2 {
			t.Errorf("expected 2 lastfm entries, got %d", len(hits))
		}
	})
}

func TestUploadRepository(t *testing.T) {
	t.Run("Create Assigns Sequence", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUploadRepository(db)
		first := models.NewUpload(0, "tr-1", "10", "sonicsync/one.mp3")
		second := models.NewUpload(0, "tr-2", "11", "sonicsync/two.mp3")

		for _, u := range []*models.Upload{first, second} {
			if err := repo.Create(u); err != nil {
				t.Fatalf("failed to create upload: %v", err)
			}
		}
		if first.Sequence() != 1 || second.Sequence() != 2 {
			t.Errorf("expected sequences 1 and 2, got %d and %d", first.Sequence(), second.Sequence())
		}

		got, err := repo.GetBySubsonicID("tr-2")
		if err != nil || got.MediaID != "11" || got.Sequence() != 2 {
			t.Errorf("unexpected upload %+v, %v", got, err)
		}
	})

	t.Run("Update And Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUploadRepository(db)
		u := models.NewUpload(0, "tr-1", "10", "a.mp3")
		if err := repo.Create(u); err != nil {
			t.Fatalf("failed to create upload: %v", err)
		}

		u.MediaID = "99"
		if err := repo.Update(u); err != nil {
			t.Fatalf("failed to update upload: %v", err)
		}
		if got, _ := repo.Get(u.ID()); got.MediaID != "99" {
			t.Errorf("expected media id 99, got %s", got.MediaID)
		}

		if err := repo.Delete(u.ID()); err != nil {
			t.Fatalf("failed to delete upload: %v", err)
		}
		if _, err := repo.Get(u.ID()); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected deleted upload to be hidden, got %v", err)
		}
	})

	t.Run("List By Artist", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUploadRepository(db)
		for i, artist := range []string{"Air", "Beak>", "Air"} {
			u := models.NewUpload(0, string(rune('a'+i)), "1", "x.mp3")
			u.Artist = artist
			if err := repo.Create(u); err != nil {
				t.Fatalf("failed to create upload: %v", err)
			}
		}

		got, err := repo.List(map[string]any{"artist": "Air"})
		if err != nil || len(got) != 2 {
			t.Errorf("expected 2 uploads, got %d, %v", len(got), err)
		}
	})
}

func TestUploadLedger(t *testing.T) {
	t.Run("Record And Lookup", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		ledger := NewUploadLedger(NewUploadRepository(db))

		if _, _, ok, err := ledger.Uploaded("tr-1"); ok || err != nil {
			t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
		}

		if err := ledger.RecordUpload("tr-1", "10", "sonicsync/a.mp3", "Title", "Artist", "Album"); err != nil {
			t.Fatalf("failed to record upload: %v", err)
		}
		mediaID, path, ok, err := ledger.Uploaded("tr-1")
		if err != nil || !ok || mediaID != "10" || path != "sonicsync/a.mp3" {
			t.Errorf("unexpected lookup %s %s %v %v", mediaID, path, ok, err)
		}
	})

	t.Run("Record Twice Updates", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUploadRepository(db)
		ledger := NewUploadLedger(repo)

		ledger.RecordUpload("tr-1", "10", "a.mp3", "", "", "")
		if err := ledger.RecordUpload("tr-1", "20", "b.mp3", "", "", ""); err != nil {
			t.Fatalf("expected second record to update, got %v", err)
		}

		all, _ := repo.List(nil)
		if len(all) != 1 || all[0].MediaID != "20" {
			t.Errorf("expected a single updated row, got %+v", all)
		}
	})

	t.Run("Record After Delete Restores", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUploadRepository(db)
		ledger := NewUploadLedger(repo)

		ledger.RecordUpload("tr-1", "10", "a.mp3", "", "", "")
		u, _ := repo.GetBySubsonicID("tr-1")
		repo.Delete(u.ID())

		if err := ledger.RecordUpload("tr-1", "30", "c.mp3", "", "", ""); err != nil {
			t.Fatalf("expected restore, got %v", err)
		}
		if mediaID, _, ok, _ := ledger.Uploaded("tr-1"); !ok || mediaID != "30" {
			t.Errorf("expected restored upload with media 30, got %s %v", mediaID, ok)
		}
	})

	t.Run("Concurrent Records", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		ledger := NewUploadLedger(NewUploadRepository(db))

		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if err := ledger.RecordUpload(string(rune('a'+i)), "1", "x.mp3", "", "", ""); err != nil {
					t.Errorf("failed to record upload: %v", err)
				}
			}(i)
		}
		wg.Wait()
	})
}

func TestSyncRunRepository(t *testing.T) {
	t.Run("Lifecycle", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncRunRepository(db)
		run := models.NewSyncRun(0, "Morning", "morning.m3u")
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create sync run: %v", err)
		}

		run.Start(10)
		run.TracksUploaded, run.TracksLinked, run.TracksFailed = 6, 3, 1
		run.Complete()
		if err := repo.Update(run); err != nil {
			t.Fatalf("failed to update sync run: %v", err)
		}

		got, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get sync run: %v", err)
		}
		if got.Status != models.SyncCompleted || got.TracksTotal != 10 || got.TracksUploaded != 6 {
			t.Errorf("unexpected sync run %+v", got)
		}
		if got.StartedAt == nil || got.CompletedAt == nil || got.ErrorMessage != "" {
			t.Errorf("unexpected timestamps or message %+v", got)
		}
	})

	t.Run("Failure Message", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncRunRepository(db)
		run := models.NewSyncRun(0, "Night", "pl-1")
		repo.Create(run)
		run.Fail(errors.New("station offline"))
		repo.Update(run)

		got, _ := repo.Get(run.ID())
		if got.Status != models.SyncFailed || got.ErrorMessage != "station offline" {
			t.Errorf("unexpected failed run %+v", got)
		}
	})

	t.Run("Latest And List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncRunRepository(db)
		for _, name := range []string{"Morning", "Night", "Morning"} {
			if err := repo.Create(models.NewSyncRun(0, name, name+".m3u")); err != nil {
				t.Fatalf("failed to create sync run: %v", err)
			}
		}

		latest, err := repo.Latest("Morning")
		if err != nil || latest.Sequence() != 3 {
			t.Errorf("expected run #3, got %+v, %v", latest, err)
		}

		runs, _ := repo.List(map[string]any{"playlist_name": "Morning"})
		if len(runs) != 2 || runs[0].Sequence() != 3 {
			t.Errorf("expected 2 runs newest first, got %d", len(runs))
		}

		limited, _ := repo.List(map[string]any{"limit": 1})
		if len(limited) != 1 {
			t.Errorf("expected limit to apply, got %d", len(limited))
		}

		pending, _ := repo.List(map[string]any{"status": string(models.SyncPending)})
		if len(pending) != 3 {
			t.Errorf("expected 3 pending runs, got %d", len(pending))
		}
	})
}
