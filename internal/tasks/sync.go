package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/desertthunder/sonicsync/internal/audio"
	"github.com/desertthunder/sonicsync/internal/azuracast"
	"github.com/desertthunder/sonicsync/internal/formatter"
	"github.com/desertthunder/sonicsync/internal/models"
	"github.com/desertthunder/sonicsync/internal/shared"
	"github.com/desertthunder/sonicsync/internal/subsonic"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// uploadPrefix is the station media folder sonicsync uploads into.
const uploadPrefix = "sonicsync"

// SyncOptions configures a single [PlaylistEngine.SyncM3U] run.
type SyncOptions struct {
	PlaylistName string  // Station playlist name; defaults to the M3U file name without extension
	Workers      int     // Concurrent track transfers; defaults to the engine's [sync] workers
	RateLimit    float64 // Subsonic downloads per second; defaults to the engine's [sync] rate_limit
	Clear        bool    // Empty an existing station playlist before linking
	DryRun       bool    // Resolve tracks and report what would be uploaded without touching the station
}

// TrackSyncResult is the outcome for one M3U entry.
type TrackSyncResult struct {
	Entry    formatter.M3UEntry
	Track    *subsonic.Track
	MediaID  string
	Uploaded bool
	Err      error
}

// Label names the entry for display.
func (r TrackSyncResult) Label() string {
	if r.Track != nil {
		return r.Track.Artist + " - " + r.Track.Title
	}
	if r.Entry.Artist != "" || r.Entry.Title != "" {
		return r.Entry.Artist + " - " + r.Entry.Title
	}
	return r.Entry.Location
}

// SyncResult contains all data from a station sync.
type SyncResult struct {
	Run      *models.SyncRun
	Playlist *azuracast.Playlist
	Tracks   []TrackSyncResult
	Uploaded int
	Linked   int
	Failed   int
}

// SyncM3U reads the playlist at path and mirrors it into a station playlist.
//
// Each entry is resolved to a Subsonic track (by id, or by searching "artist title" when the entry
// carries no id), matched against the station library and uploaded when missing. Per-track failures
// are collected in the result; the run only fails as a whole when the station cannot be reached.
func (e *PlaylistEngine) SyncM3U(ctx context.Context, progress chan<- ProgressUpdate, path string, opts SyncOptions) (*SyncResult, error) {
	if e.library == nil {
		return nil, fmt.Errorf("%w: subsonic client not initialized", shared.ErrServiceUnavailable)
	}
	if e.station == nil {
		return nil, fmt.Errorf("%w: azuracast client not initialized", shared.ErrServiceUnavailable)
	}

	e.sendProgress(progress, fetchPlaylistUpdate(path))
	entries, err := formatter.ReadM3UFile(path)
	if err != nil {
		return nil, err
	}

	name := opts.PlaylistName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	run := models.NewSyncRun(0, name, path)
	run.Start(len(entries))
	e.recordRun(run, true)

	result, err := e.syncEntries(ctx, progress, name, entries, opts)
	if result == nil {
		result = &SyncResult{}
	}
	result.Run = run

	run.TracksUploaded, run.TracksLinked, run.TracksFailed = result.Uploaded, result.Linked, result.Failed
	if err != nil {
		run.Fail(err)
	} else {
		run.Complete()
	}
	e.recordRun(run, false)

	if err != nil {
		return result, err
	}
	e.logger.Info("sync finished", "playlist", name, "uploaded", result.Uploaded, "linked", result.Linked, "failed", result.Failed)
	return result, nil
}

func (e *PlaylistEngine) recordRun(run *models.SyncRun, create bool) {
	if e.runs == nil {
		return
	}
	var err error
	if create {
		err = e.runs.Create(run)
	} else {
		err = e.runs.Update(run)
	}
	if err != nil {
		e.logger.Warn("could not record sync run", "playlist", run.PlaylistName, "err", err)
	}
}

func (e *PlaylistEngine) syncEntries(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	name string,
	entries []formatter.M3UEntry,
	opts SyncOptions,
) (*SyncResult, error) {
	known, err := e.station.KnownTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list station files: %w", err)
	}
	e.sendProgress(progress, fetchStationUpdate(len(known)))

	var playlist *azuracast.Playlist
	if !opts.DryRun {
		if playlist, err = e.preparePlaylist(ctx, progress, name, opts.Clear); err != nil {
			return nil, err
		}
	}

	results := e.transferTracks(ctx, progress, entries, known, opts)
	res := &SyncResult{Playlist: playlist, Tracks: results}
	for i := range results {
		switch {
		case results[i].Err != nil:
			res.Failed++
		case results[i].Uploaded:
			res.Uploaded++
		}
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if opts.DryRun {
		return res, nil
	}

	linked := 0
	for i := range results {
		if results[i].Err != nil || results[i].MediaID == "" {
			continue
		}
		linked++
		e.sendProgress(progress, linkTracksUpdate(linked, len(results)-res.Failed, playlist.Name))
		if err := e.station.AddToPlaylist(ctx, results[i].MediaID, playlist.ID); err != nil {
			results[i].Err = err
			res.Failed++
			linked--
			if errors.Is(err, context.Canceled) {
				return res, err
			}
		}
	}
	res.Linked = linked
	return res, nil
}

// preparePlaylist finds or creates the station playlist; an existing one is emptied when clear is set.
func (e *PlaylistEngine) preparePlaylist(ctx context.Context, progress chan<- ProgressUpdate, name string, clear bool) (*azuracast.Playlist, error) {
	p, err := e.station.Playlist(ctx, name)
	switch {
	case errors.Is(err, shared.ErrPlaylistNotFound):
		p, err = e.station.CreatePlaylist(ctx, name)
		if err != nil {
			return nil, err
		}
		e.sendProgress(progress, preparePlaylistUpdate(name, true))
		return p, nil
	case err != nil:
		return nil, err
	}

	if clear {
		e.sendProgress(progress, preparePlaylistUpdate(name, false))
		if err := e.station.ClearPlaylist(ctx, name); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// uploadSet shares one upload per track between the entries of a single sync, so an M3U that lists a track
// twice downloads and uploads it once.
type uploadSet struct {
	group singleflight.Group
	mu    sync.Mutex
	done  map[string]*azuracast.Media
}

func newUploadSet() *uploadSet {
	return &uploadSet{done: map[string]*azuracast.Media{}}
}

func (u *uploadSet) uploaded(id string) (*azuracast.Media, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	m, ok := u.done[id]
	return m, ok
}

// do returns the media for id, running upload only if no other entry has. ran reports whether this call did the work.
func (u *uploadSet) do(id string, upload func() (*azuracast.Media, error)) (media *azuracast.Media, ran bool, err error) {
	if m, ok := u.uploaded(id); ok {
		return m, false, nil
	}

	v, err, _ := u.group.Do(id, func() (any, error) {
		if m, ok := u.uploaded(id); ok {
			return m, nil
		}
		ran = true
		m, err := upload()
		if err != nil {
			return nil, err
		}
		u.mu.Lock()
		u.done[id] = m
		u.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, ran, err
	}
	return v.(*azuracast.Media), ran, nil
}

// transferTracks resolves every entry with a bounded worker pool. Results keep M3U order.
func (e *PlaylistEngine) transferTracks(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	entries []formatter.M3UEntry,
	known []azuracast.Media,
	opts SyncOptions,
) []TrackSyncResult {
	workers := opts.Workers
	if workers <= 0 {
		workers = e.workers
	}
	limit := opts.RateLimit
	if limit <= 0 {
		limit = e.rateLimit
	}
	limiter := rate.NewLimiter(rate.Limit(limit), 1)

	results := make([]TrackSyncResult, len(entries))
	uploads := newUploadSet()

	var (
		mu        sync.Mutex
		completed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, entry := range entries {
		g.Go(func() error {
			res := e.transferTrack(gctx, limiter, uploads, entry, known, opts.DryRun)
			results[i] = res

			mu.Lock()
			completed++
			step := completed
			mu.Unlock()
			e.sendProgress(progress, trackResultUpdate(step, len(entries), res))

			if errors.Is(res.Err, context.Canceled) {
				return res.Err
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (e *PlaylistEngine) transferTrack(
	ctx context.Context,
	limiter *rate.Limiter,
	uploads *uploadSet,
	entry formatter.M3UEntry,
	known []azuracast.Media,
	dryRun bool,
) TrackSyncResult {
	res := TrackSyncResult{Entry: entry}

	track, err := e.resolveEntry(ctx, limiter, entry)
	if err != nil {
		res.Err = err
		return res
	}
	res.Track = track

	if e.ledger != nil {
		mediaID, _, ok, err := e.ledger.Uploaded(track.ID)
		if err != nil {
			e.logger.Warn("upload ledger lookup failed", "track", track.ID, "err", err)
		}
		if ok {
			res.MediaID = mediaID
			return res
		}
	}

	if m, ok := e.station.HasFile(known, azuracast.Candidate{Title: track.Title, Artist: track.Artist, Album: track.Album}); ok {
		res.MediaID = m.ID
		e.remember(track, m.ID, m.Path)
		return res
	}

	if dryRun {
		res.Uploaded = true
		return res
	}

	media, ran, err := uploads.do(track.ID, func() (*azuracast.Media, error) {
		media, err := e.upload(ctx, limiter, track)
		if err == nil {
			e.remember(track, media.ID, media.Path)
		}
		return media, err
	})
	if err != nil {
		res.Err = err
		return res
	}
	res.MediaID = media.ID
	res.Uploaded = ran
	return res
}

func (e *PlaylistEngine) resolveEntry(ctx context.Context, limiter *rate.Limiter, entry formatter.M3UEntry) (*subsonic.Track, error) {
	if err := limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if entry.ID != "" {
		track, err := e.library.GetSong(ctx, entry.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get song %s: %w", entry.ID, err)
		}
		if track == nil {
			return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, entry.ID)
		}
		return track, nil
	}

	query := strings.TrimSpace(entry.Artist + " " + entry.Title)
	if query == "" {
		return nil, fmt.Errorf("%w: entry %q has neither id nor title", shared.ErrTrackNotFound, entry.Location)
	}

	tracks, err := e.library.SearchTracks(ctx, query, 5, nil)
	if err != nil {
		return nil, fmt.Errorf("search for %q failed: %w", query, err)
	}
	for i := range tracks {
		if shared.NormalizeTrackKey(tracks[i].Title, tracks[i].Artist) == shared.NormalizeTrackKey(entry.Title, entry.Artist) {
			return &tracks[i], nil
		}
	}
	if len(tracks) > 0 && entry.Artist == "" {
		return &tracks[0], nil
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, query)
}

// upload downloads the original file, tags it with enhancer metadata and sends it to the station.
func (e *PlaylistEngine) upload(ctx context.Context, limiter *rate.Limiter, track *subsonic.Track) (*azuracast.Media, error) {
	dir := e.downloadDir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "sonicsync-*")
		if err != nil {
			return nil, fmt.Errorf("failed to create download directory: %w", err)
		}
		defer os.RemoveAll(tmp)
		dir = tmp
	} else if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}

	local := filepath.Join(dir, track.ID+"."+suffix(track))
	if err := limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if err := e.download(ctx, track.ID, local); err != nil {
		return nil, err
	}

	e.enhance(ctx, track, local)

	data, err := os.ReadFile(local)
	if err != nil {
		return nil, fmt.Errorf("failed to read download: %w", err)
	}

	return e.station.UploadFile(ctx, data, RemotePath(track))
}

func (e *PlaylistEngine) download(ctx context.Context, id, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	n, err := e.library.DownloadTo(ctx, id, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to download %s: %w", id, err)
	}
	e.logger.Debug("downloaded track", "id", id, "bytes", n)
	return nil
}

// enhance tags MP3 downloads with library and enhancer metadata. Failures only cost the extra tags.
func (e *PlaylistEngine) enhance(ctx context.Context, track *subsonic.Track, path string) {
	if e.tagger == nil || !strings.EqualFold(filepath.Ext(path), ".mp3") {
		return
	}

	tags := audio.Tags{Title: track.Title, Artist: track.Artist, Album: track.Album, Genre: track.Genre}
	if track.Year != nil {
		tags.Year = *track.Year
	}
	if track.Track != nil {
		tags.Track = *track.Track
	}

	if e.enhancer != nil {
		md, err := e.enhancer.EnhanceTrack(ctx, track.ID, track.Artist, track.Title, path)
		if err != nil {
			e.logger.Warn("metadata lookup failed", "track", track.ID, "err", err)
		} else {
			extra := md.Tags()
			tags.BPM, tags.Country = extra.BPM, extra.Country
			if extra.Genre != "" {
				tags.Genre = extra.Genre
			}
		}
	}

	if err := e.tagger.Write(path, tags); err != nil {
		e.logger.Warn("tagging failed", "path", path, "err", err)
	}
}

func (e *PlaylistEngine) remember(track *subsonic.Track, mediaID, path string) {
	if e.ledger == nil {
		return
	}
	if err := e.ledger.RecordUpload(track.ID, mediaID, path, track.Title, track.Artist, track.Album); err != nil {
		e.logger.Warn("could not record upload", "track", track.ID, "err", err)
	}
}

func suffix(t *subsonic.Track) string {
	if t.Suffix != "" {
		return strings.ToLower(t.Suffix)
	}
	if ext := filepath.Ext(t.Path); ext != "" {
		return strings.ToLower(strings.TrimPrefix(ext, "."))
	}
	return "mp3"
}

// RemotePath is the station media path a track is uploaded to: sonicsync/<artist> - <title>.<suffix>.
func RemotePath(t *subsonic.Track) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(t.Artist+" - "+t.Title))
	return uploadPrefix + "/" + name + "." + suffix(t)
}
