package tasks

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/desertthunder/sonicsync/internal/azuracast"
	"github.com/desertthunder/sonicsync/internal/enhancer"
	"github.com/desertthunder/sonicsync/internal/models"
	"github.com/desertthunder/sonicsync/internal/shared"
	"github.com/desertthunder/sonicsync/internal/subsonic"
)

type fakeLibrary struct {
	mu        sync.Mutex
	playlists map[string]*subsonic.Playlist
	songs     map[string]subsonic.Track
	search    map[string][]subsonic.Track
	audio     []byte
	cover     []byte

	listErr     error
	downloads   []string
	coverCalled int
}

func newFakeLibrary() *fakeLibrary {
	return &fakeLibrary{
		playlists: map[string]*subsonic.Playlist{},
		songs:     map[string]subsonic.Track{},
		search:    map[string][]subsonic.Track{},
		audio:     []byte("not really audio"),
	}
}

func (f *fakeLibrary) addPlaylist(id, name string, tracks ...subsonic.Track) {
	f.playlists[id] = &subsonic.Playlist{ID: id, Name: name, SongCount: len(tracks), Entries: tracks}
}

func (f *fakeLibrary) GetPlaylists(ctx context.Context, username string) ([]subsonic.Playlist, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]subsonic.Playlist, 0, len(f.playlists))
	for _, p := range f.playlists {
		summary := *p
		summary.Entries = nil
		out = append(out, summary)
	}
	slices.SortFunc(out, func(a, b subsonic.Playlist) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (f *fakeLibrary) GetPlaylist(ctx context.Context, id string) (*subsonic.Playlist, error) {
	p, ok := f.playlists[id]
	if !ok {
		return nil, fmt.Errorf("%w: playlist %s", subsonic.ErrNotFound, id)
	}
	return p, nil
}

func (f *fakeLibrary) GetSong(ctx context.Context, id string) (*subsonic.Track, error) {
	t, ok := f.songs[id]
	if !ok {
		return nil, fmt.Errorf("%w: song %s", subsonic.ErrNotFound, id)
	}
	return &t, nil
}

func (f *fakeLibrary) SearchTracks(ctx context.Context, query string, limit int, genres []string) ([]subsonic.Track, error) {
	return f.search[query], nil
}

func (f *fakeLibrary) DownloadTo(ctx context.Context, id string, w io.Writer) (int64, error) {
	f.mu.Lock()
	f.downloads = append(f.downloads, id)
	f.mu.Unlock()
	n, err := w.Write(f.audio)
	return int64(n), err
}

func (f *fakeLibrary) GetCoverArt(ctx context.Context, id string, size int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.coverCalled++
	return f.cover, nil
}

type fakeStation struct {
	mu        sync.Mutex
	known     []azuracast.Media
	playlists map[string]*azuracast.Playlist
	uploads   map[string][]byte
	added     []string
	cleared   []string

	knownErr  error
	uploadErr error
	nextID    int
}

// cancelingLibrary cancels the sync when the track id is downloaded.
type cancelingLibrary struct {
	*fakeLibrary
	id     string
	cancel context.CancelFunc
}

func (c *cancelingLibrary) DownloadTo(ctx context.Context, id string, w io.Writer) (int64, error) {
	if id == c.id {
		c.cancel()
		return 0, context.Canceled
	}
	return c.fakeLibrary.DownloadTo(ctx, id, w)
}

func newFakeStation(known ...azuracast.Media) *fakeStation {
	return &fakeStation{
		known:     known,
		playlists: map[string]*azuracast.Playlist{},
		uploads:   map[string][]byte{},
		nextID:    100,
	}
}

func (s *fakeStation) KnownTracks(ctx context.Context) ([]azuracast.Media, error) {
	if s.knownErr != nil {
		return nil, s.knownErr
	}
	return s.known, nil
}

func (s *fakeStation) HasFile(known []azuracast.Media, c azuracast.Candidate) (*azuracast.Media, bool) {
	for i := range known {
		if c.Matches(known[i]) {
			return &known[i], true
		}
	}
	return nil, false
}

func (s *fakeStation) UploadFile(ctx context.Context, data []byte, path string) (*azuracast.Media, error) {
	if s.uploadErr != nil {
		return nil, s.uploadErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.uploads[path] = data
	return &azuracast.Media{ID: strconv.Itoa(s.nextID), Path: path}, nil
}

func (s *fakeStation) Playlist(ctx context.Context, name string) (*azuracast.Playlist, error) {
	for _, p := range s.playlists {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, name)
}

func (s *fakeStation) CreatePlaylist(ctx context.Context, name string) (*azuracast.Playlist, error) {
	p := &azuracast.Playlist{ID: len(s.playlists) + 1, Name: name}
	s.playlists[name] = p
	return p, nil
}

func (s *fakeStation) ClearPlaylist(ctx context.Context, name string) error {
	s.cleared = append(s.cleared, name)
	return nil
}

func (s *fakeStation) AddToPlaylist(ctx context.Context, mediaID string, playlistID int) error {
	s.added = append(s.added, mediaID)
	return nil
}

type fakeEnhancer struct {
	md  *enhancer.Metadata
	err error
}

func (f fakeEnhancer) EnhanceTrack(ctx context.Context, id, artist, title, audioPath string) (*enhancer.Metadata, error) {
	return f.md, f.err
}

// memoryRuns records every state a run passes through.
type memoryRuns struct {
	created []models.SyncRun
	updated []models.SyncRun
}

func (m *memoryRuns) Create(run *models.SyncRun) error {
	m.created = append(m.created, *run)
	return nil
}

func (m *memoryRuns) Update(run *models.SyncRun) error {
	m.updated = append(m.updated, *run)
	return nil
}

func track(id, title, artist string) subsonic.Track {
	return subsonic.Track{ID: id, Title: title, Artist: artist, Album: "Album", Suffix: "mp3", Duration: 200}
}
