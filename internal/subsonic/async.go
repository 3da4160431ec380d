package subsonic

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// Future is the pending result of an [AsyncClient] call.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the call finishes or ctx is done. Abandoning a future does not cancel the underlying request;
// cancel the context passed to the async method for that.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// AsyncClient runs [Client] calls on a bounded pool of goroutines so callers can overlap network I/O.
type AsyncClient struct {
	client *Client
	sem    *semaphore.Weighted
}

// NewAsyncClient wraps c allowing at most workers concurrent calls. Non-positive values mean 4.
func NewAsyncClient(c *Client, workers int) *AsyncClient {
	if workers <= 0 {
		workers = 4
	}
	return &AsyncClient{client: c, sem: semaphore.NewWeighted(int64(workers))}
}

// Client returns the wrapped blocking client.
func (a *AsyncClient) Client() *Client {
	return a.client
}

// Submit runs fn on the pool. Methods cannot have type parameters, so custom calls go through this function.
func Submit[T any](ctx context.Context, a *AsyncClient, fn func(ctx context.Context, c *Client) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		if err := a.sem.Acquire(ctx, 1); err != nil {
			f.err = err
			return
		}
		defer a.sem.Release(1)
		f.val, f.err = fn(ctx, a.client)
	}()
	return f
}

func submitErr(ctx context.Context, a *AsyncClient, fn func(ctx context.Context, c *Client) error) *Future[struct{}] {
	return Submit(ctx, a, func(ctx context.Context, c *Client) (struct{}, error) {
		return struct{}{}, fn(ctx, c)
	})
}

func (a *AsyncClient) Ping(ctx context.Context) *Future[struct{}] {
	return submitErr(ctx, a, func(ctx context.Context, c *Client) error {
		return c.Ping(ctx)
	})
}

func (a *AsyncClient) GetLicense(ctx context.Context) *Future[*License] {
	return Submit(ctx, a, func(ctx context.Context, c *Client) (*License, error) {
		return c.GetLicense(ctx)
	})
}

func (a *AsyncClient) GetOpenSubsonicExtensions(ctx context.Context) *Future[[]OpenSubsonicExtension] {
	return Submit(ctx, a, func(ctx context.Context, c *Client) ([]OpenSubsonicExtension, error) {
		return c.GetOpenSubsonicExtensions(ctx)
	})
}

func (a *AsyncClient) GetMusicFolders(ctx context.Context) *Future[[]MusicFolder] {
	return Submit(ctx, a, func(ctx context.Context, c *Client) ([]MusicFolder, error) {
		return c.GetMusicFolders(ctx)
	})
}

func (a *AsyncClient) GetGenres(ctx context.Context) *Future[[]Genre] {
	return Submit(ctx, a, func(ctx context.Context, c *Client) ([]Genre, error) {
		return c.GetGenres(ctx)
	})
}

func (a *AsyncClient) GetScanStatus(ctx context.Context) *Future[*ScanStatus] {
	return Submit(ctx, a, func(ctx context.Context, c *Client) (*ScanStatus, error) {
		return c.GetScanStatus(ctx)
	})
}

func (a *AsyncClient) StartScan(ctx context.Context) *Future[*ScanStatus] {
	return Submit(ctx, a, func(ctx context.Context, c *Client) (*ScanStatus, error) {
		return c.StartScan(ctx)
	})
}

func (a *AsyncClient) GetArtists(ctx context.Context, musicFolderID string) *Future[[]Artist] {
	return Submit(ctx, a, func(ctx context.Context, c *Client) ([]Artist, error) {
		return c.GetArtists(ctx, musicFolderID)
	})
}

func (a *AsyncClient) GetArtist(ctx context.Context, id string) *Future[*Artist] {
	return Submit(ctx, a, func(ctx context.Context, c *Client) (*Artist, error) {
		return c.GetArtist(ctx, id)
	})
}

func (a *AsyncClient) GetAlbum(ctx context.Context, id string) *Future[[]Track] {
	return Submit(ctx, a, func(ctx context.Context, c *Client) ([]Track, error) {
		return c.GetAlbum(ctx, id)
	})
}

func (a *AsyncClient) GetSong(ctx context.Context, id string) *Future[*Track] {
	return Submit(ctx, a, func(ctx context.Context, c *Client) (*Track, error) {
		return c.GetSong(ctx, id)
	})
}

func (a *AsyncClient) GetRandomSongs(ctx context.Context, size int, opts RandomSongsOptions) *Future[[]Track] {
	return Submit(ctx, a, func(ctx context.Context, c *Client) ([]Track, error) {
		return c.GetRandomSongs(ctx, size, opts)
	})
}

func (a *AsyncClient) GetSongsByGenre(ctx context.Context, genre string, count, offset int) *Future[[]Track] {
	return Submit(ctx, a, func(ctx context.Context, c *Client) ([]Track, error) {
		return c.GetSongsByGenre(ctx, genre, count, offset)
	})
}

func (a *AsyncClient) GetAlbumList2(ctx context.Context, opts AlbumListOptions) *Future[[]Album] {
	return Submit(ctx, a, func(ctx context.Context, c *Client) ([]Album, error) {
		return c.GetAlbumList2(ctx, opts)
	})
}

func (a *AsyncClient) Search3(ctx context.Context, query string, artistCount, albumCount, songCount int) *Future[*SearchResult3] {
	return Submit(ctx, a, func(ctx context.Context, c *Client) (*SearchResult3, error) {
		return c.Search3(ctx, query, artistCount, albumCount, songCount)
	})
}

func (a *AsyncClient) SearchTracks(ctx context.Context, query string, limit int, genres []string) *Future[[]Track] {
	return Submit(ctx, a, func(ctx context.Context, c *Client) ([]Track, error) {
		return c.SearchTracks(ctx, query, limit, genres)
	})
}

func (a *AsyncClient) Stream(ctx context.Context, id string, opts StreamOptions) *Future[[]byte] {
	return Submit(ctx, a, func(ctx context.Context, c *Client) ([]byte, error) {
		return c.Stream(ctx, id, opts)
	})
}

func (a *AsyncClient) Download(ctx context.Context, id string) *Future[[]byte] {
	return Submit(ctx, a, func(ctx context.Context, c *Client) ([]byte, error) {
		return c.Download(ctx, id)
	})
}

func (a *AsyncClient) GetCoverArt(ctx context.Context, id string, size int) *Future[[]byte] {
	return Submit(ctx, a, func(ctx context.Context, c *Client) ([]byte, error) {
		return c.GetCoverArt(ctx, id, size)
	})
}

func (a *AsyncClient) GetPlaylists(ctx context.Context, username string) *Future[[]Playlist] {
	return Submit(ctx, a, func(ctx context.Context, c *Client) ([]Playlist, error) {
		return c.GetPlaylists(ctx, username)
	})
}

func (a *AsyncClient) GetPlaylist(ctx context.Context, id string) *Future[*Playlist] {
	return Submit(ctx, a, func(ctx context.Context, c *Client) (*Playlist, error) {
		return c.GetPlaylist(ctx, id)
	})
}

func (a *AsyncClient) CreatePlaylist(ctx context.Context, name string, songIDs []string) *Future[*Playlist] {
	return Submit(ctx, a, func(ctx context.Context, c *Client) (*Playlist, error) {
		return c.CreatePlaylist(ctx, name, songIDs)
	})
}

func (a *AsyncClient) UpdatePlaylist(ctx context.Context, id string, update PlaylistUpdate) *Future[struct{}] {
	return submitErr(ctx, a, func(ctx context.Context, c *Client) error {
		return c.UpdatePlaylist(ctx, id, update)
	})
}

func (a *AsyncClient) DeletePlaylist(ctx context.Context, id string) *Future[struct{}] {
	return submitErr(ctx, a, func(ctx context.Context, c *Client) error {
		return c.DeletePlaylist(ctx, id)
	})
}

func (a *AsyncClient) Star(ctx context.Context, target StarTarget) *Future[struct{}] {
	return submitErr(ctx, a, func(ctx context.Context, c *Client) error {
		return c.Star(ctx, target)
	})
}

func (a *AsyncClient) Unstar(ctx context.Context, target StarTarget) *Future[struct{}] {
	return submitErr(ctx, a, func(ctx context.Context, c *Client) error {
		return c.Unstar(ctx, target)
	})
}

func (a *AsyncClient) GetStarred2(ctx context.Context, musicFolderID string) *Future[*Starred2] {
	return Submit(ctx, a, func(ctx context.Context, c *Client) (*Starred2, error) {
		return c.GetStarred2(ctx, musicFolderID)
	})
}

func (a *AsyncClient) Scrobble(ctx context.Context, id string, at time.Time, submission bool) *Future[struct{}] {
	return submitErr(ctx, a, func(ctx context.Context, c *Client) error {
		return c.Scrobble(ctx, id, at, submission)
	})
}
