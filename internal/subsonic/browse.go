package subsonic

import (
	"context"
	"encoding/json"
	"fmt"
)

// Ping checks connectivity and credentials, recording the server's version and OpenSubsonic support.
func (c *Client) Ping(ctx context.Context) error {
	h, err := c.getJSON(ctx, "ping", nil, nil)
	if err != nil {
		return err
	}
	c.recordHeader(h)
	c.logger.Debug("ping ok", "version", h.Version, "type", h.Type, "openSubsonic", h.OpenSubsonic)
	return nil
}

// GetOpenSubsonicExtensions lists the extensions the server supports and records them in [Client.Capabilities].
func (c *Client) GetOpenSubsonicExtensions(ctx context.Context) ([]OpenSubsonicExtension, error) {
	var payload struct {
		Extensions list[extensionDTO] `json:"openSubsonicExtensions"`
	}
	if _, err := c.getJSON(ctx, "getOpenSubsonicExtensions", nil, &payload); err != nil {
		return nil, err
	}

	exts := make([]OpenSubsonicExtension, 0, len(payload.Extensions))
	for _, e := range payload.Extensions {
		exts = append(exts, OpenSubsonicExtension{Name: e.Name, Versions: e.Versions})
	}
	c.recordExtensions(exts)
	return exts, nil
}

func (c *Client) GetLicense(ctx context.Context) (*License, error) {
	var payload struct {
		License *struct {
			Valid          bool      `json:"valid"`
			Email          string    `json:"email"`
			LicenseExpires *wireTime `json:"licenseExpires"`
		} `json:"license"`
	}
	if _, err := c.getJSON(ctx, "getLicense", nil, &payload); err != nil {
		return nil, err
	}
	if payload.License == nil {
		return nil, fmt.Errorf("getLicense: %w", NewError(CodeNotFound, "license missing from response"))
	}

	l := payload.License
	return &License{Valid: l.Valid, Email: l.Email, LicenseExpires: l.LicenseExpires.ptr()}, nil
}

func (c *Client) GetMusicFolders(ctx context.Context) ([]MusicFolder, error) {
	var payload struct {
		MusicFolders struct {
			MusicFolder list[struct {
				ID   flexString `json:"id"`
				Name string     `json:"name"`
			}] `json:"musicFolder"`
		} `json:"musicFolders"`
	}
	if _, err := c.getJSON(ctx, "getMusicFolders", nil, &payload); err != nil {
		return nil, err
	}

	folders := make([]MusicFolder, 0, len(payload.MusicFolders.MusicFolder))
	for _, f := range payload.MusicFolders.MusicFolder {
		folders = append(folders, MusicFolder{ID: string(f.ID), Name: f.Name})
	}
	return folders, nil
}

func (c *Client) GetGenres(ctx context.Context) ([]Genre, error) {
	var payload struct {
		Genres struct {
			Genre list[struct {
				Value      string `json:"value"`
				SongCount  int    `json:"songCount"`
				AlbumCount int    `json:"albumCount"`
			}] `json:"genre"`
		} `json:"genres"`
	}
	if _, err := c.getJSON(ctx, "getGenres", nil, &payload); err != nil {
		return nil, err
	}

	genres := make([]Genre, 0, len(payload.Genres.Genre))
	for _, g := range payload.Genres.Genre {
		genres = append(genres, Genre{Name: g.Value, SongCount: g.SongCount, AlbumCount: g.AlbumCount})
	}
	return genres, nil
}

type scanStatusPayload struct {
	ScanStatus struct {
		Scanning bool `json:"scanning"`
		Count    int  `json:"count"`
	} `json:"scanStatus"`
}

func (c *Client) GetScanStatus(ctx context.Context) (*ScanStatus, error) {
	var payload scanStatusPayload
	if _, err := c.getJSON(ctx, "getScanStatus", nil, &payload); err != nil {
		return nil, err
	}
	return &ScanStatus{Scanning: payload.ScanStatus.Scanning, Count: payload.ScanStatus.Count}, nil
}

// StartScan asks the server to rescan its library and returns the resulting status.
func (c *Client) StartScan(ctx context.Context) (*ScanStatus, error) {
	var payload scanStatusPayload
	if _, err := c.getJSON(ctx, "startScan", nil, &payload); err != nil {
		return nil, err
	}
	return &ScanStatus{Scanning: payload.ScanStatus.Scanning, Count: payload.ScanStatus.Count}, nil
}

// GetArtists returns every artist, flattening the server's alphabetical index buckets.
func (c *Client) GetArtists(ctx context.Context, musicFolderID string) ([]Artist, error) {
	var payload struct {
		Artists struct {
			Index list[struct {
				Name   string          `json:"name"`
				Artist list[artistDTO] `json:"artist"`
			}] `json:"index"`
		} `json:"artists"`
	}
	if _, err := c.getJSON(ctx, "getArtists", values("musicFolderId", musicFolderID), &payload); err != nil {
		return nil, err
	}

	var artists []Artist
	for _, idx := range payload.Artists.Index {
		for _, a := range idx.Artist {
			artists = append(artists, a.toArtist())
		}
	}
	return artists, nil
}

// GetArtist returns one artist with its albums. A payload without an artist is reported as [ErrNotFound].
func (c *Client) GetArtist(ctx context.Context, id string) (*Artist, error) {
	var payload struct {
		Artist *artistDTO `json:"artist"`
	}
	if _, err := c.getJSON(ctx, "getArtist", values("id", id), &payload); err != nil {
		return nil, err
	}
	if payload.Artist == nil || payload.Artist.ID == "" {
		return nil, fmt.Errorf("getArtist: %w", NewError(CodeNotFound, "artist "+id+" not found"))
	}

	a := payload.Artist.toArtist()
	return &a, nil
}

// GetAlbum returns the album's playable tracks.
func (c *Client) GetAlbum(ctx context.Context, id string) ([]Track, error) {
	album, err := c.getAlbum(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.decodeTracks("getAlbum", album.Song), nil
}

// GetAlbumInfo returns the album record alongside its playable tracks.
func (c *Client) GetAlbumInfo(ctx context.Context, id string) (*Album, []Track, error) {
	album, err := c.getAlbum(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	a := album.toAlbum()
	return &a, c.decodeTracks("getAlbum", album.Song), nil
}

func (c *Client) getAlbum(ctx context.Context, id string) (*albumDTO, error) {
	var payload struct {
		Album *albumDTO `json:"album"`
	}
	if _, err := c.getJSON(ctx, "getAlbum", values("id", id), &payload); err != nil {
		return nil, err
	}
	if payload.Album == nil {
		return nil, fmt.Errorf("getAlbum: %w", NewError(CodeNotFound, "album "+id+" not found"))
	}
	return payload.Album, nil
}

// GetSong returns the song, or nil when the entry is a video or malformed.
func (c *Client) GetSong(ctx context.Context, id string) (*Track, error) {
	var payload struct {
		Song json.RawMessage `json:"song"`
	}
	if _, err := c.getJSON(ctx, "getSong", values("id", id), &payload); err != nil {
		return nil, err
	}
	if len(payload.Song) == 0 || string(payload.Song) == "null" {
		return nil, nil
	}

	t, ok := c.decodeTrack("getSong", 0, payload.Song)
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// GetRandomSongs returns up to size random songs. Size is clamped to [MaxPageSize]; zero uses the server default.
func (c *Client) GetRandomSongs(ctx context.Context, size int, opts RandomSongsOptions) ([]Track, error) {
	tracks, _, err := c.randomSongs(ctx, size, opts)
	return tracks, err
}

// randomSongs also reports how many entries the server sent before filtering.
func (c *Client) randomSongs(ctx context.Context, size int, opts RandomSongsOptions) ([]Track, int, error) {
	params := values(
		"size", itoa(clampPage(size)),
		"genre", opts.Genre,
		"fromYear", itoa(opts.FromYear),
		"toYear", itoa(opts.ToYear),
		"musicFolderId", opts.MusicFolderID,
	)

	var payload struct {
		RandomSongs struct {
			Song list[json.RawMessage] `json:"song"`
		} `json:"randomSongs"`
	}
	if _, err := c.getJSON(ctx, "getRandomSongs", params, &payload); err != nil {
		return nil, 0, err
	}
	return c.decodeTracks("getRandomSongs", payload.RandomSongs.Song), len(payload.RandomSongs.Song), nil
}

// GetSongsByGenre pages through songs tagged genre. Count is clamped to [MaxPageSize].
func (c *Client) GetSongsByGenre(ctx context.Context, genre string, count, offset int) ([]Track, error) {
	params := values("genre", genre, "count", itoa(clampPage(count)), "offset", itoa(offset))

	var payload struct {
		SongsByGenre struct {
			Song list[json.RawMessage] `json:"song"`
		} `json:"songsByGenre"`
	}
	if _, err := c.getJSON(ctx, "getSongsByGenre", params, &payload); err != nil {
		return nil, err
	}
	return c.decodeTracks("getSongsByGenre", payload.SongsByGenre.Song), nil
}

// GetAlbumList2 lists albums by ID3 tags. Type defaults to alphabeticalByName; size is clamped to [MaxPageSize].
func (c *Client) GetAlbumList2(ctx context.Context, opts AlbumListOptions) ([]Album, error) {
	listType := opts.Type
	if listType == "" {
		listType = "alphabeticalByName"
	}
	params := values(
		"type", listType,
		"size", itoa(clampPage(opts.Size)),
		"offset", itoa(opts.Offset),
		"fromYear", itoa(opts.FromYear),
		"toYear", itoa(opts.ToYear),
		"genre", opts.Genre,
		"musicFolderId", opts.MusicFolderID,
	)

	var payload struct {
		AlbumList2 struct {
			Album list[albumDTO] `json:"album"`
		} `json:"albumList2"`
	}
	if _, err := c.getJSON(ctx, "getAlbumList2", params, &payload); err != nil {
		return nil, err
	}

	albums := make([]Album, 0, len(payload.AlbumList2.Album))
	for _, a := range payload.AlbumList2.Album {
		albums = append(albums, a.toAlbum())
	}
	return albums, nil
}
