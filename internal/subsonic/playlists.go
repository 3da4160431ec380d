package subsonic

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// GetPlaylists lists playlists visible to the user, or to username when an admin asks on their behalf.
func (c *Client) GetPlaylists(ctx context.Context, username string) ([]Playlist, error) {
	var payload struct {
		Playlists struct {
			Playlist list[playlistDTO] `json:"playlist"`
		} `json:"playlists"`
	}
	if _, err := c.getJSON(ctx, "getPlaylists", values("username", username), &payload); err != nil {
		return nil, err
	}

	playlists := make([]Playlist, 0, len(payload.Playlists.Playlist))
	for _, p := range payload.Playlists.Playlist {
		playlists = append(playlists, p.toPlaylist())
	}
	return playlists, nil
}

// GetPlaylist returns a playlist with its playable entries.
func (c *Client) GetPlaylist(ctx context.Context, id string) (*Playlist, error) {
	var payload struct {
		Playlist *playlistDTO `json:"playlist"`
	}
	if _, err := c.getJSON(ctx, "getPlaylist", values("id", id), &payload); err != nil {
		return nil, err
	}
	if payload.Playlist == nil {
		return nil, fmt.Errorf("getPlaylist: %w", NewError(CodeNotFound, "playlist "+id+" not found"))
	}

	p := payload.Playlist.toPlaylist()
	p.Entries = c.decodeTracks("getPlaylist", payload.Playlist.Entry)
	return &p, nil
}

// CreatePlaylist creates a playlist holding songIDs in order.
//
// Servers older than 1.14.0 answer with an empty envelope; the returned playlist then only carries the name.
func (c *Client) CreatePlaylist(ctx context.Context, name string, songIDs []string) (*Playlist, error) {
	params := values("name", name)
	for _, id := range songIDs {
		params.Add("songId", id)
	}

	var payload struct {
		Playlist *playlistDTO `json:"playlist"`
	}
	if _, err := c.getJSON(ctx, "createPlaylist", params, &payload); err != nil {
		return nil, err
	}
	if payload.Playlist == nil {
		return &Playlist{Name: name, SongCount: len(songIDs)}, nil
	}

	p := payload.Playlist.toPlaylist()
	p.Entries = c.decodeTracks("createPlaylist", payload.Playlist.Entry)
	return &p, nil
}

// UpdatePlaylist renames, re-describes or edits the entries of a playlist owned by the user.
func (c *Client) UpdatePlaylist(ctx context.Context, id string, update PlaylistUpdate) error {
	params := url.Values{"playlistId": {id}}
	if update.Name != nil {
		params.Set("name", *update.Name)
	}
	if update.Comment != nil {
		params.Set("comment", *update.Comment)
	}
	if update.Public != nil {
		params.Set("public", strconv.FormatBool(*update.Public))
	}
	for _, songID := range update.SongIDsToAdd {
		params.Add("songIdToAdd", songID)
	}
	for _, idx := range update.SongIndexesToRemove {
		params.Add("songIndexToRemove", strconv.Itoa(idx))
	}

	_, err := c.getJSON(ctx, "updatePlaylist", params, nil)
	return err
}

func (c *Client) DeletePlaylist(ctx context.Context, id string) error {
	_, err := c.getJSON(ctx, "deletePlaylist", values("id", id), nil)
	return err
}
