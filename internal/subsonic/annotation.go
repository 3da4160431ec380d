package subsonic

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"
)

// Star marks the target songs, albums and artists as favourites.
func (c *Client) Star(ctx context.Context, target StarTarget) error {
	_, err := c.getJSON(ctx, "star", target.params(), nil)
	return err
}

func (c *Client) Unstar(ctx context.Context, target StarTarget) error {
	_, err := c.getJSON(ctx, "unstar", target.params(), nil)
	return err
}

func (t StarTarget) params() url.Values {
	v := url.Values{}
	for _, id := range t.IDs {
		v.Add("id", id)
	}
	for _, id := range t.AlbumIDs {
		v.Add("albumId", id)
	}
	for _, id := range t.ArtistIDs {
		v.Add("artistId", id)
	}
	return v
}

// GetStarred2 returns starred artists, albums and songs organized by ID3 tags.
func (c *Client) GetStarred2(ctx context.Context, musicFolderID string) (*Starred2, error) {
	var payload struct {
		Starred2 searchDTO `json:"starred2"`
	}
	if _, err := c.getJSON(ctx, "getStarred2", values("musicFolderId", musicFolderID), &payload); err != nil {
		return nil, err
	}

	artists, albums, songs := c.splitResult("getStarred2", payload.Starred2)
	return &Starred2{Artists: artists, Albums: albums, Songs: songs}, nil
}

// Scrobble registers a play of id. A zero at means now. With submission false the server only updates now playing.
func (c *Client) Scrobble(ctx context.Context, id string, at time.Time, submission bool) error {
	if at.IsZero() {
		at = time.Now()
	}
	params := values(
		"id", id,
		"time", strconv.FormatInt(at.UnixMilli(), 10),
		"submission", strconv.FormatBool(submission),
	)
	_, err := c.getJSON(ctx, "scrobble", params, nil)
	return err
}

func (c *Client) splitResult(op string, d searchDTO) ([]Artist, []Album, []Track) {
	artists := make([]Artist, 0, len(d.Artist))
	for _, a := range d.Artist {
		artists = append(artists, a.toArtist())
	}
	albums := make([]Album, 0, len(d.Album))
	for _, a := range d.Album {
		albums = append(albums, a.toAlbum())
	}
	return artists, albums, c.decodeTracks(op, []json.RawMessage(d.Song))
}
