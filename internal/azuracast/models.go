package azuracast

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/desertthunder/sonicsync/internal/shared"
)

// Media is a file in the station's media library.
type Media struct {
	ID       string  `json:"id"`
	UniqueID string  `json:"unique_id"`
	Path     string  `json:"path"`
	Title    string  `json:"title"`
	Artist   string  `json:"artist"`
	Album    string  `json:"album"`
	Genre    string  `json:"genre"`
	Length   float64 `json:"length"`
}

// UnmarshalJSON accepts numeric media ids, which is what AzuraCast sends.
func (m *Media) UnmarshalJSON(data []byte) error {
	type alias Media
	var raw struct {
		alias
		ID json.Number `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Media(raw.alias)
	m.ID = raw.ID.String()
	return nil
}

// Playlist is a station playlist.
type Playlist struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Source    string `json:"source"`
	IsEnabled bool   `json:"is_enabled"`
	NumSongs  int    `json:"num_songs"`
}

// IDString is the playlist id as used in URL paths.
func (p Playlist) IDString() string {
	return strconv.Itoa(p.ID)
}

// Candidate describes a track that may or may not already be on the station.
type Candidate struct {
	Title  string
	Artist string
	Album  string
}

// Matches reports whether m holds the same recording as c: title and artist must match ignoring case and
// whitespace, and the album must match too when both sides carry one.
func (c Candidate) Matches(m Media) bool {
	if shared.NormalizeTrackKey(c.Title, c.Artist) != shared.NormalizeTrackKey(m.Title, m.Artist) {
		return false
	}
	if strings.TrimSpace(c.Album) == "" || strings.TrimSpace(m.Album) == "" {
		return true
	}
	return shared.NormalizeText(c.Album) == shared.NormalizeText(m.Album)
}
