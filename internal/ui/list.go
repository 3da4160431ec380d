package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/sonicsync/internal/subsonic"
)

var (
	_ list.Item = artistItem{}
	_ list.Item = albumItem{}
	_ list.Item = trackItem{}
)

// artistItem wraps [subsonic.Artist] to implement [list.Item].
type artistItem struct {
	artist subsonic.Artist
}

func (i artistItem) FilterValue() string { return i.artist.Name }
func (i artistItem) Title() string       { return i.artist.Name }
func (i artistItem) Description() string {
	if i.artist.AlbumCount == 1 {
		return "1 album"
	}
	return fmt.Sprintf("%d albums", i.artist.AlbumCount)
}

// albumItem wraps [subsonic.Album] to implement [list.Item].
type albumItem struct {
	album subsonic.Album
}

func (i albumItem) FilterValue() string { return i.album.Name }
func (i albumItem) Title() string       { return i.album.Name }
func (i albumItem) Description() string {
	parts := []string{fmt.Sprintf("%d tracks", i.album.SongCount)}
	if i.album.Year != nil && *i.album.Year > 0 {
		parts = append(parts, fmt.Sprint(*i.album.Year))
	}
	if i.album.Genre != "" {
		parts = append(parts, i.album.Genre)
	}
	return strings.Join(parts, " • ")
}

// trackItem wraps [subsonic.Track] to implement [list.Item].
type trackItem struct {
	track subsonic.Track
}

func (i trackItem) FilterValue() string { return i.track.Title }
func (i trackItem) Title() string {
	if i.track.Track != nil && *i.track.Track > 0 {
		return fmt.Sprintf("%02d. %s", *i.track.Track, i.track.Title)
	}
	return i.track.Title
}
func (i trackItem) Description() string {
	desc := fmt.Sprintf("%d:%02d", i.track.Duration/60, i.track.Duration%60)
	if i.track.Artist != "" {
		desc = fmt.Sprintf("%s • %s", i.track.Artist, desc)
	}
	return desc
}
