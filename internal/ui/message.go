package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/sonicsync/internal/subsonic"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgArtistsFetched MsgKind = iota
	MsgAlbumsFetched
	MsgTracksFetched
	MsgDownloadComplete
)

type artistsPayload struct {
	artists []subsonic.Artist
	err     error
}

type albumsPayload struct {
	artist *subsonic.Artist
	err    error
}

type tracksPayload struct {
	album  *subsonic.Album
	tracks []subsonic.Track
	err    error
}

type downloadPayload struct {
	path  string
	bytes int64
	err   error
}

// artistsFetchedMsg is the constructor for [MsgArtistsFetched]
func artistsFetchedMsg(artists []subsonic.Artist, err error) Msg {
	return Msg{kind: MsgArtistsFetched, data: artistsPayload{artists, err}}
}

// albumsFetchedMsg is the constructor for [MsgAlbumsFetched]
func albumsFetchedMsg(artist *subsonic.Artist, err error) Msg {
	return Msg{kind: MsgAlbumsFetched, data: albumsPayload{artist, err}}
}

// tracksFetchedMsg is the constructor for [MsgTracksFetched]
func tracksFetchedMsg(album *subsonic.Album, tracks []subsonic.Track, err error) Msg {
	return Msg{kind: MsgTracksFetched, data: tracksPayload{album, tracks, err}}
}

// downloadCompleteMsg is the constructor for [MsgDownloadComplete]
func downloadCompleteMsg(path string, n int64, err error) Msg {
	return Msg{kind: MsgDownloadComplete, data: downloadPayload{path, n, err}}
}
