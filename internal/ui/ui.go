package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/sonicsync/internal/subsonic"
	"github.com/desertthunder/sonicsync/internal/tasks"
	"github.com/dustin/go-humanize"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ArtistView ViewState = iota
	AlbumView
	TrackView
	ConfirmView
	DownloadView
	ResultView
)

// Library is the slice of the Subsonic client the browser needs.
type Library interface {
	GetArtists(ctx context.Context, musicFolderID string) ([]subsonic.Artist, error)
	GetArtist(ctx context.Context, id string) (*subsonic.Artist, error)
	GetAlbumInfo(ctx context.Context, id string) (*subsonic.Album, []subsonic.Track, error)
	DownloadTo(ctx context.Context, id string, w io.Writer) (int64, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx         context.Context
	view        ViewState
	library     Library
	downloadDir string
	width       int
	height      int
	artistList  list.Model
	albumList   list.Model
	trackList   list.Model
	artist      *subsonic.Artist
	album       *subsonic.Album
	selected    *subsonic.Track
	savedPath   string
	savedBytes  int64
	loading     bool
	err         error
	help        help.Model
	keys        keyMap
}

// NewModel creates a browser over library that saves downloads into dir (the working directory when empty).
func NewModel(ctx context.Context, library Library, dir string) *Model {
	if dir == "" {
		dir = "."
	}
	return &Model{
		ctx:         ctx,
		view:        ArtistView,
		library:     library,
		downloadDir: dir,
		artistList:  newList("Artists", nil),
		albumList:   newList("Albums", nil),
		trackList:   newList("Tracks", nil),
		loading:     true,
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

func newList(title string, items []list.Item) list.Model {
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	return l
}

// View reports which screen is active.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.frame.Render(styles.err.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n" + m.helpView(m.keys.back, m.keys.quit))
	}

	switch m.view {
	case ArtistView:
		if m.loading {
			return styles.frame.Render(styles.help.Render("Loading artists..."))
		}
		return m.renderList(m.artistList, m.keys.enter, m.keys.quit)
	case AlbumView:
		return m.renderList(m.albumList, m.keys.enter, m.keys.back, m.keys.quit)
	case TrackView:
		return m.renderList(m.trackList, m.keys.download, m.keys.back, m.keys.quit)
	case ConfirmView:
		return m.renderConfirm()
	case DownloadView:
		return styles.frame.Render(styles.title.Render("Downloading") + "\n" + m.selected.Title + " → " + m.target())
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

// State returns the active view.
func (m *Model) State() ViewState { return m.view }

// Init fetches the artist index.
func (m *Model) Init() tea.Cmd {
	return m.fetchArtists()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		for _, l := range []*list.Model{&m.artistList, &m.albumList, &m.trackList} {
			l.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgArtistsFetched:
		p := msg.data.(artistsPayload)
		m.loading = false
		if p.err != nil {
			m.err = p.err
			return m, nil
		}
		items := make([]list.Item, len(p.artists))
		for i, a := range p.artists {
			items[i] = artistItem{artist: a}
		}
		m.artistList.SetItems(items)
	case MsgAlbumsFetched:
		p := msg.data.(albumsPayload)
		if p.err != nil {
			m.err = p.err
			return m, nil
		}
		m.artist = p.artist
		items := make([]list.Item, len(p.artist.Albums))
		for i, a := range p.artist.Albums {
			items[i] = albumItem{album: a}
		}
		m.albumList.Title = p.artist.Name
		m.albumList.SetItems(items)
		m.albumList.ResetSelected()
		m.view = AlbumView
	case MsgTracksFetched:
		p := msg.data.(tracksPayload)
		if p.err != nil {
			m.err = p.err
			return m, nil
		}
		m.album = p.album
		items := make([]list.Item, len(p.tracks))
		for i, t := range p.tracks {
			items[i] = trackItem{track: t}
		}
		m.trackList.Title = fmt.Sprintf("%s • %s", p.album.Artist, p.album.Name)
		m.trackList.SetItems(items)
		m.trackList.ResetSelected()
		m.view = TrackView
	case MsgDownloadComplete:
		p := msg.data.(downloadPayload)
		m.savedPath, m.savedBytes, m.err = p.path, p.bytes, p.err
		m.view = ResultView
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.quit) && !m.filtering() {
		return m, tea.Quit
	}

	if m.err != nil && m.view != ResultView {
		if key.Matches(msg, m.keys.back) {
			m.err = nil
		}
		return m, nil
	}

	switch m.view {
	case ArtistView:
		if key.Matches(msg, m.keys.enter) && !m.filtering() {
			if it, ok := m.artistList.SelectedItem().(artistItem); ok {
				return m, m.fetchAlbums(it.artist.ID)
			}
		}
	case AlbumView:
		if m.filtering() {
			break
		}
		switch {
		case key.Matches(msg, m.keys.back):
			m.view = ArtistView
			return m, nil
		case key.Matches(msg, m.keys.enter):
			if it, ok := m.albumList.SelectedItem().(albumItem); ok {
				return m, m.fetchTracks(it.album.ID)
			}
		}
	case TrackView:
		if m.filtering() {
			break
		}
		switch {
		case key.Matches(msg, m.keys.back):
			m.view = AlbumView
			return m, nil
		case key.Matches(msg, m.keys.download):
			if it, ok := m.trackList.SelectedItem().(trackItem); ok {
				t := it.track
				m.selected = &t
				m.view = ConfirmView
			}
			return m, nil
		}
	case ConfirmView:
		switch {
		case key.Matches(msg, m.keys.yes):
			m.view = DownloadView
			return m, m.download(*m.selected, m.target())
		case key.Matches(msg, m.keys.no):
			m.view = TrackView
		}
		return m, nil
	case DownloadView:
		return m, nil
	case ResultView:
		if key.Matches(msg, m.keys.restart) || key.Matches(msg, m.keys.back) {
			m.view = TrackView
			m.selected = nil
			m.savedPath, m.savedBytes, m.err = "", 0, nil
		}
		return m, nil
	}

	return m.updateLists(msg)
}

func (m *Model) filtering() bool {
	switch m.view {
	case ArtistView:
		return m.artistList.FilterState() == list.Filtering
	case AlbumView:
		return m.albumList.FilterState() == list.Filtering
	case TrackView:
		return m.trackList.FilterState() == list.Filtering
	}
	return false
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case ArtistView:
		m.artistList, cmd = m.artistList.Update(msg)
	case AlbumView:
		m.albumList, cmd = m.albumList.Update(msg)
	case TrackView:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

// target is where the selected track is written.
func (m *Model) target() string {
	if m.selected == nil {
		return ""
	}
	return filepath.Join(m.downloadDir, filepath.Base(tasks.RemotePath(m.selected)))
}

func (m *Model) fetchArtists() tea.Cmd {
	return func() tea.Msg {
		artists, err := m.library.GetArtists(m.ctx, "")
		return artistsFetchedMsg(artists, err)
	}
}

func (m *Model) fetchAlbums(artistID string) tea.Cmd {
	return func() tea.Msg {
		artist, err := m.library.GetArtist(m.ctx, artistID)
		return albumsFetchedMsg(artist, err)
	}
}

func (m *Model) fetchTracks(albumID string) tea.Cmd {
	return func() tea.Msg {
		album, tracks, err := m.library.GetAlbumInfo(m.ctx, albumID)
		return tracksFetchedMsg(album, tracks, err)
	}
}

func (m *Model) download(track subsonic.Track, path string) tea.Cmd {
	return func() tea.Msg {
		n, err := saveTrack(m.ctx, m.library, track.ID, path)
		return downloadCompleteMsg(path, n, err)
	}
}

// saveTrack streams a track into path, removing the partial file on failure.
func saveTrack(ctx context.Context, lib Library, id, path string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create download directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}

	n, err := lib.DownloadTo(ctx, id, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return 0, err
	}
	return n, nil
}

func (m *Model) helpView(keys ...key.Binding) string {
	return m.help.ShortHelpView(keys)
}

func (m *Model) renderList(l list.Model, keys ...key.Binding) string {
	return fmt.Sprintf("%s\n\n%s", l.View(), m.helpView(keys...))
}

func (m *Model) renderConfirm() string {
	t := m.selected
	title := styles.title.Render(fmt.Sprintf("Download '%s'?", t.Title))

	var b strings.Builder
	fmt.Fprintf(&b, "Artist: %s\nAlbum:  %s\n", t.Artist, t.Album)
	if t.Size != nil {
		fmt.Fprintf(&b, "Size:   %s\n", humanize.Bytes(uint64(*t.Size)))
	}
	fmt.Fprintf(&b, "Target: %s\n", m.target())

	return styles.frame.Render(fmt.Sprintf("%s\n%s\n%s", title, b.String(), m.helpView(m.keys.yes, m.keys.no, m.keys.quit)))
}

func (m *Model) renderResult() string {
	keys := m.helpView(m.keys.restart, m.keys.quit)
	if m.err != nil {
		return styles.frame.Render(styles.err.Render(fmt.Sprintf("Download failed: %v", m.err)) + "\n\n" + keys)
	}

	title := styles.ok.Render("✓ Download complete")
	info := fmt.Sprintf("\n%s\n%s", m.savedPath, styles.help.Render(humanize.Bytes(uint64(m.savedBytes))))
	return styles.frame.Render(fmt.Sprintf("%s\n%s\n\n%s", title, info, keys))
}
