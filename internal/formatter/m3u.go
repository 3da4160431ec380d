package formatter

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/desertthunder/sonicsync/internal/subsonic"
)

const (
	m3uHeader = "#EXTM3U"
	m3uInfo   = "#EXTINF:"
)

// M3UEntry is one track of an extended M3U playlist.
//
// Location is the line that follows the #EXTINF directive. For playlists written by sonicsync it is
// the bare Subsonic track id, or a stream URL carrying the id in its query string.
type M3UEntry struct {
	ID       string
	Location string
	Duration int
	Artist   string
	Title    string
}

// EntryFromTrack builds the entry written for t.
func EntryFromTrack(t subsonic.Track) M3UEntry {
	return M3UEntry{ID: t.ID, Location: t.ID, Duration: t.Duration, Artist: t.Artist, Title: t.Title}
}

// WriteM3U writes entries as an extended M3U playlist.
func WriteM3U(w io.Writer, entries []M3UEntry) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, m3uHeader)
	for _, e := range entries {
		location := e.Location
		if location == "" {
			location = e.ID
		}
		fmt.Fprintf(bw, "%s%d,%s\n", m3uInfo, e.Duration, displayName(e.Artist, e.Title))
		fmt.Fprintln(bw, location)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write M3U: %w", err)
	}
	return nil
}

func displayName(artist, title string) string {
	artist = strings.TrimSpace(sanitizeLine(artist))
	title = strings.TrimSpace(sanitizeLine(title))
	if artist == "" {
		return title
	}
	return artist + " - " + title
}

// sanitizeLine keeps a field on its own line.
func sanitizeLine(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return ' '
		}
		return r
	}, s)
}

// ExportToM3U renders the export with bare track ids as locations.
func ExportToM3U(export *PlaylistExport) ([]byte, error) {
	return ExportToM3UWith(export, nil)
}

// ExportToM3UWith renders the export using location to turn each track into the line players open.
// A nil location writes bare ids.
func ExportToM3UWith(export *PlaylistExport, location func(subsonic.Track) string) ([]byte, error) {
	entries := make([]M3UEntry, 0, len(export.Tracks))
	for _, t := range export.Tracks {
		e := EntryFromTrack(t)
		if location != nil {
			e.Location = location(t)
		}
		entries = append(entries, e)
	}

	var buf bytes.Buffer
	if err := WriteM3U(&buf, entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteM3UExport writes the export to path, defaulting to {playlist.ID}.m3u.
func WriteM3UExport(export *PlaylistExport, path string) (string, error) {
	if path == "" {
		path = export.baseName() + ".m3u"
	}

	data, err := ExportToM3U(export)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write M3U file: %w", err)
	}
	return path, nil
}

// ParseM3U reads an M3U playlist. The #EXTM3U header is optional and comment lines are skipped.
// An #EXTINF directive applies to the next location line only.
func ParseM3U(r io.Reader) ([]M3UEntry, error) {
	var (
		entries []M3UEntry
		pending *M3UEntry
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff"))
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, m3uInfo):
			e, err := parseInfo(strings.TrimPrefix(line, m3uInfo))
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", n, err)
			}
			pending = &e
		case strings.HasPrefix(line, "#"):
			continue
		default:
			e := M3UEntry{Duration: -1}
			if pending != nil {
				e = *pending
				pending = nil
			}
			e.Location = line
			e.ID = IDFromLocation(line)
			entries = append(entries, e)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read M3U: %w", err)
	}
	return entries, nil
}

// parseInfo decodes "<duration>,<artist> - <title>".
func parseInfo(s string) (M3UEntry, error) {
	durationPart, name, ok := strings.Cut(s, ",")
	if !ok {
		return M3UEntry{}, fmt.Errorf("malformed #EXTINF %q", s)
	}

	// attributes such as tvg-id="..." may follow the duration
	if i := strings.IndexFunc(durationPart, unicode.IsSpace); i > 0 {
		durationPart = durationPart[:i]
	}
	duration, err := strconv.Atoi(strings.TrimSpace(durationPart))
	if err != nil {
		return M3UEntry{}, fmt.Errorf("malformed #EXTINF duration %q", durationPart)
	}

	e := M3UEntry{Duration: duration}
	if artist, title, found := strings.Cut(name, " - "); found {
		e.Artist, e.Title = strings.TrimSpace(artist), strings.TrimSpace(title)
	} else {
		e.Title = strings.TrimSpace(name)
	}
	return e, nil
}

// IDFromLocation extracts the Subsonic track id from an M3U location: the id query parameter of a
// stream URL, or the location itself when it is a bare id. File paths yield "".
func IDFromLocation(location string) string {
	if u, err := url.Parse(location); err == nil && u.Scheme != "" && u.Host != "" {
		return u.Query().Get("id")
	}
	if strings.ContainsAny(location, `/\`) || hasAudioExt(location) {
		return ""
	}
	return location
}

func hasAudioExt(s string) bool {
	lower := strings.ToLower(s)
	for _, ext := range []string{".mp3", ".flac", ".ogg", ".opus", ".m4a", ".aac", ".wav"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// ReadM3UFile parses the playlist at path.
func ReadM3UFile(path string) ([]M3UEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open playlist: %w", err)
	}
	defer f.Close()
	return ParseM3U(f)
}

// Slug turns a playlist name into a file name stem.
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		return "playlist"
	}
	return s
}
