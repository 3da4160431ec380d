// package formatter renders Subsonic playlists as M3U, CSV, JSON, Markdown and plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/desertthunder/sonicsync/internal/shared"
	"github.com/desertthunder/sonicsync/internal/subsonic"
	"github.com/dustin/go-humanize"
)

// PlaylistExport is a playlist with its resolved tracks.
type PlaylistExport struct {
	Playlist subsonic.Playlist `json:"playlist"`
	Tracks   []subsonic.Track  `json:"tracks"`
}

// NewPlaylistExport wraps p, using its entries as the track list.
func NewPlaylistExport(p *subsonic.Playlist) *PlaylistExport {
	return &PlaylistExport{Playlist: *p, Tracks: p.Entries}
}

// NewTrackExport builds an export for an ad-hoc track list such as search results.
func NewTrackExport(name string, tracks []subsonic.Track) *PlaylistExport {
	duration := 0
	for _, t := range tracks {
		duration += t.Duration
	}
	return &PlaylistExport{
		Playlist: subsonic.Playlist{Name: name, SongCount: len(tracks), Duration: duration, Created: time.Now()},
		Tracks:   tracks,
	}
}

// baseName is the file stem used when the caller does not pick one.
func (e *PlaylistExport) baseName() string {
	if e.Playlist.ID != "" {
		return e.Playlist.ID
	}
	return Slug(e.Playlist.Name)
}

// totalSize sums the sizes the server reported; tracks without a size are skipped.
func (e *PlaylistExport) totalSize() uint64 {
	var n uint64
	for _, t := range e.Tracks {
		if t.Size != nil && *t.Size > 0 {
			n += uint64(*t.Size)
		}
	}
	return n
}

// ExportToCSV converts a PlaylistExport to CSV format with columns: ID, Title, Artist, Album, Genre, Year, Duration
func ExportToCSV(export *PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Album", "Genre", "Year", "Duration"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range export.Tracks {
		year := ""
		if track.Year != nil {
			year = strconv.Itoa(*track.Year)
		}
		record := []string{
			track.ID,
			track.Title,
			track.Artist,
			track.Album,
			track.Genre,
			year,
			strconv.Itoa(track.Duration),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a PlaylistExport to Markdown format with optional cover image
func ExportToMarkdown(export *PlaylistExport, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer
	p := export.Playlist

	fmt.Fprintf(&buf, "# %s\n\n", p.Name)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	if p.Comment != "" {
		fmt.Fprintf(&buf, "**Comment**: %s\n\n", p.Comment)
	}

	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(export.Tracks))
	fmt.Fprintf(&buf, "**Duration**: %s\n", shared.FormatDuration(p.Duration))
	if size := export.totalSize(); size > 0 {
		fmt.Fprintf(&buf, "**Size**: %s\n", humanize.Bytes(size))
	}
	if p.Owner != "" {
		fmt.Fprintf(&buf, "**Owner**: %s\n", p.Owner)
	}
	fmt.Fprintf(&buf, "**Visibility**: %s\n\n", shared.VisibilityString(p.Public))

	buf.WriteString("## Tracks\n\n")
	for i, track := range export.Tracks {
		duration := shared.FormatDuration(track.Duration)
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]\n", i+1, track.Artist, track.Title, albumPart, duration)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a PlaylistExport to plain text format
func ExportToText(export *PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	p := export.Playlist

	fmt.Fprintf(&buf, "Playlist: %s\n", p.Name)
	if p.Comment != "" {
		fmt.Fprintf(&buf, "Comment: %s\n", p.Comment)
	}
	if !p.Changed.IsZero() {
		fmt.Fprintf(&buf, "Changed: %s\n", humanize.Time(p.Changed))
	}
	fmt.Fprintf(&buf, "Tracks: %s\n\n", humanize.Comma(int64(len(export.Tracks))))

	for i, track := range export.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, track.Artist, track.Title)
	}

	return buf.Bytes(), nil
}

// ExportToJSON renders the playlist with its tracks as indented JSON
func ExportToJSON(export *PlaylistExport) ([]byte, error) {
	return shared.MarshalJSON(export, true)
}

// ToMetadataJSON generates a JSON representation of playlist metadata (without tracks)
func ToMetadataJSON(playlist subsonic.Playlist) ([]byte, error) {
	playlist.Entries = nil
	return shared.MarshalJSON(playlist, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport exports a playlist to CSV format with accompanying metadata JSON file.
//
// Defaults to playlist ID as the base filename & creates {base}_tracks.csv and {base}_metadata.json
func WriteCSVExport(export *PlaylistExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = export.baseName()
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(export.Playlist)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		TracksFile:   tracksFile,
		MetadataFile: metadataFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport exports a playlist to Markdown format in a dedicated directory.
//
// Directory name defaults to the playlist ID. cover holds the playlist's cover art as fetched
// with getCoverArt and may be nil. Creates {dir}/README.md and optionally {dir}/cover.jpg
func WriteMarkdownExport(export *PlaylistExport, outputDir string, cover []byte) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = export.baseName()
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if len(cover) > 0 {
		coverImageFilename = "cover.jpg"
		coverImagePath := filepath.Join(outputDir, coverImageFilename)
		if err := os.WriteFile(coverImagePath, cover, 0644); err != nil {
			return nil, fmt.Errorf("failed to save cover image: %w", err)
		}
		result.CoverImage = coverImagePath
		result.Files = append(result.Files, coverImagePath)
	}

	mdData, err := ExportToMarkdown(export, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport exports a playlist to plain text format.
//
// Defaults to {playlist.ID}_tracks.txt as the filename.
func WriteTextExport(export *PlaylistExport, path string) (string, error) {
	if path == "" {
		path = export.baseName() + "_tracks.txt"
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// WriteJSONExport writes the playlist and its tracks to {playlist.ID}.json unless path is given.
func WriteJSONExport(export *PlaylistExport, path string) (string, error) {
	if path == "" {
		path = export.baseName() + ".json"
	}

	data, err := ExportToJSON(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate JSON: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write JSON file: %w", err)
	}

	return path, nil
}
