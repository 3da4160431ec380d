package formatter

import (
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/sonicsync/internal/shared"
)

// ManifestEntry records the outcome of one playlist in a bulk export.
type ManifestEntry struct {
	PlaylistID   string
	PlaylistName string
	Success      bool
	Files        []string
	Err          error
}

type manifest struct {
	Format            string             `json:"format"`
	ExportedAt        time.Time          `json:"exported_at"`
	TotalPlaylists    int                `json:"total_playlists"`
	SuccessfulExports int                `json:"successful_exports"`
	FailedExports     int                `json:"failed_exports"`
	Playlists         []manifestPlaylist `json:"playlists"`
}

type manifestPlaylist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Status string   `json:"status"`
	Files  []string `json:"files,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// WriteBulkExportManifest writes a JSON summary of a bulk export to path.
func WriteBulkExportManifest(entries []ManifestEntry, format, path string) error {
	m := manifest{
		Format:         format,
		ExportedAt:     time.Now().UTC(),
		TotalPlaylists: len(entries),
		Playlists:      make([]manifestPlaylist, 0, len(entries)),
	}

	for _, e := range entries {
		p := manifestPlaylist{ID: e.PlaylistID, Name: e.PlaylistName, Files: e.Files, Status: "success"}
		if e.Success {
			m.SuccessfulExports++
		} else {
			m.FailedExports++
			p.Status = "failed"
			if e.Err != nil {
				p.Error = e.Err.Error()
			}
		}
		m.Playlists = append(m.Playlists, p)
	}

	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
