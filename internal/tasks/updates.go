package tasks

import (
	"fmt"

	"github.com/desertthunder/sonicsync/internal/formatter"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchPlaylist Phase = iota
	FetchStation
	PreparePlaylist
	ResolveTracks
	TransferTracks
	LinkTracks
	ExportPlaylist
	WatchPlaylists
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylist:
		return "fetch_playlist"
	case FetchStation:
		return "fetch_station"
	case PreparePlaylist:
		return "prepare_playlist"
	case ResolveTracks:
		return "resolve_tracks"
	case TransferTracks:
		return "transfer_tracks"
	case LinkTracks:
		return "link_tracks"
	case ExportPlaylist:
		return "export_playlist"
	case WatchPlaylists:
		return "watch_playlists"
	default:
		return ""
	}
}

func fetchPlaylistUpdate(source string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Reading playlist %s...", source),
	}
}

func foundPlaylistUpdate(export *formatter.PlaylistExport) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found playlist: %s (%d tracks)", export.Playlist.Name, len(export.Tracks)),
		Data:    export,
	}
}

func fetchStationUpdate(known int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchStation,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Station library holds %d files", known),
	}
}

func preparePlaylistUpdate(name string, created bool) ProgressUpdate {
	msg := fmt.Sprintf("Clearing station playlist %s...", name)
	if created {
		msg = fmt.Sprintf("Created station playlist %s", name)
	}
	return ProgressUpdate{
		Phase:   PreparePlaylist,
		Step:    1,
		Total:   1,
		Message: msg,
	}
}

func trackResultUpdate(step, total int, res TrackSyncResult) ProgressUpdate {
	var msg string
	switch {
	case res.Err != nil:
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.Label(), res.Err)
	case res.Uploaded:
		msg = fmt.Sprintf("[%d/%d] ↑ %s", step, total, res.Label())
	default:
		msg = fmt.Sprintf("[%d/%d] ✓ %s (already on station)", step, total, res.Label())
	}
	return ProgressUpdate{
		Phase:   TransferTracks,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    res,
	}
}

func linkTracksUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LinkTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Adding %d tracks to %s...", total, name),
	}
}

func exportingPlaylistUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, name),
	}
}

func exportCompletedUpdate(step, total int, name string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, name, filesCount),
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}

func watchUpdate(path string, err error) ProgressUpdate {
	msg := fmt.Sprintf("Synced %s", path)
	if err != nil {
		msg = fmt.Sprintf("Sync of %s failed: %v", path, err)
	}
	return ProgressUpdate{
		Phase:   WatchPlaylists,
		Step:    1,
		Total:   1,
		Message: msg,
	}
}
