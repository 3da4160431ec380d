package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sonicsync/internal/formatter"
	"github.com/desertthunder/sonicsync/internal/shared"
	"github.com/desertthunder/sonicsync/internal/subsonic"
)

// Library is the part of the Subsonic client the server needs.
type Library interface {
	Ping(ctx context.Context) error
	Capabilities() subsonic.ServerInfo
	GetPlaylists(ctx context.Context, username string) ([]subsonic.Playlist, error)
	GetPlaylist(ctx context.Context, id string) (*subsonic.Playlist, error)
	StreamURL(id string) (string, error)
}

var _ Library = (*subsonic.Client)(nil)

const pingTimeout = 5 * time.Second

// HealthHandler reports whether the Subsonic server answers a ping.
type HealthHandler struct {
	library Library
}

func NewHealthHandler(library Library) *HealthHandler {
	return &HealthHandler{library: library}
}

func (h *HealthHandler) Routes() []string {
	return []string{"GET /health"}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	if err := h.library.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "error": err.Error()})
		return
	}

	info := h.library.Capabilities()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"api_version":    info.Version,
		"server":         info.Type,
		"server_version": info.ServerVersion,
		"open_subsonic":  info.OpenSubsonic,
	})
}

// PlaylistHandler serves the library's playlists as M3U feeds whose entries stream from Subsonic.
//
//	GET /playlists            JSON list of playlists with their feed paths
//	GET /playlists/{id}.m3u   the playlist as extended M3U
type PlaylistHandler struct {
	library Library
	logger  *log.Logger
}

func NewPlaylistHandler(library Library, logger *log.Logger) *PlaylistHandler {
	return &PlaylistHandler{library: library, logger: logger}
}

func (h *PlaylistHandler) Routes() []string {
	return []string{"GET /playlists", "GET /playlists/{file}"}
}

func (h *PlaylistHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	file := r.PathValue("file")
	if file == "" {
		h.list(w, r)
		return
	}

	id, ok := strings.CutSuffix(file, ".m3u")
	if !ok || id == "" {
		http.NotFound(w, r)
		return
	}
	h.feed(w, r, id)
}

type playlistSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Owner     string `json:"owner,omitempty"`
	SongCount int    `json:"song_count"`
	Duration  string `json:"duration"`
	Feed      string `json:"feed"`
}

func (h *PlaylistHandler) list(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.library.GetPlaylists(r.Context(), "")
	if err != nil {
		h.fail(w, err)
		return
	}

	out := make([]playlistSummary, 0, len(playlists))
	for _, p := range playlists {
		out = append(out, playlistSummary{
			ID:        p.ID,
			Name:      p.Name,
			Owner:     p.Owner,
			SongCount: p.SongCount,
			Duration:  shared.FormatDuration(p.Duration),
			Feed:      "/playlists/" + p.ID + ".m3u",
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *PlaylistHandler) feed(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.library.GetPlaylist(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}

	var urlErr error
	data, err := formatter.ExportToM3UWith(formatter.NewPlaylistExport(p), func(t subsonic.Track) string {
		u, err := h.library.StreamURL(t.ID)
		if err != nil && urlErr == nil {
			urlErr = err
		}
		return u
	})
	if err == nil {
		err = urlErr
	}
	if err != nil {
		h.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "audio/x-mpegurl; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="`+formatter.Slug(p.Name)+`.m3u"`)
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

// fail maps library errors to HTTP statuses.
func (h *PlaylistHandler) fail(w http.ResponseWriter, err error) {
	var he *subsonic.HTTPError
	switch {
	case errors.Is(err, subsonic.ErrNotFound):
		http.Error(w, "playlist not found", http.StatusNotFound)
	case errors.Is(err, subsonic.ErrParameter):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, subsonic.ErrAuthentication), errors.Is(err, subsonic.ErrAuthorization), errors.As(err, &he):
		h.logger.Error("subsonic request failed", "err", err)
		http.Error(w, "upstream error", http.StatusBadGateway)
	default:
		h.logger.Error("playlist request failed", "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := shared.MarshalJSON(v, true)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
