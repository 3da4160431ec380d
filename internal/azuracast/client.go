package azuracast

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sonicsync/internal/shared"
	"golang.org/x/oauth2"
)

// Client is the station API consumed by the sync engine.
type Client interface {
	// KnownTracks lists every file in the station's media library.
	KnownTracks(ctx context.Context) ([]Media, error)

	// HasFile reports whether candidate is already among known, returning the matching media.
	HasFile(known []Media, candidate Candidate) (*Media, bool)

	// UploadFile stores data at path in the media library.
	UploadFile(ctx context.Context, data []byte, path string) (*Media, error)

	// Playlist finds a playlist by name. Returns [shared.ErrPlaylistNotFound] when none matches.
	Playlist(ctx context.Context, name string) (*Playlist, error)

	CreatePlaylist(ctx context.Context, name string) (*Playlist, error)

	// ClearPlaylist removes every entry from the named playlist.
	ClearPlaylist(ctx context.Context, name string) error

	// AddToPlaylist assigns the media file to the playlist.
	AddToPlaylist(ctx context.Context, mediaID string, playlistID int) error
}

var _ Client = (*HTTPClient)(nil)

// HTTPClient implements [Client] over the AzuraCast REST API.
type HTTPClient struct {
	baseURL    string
	stationID  string
	httpClient *http.Client
	logger     *log.Logger
}

// NewHTTPClient creates a station client authenticated with cfg.APIKey.
//
// base supplies the underlying transport and may be nil.
func NewHTTPClient(cfg shared.AzuraCastConfig, base *http.Client, logger *log.Logger) (*HTTPClient, error) {
	if !strings.HasPrefix(cfg.URL, "http://") && !strings.HasPrefix(cfg.URL, "https://") {
		return nil, fmt.Errorf("%w: azuracast url must start with http:// or https://", shared.ErrInvalidConfig)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: azuracast api_key", shared.ErrMissingCredentials)
	}
	if cfg.StationID == "" {
		return nil, fmt.Errorf("%w: azuracast station_id is required", shared.ErrInvalidConfig)
	}
	if base == nil {
		base = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIKey, TokenType: "Bearer"})

	return &HTTPClient{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		stationID:  cfg.StationID,
		httpClient: oauth2.NewClient(ctx, ts),
		logger:     logger.With("component", "azuracast"),
	}, nil
}

func (c *HTTPClient) stationPath(format string, args ...any) string {
	return c.baseURL + "/api/station/" + c.stationID + fmt.Sprintf(format, args...)
}

// doRequest performs an authenticated request against the station API and decodes a JSON response into result.
func (c *HTTPClient) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// statusError maps an error response, using the API's message when it sends one.
func statusError(resp *http.Response) error {
	var apiErr struct {
		Message   string `json:"message"`
		FormatMsg string `json:"formatted_message"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&apiErr)

	msg := apiErr.Message
	if msg == "" {
		msg = resp.Status
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: azuracast: %s", shared.ErrInvalidCredentials, msg)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: azuracast: %s", shared.ErrServiceUnavailable, msg)
	default:
		return fmt.Errorf("azuracast API error: status %d: %s", resp.StatusCode, msg)
	}
}

func (c *HTTPClient) KnownTracks(ctx context.Context) ([]Media, error) {
	var media []Media
	if err := c.doRequest(ctx, http.MethodGet, c.stationPath("/files"), nil, &media); err != nil {
		return nil, fmt.Errorf("failed to list station files: %w", err)
	}
	c.logger.Debug("listed station files", "count", len(media))
	return media, nil
}

func (c *HTTPClient) HasFile(known []Media, candidate Candidate) (*Media, bool) {
	for i := range known {
		if candidate.Matches(known[i]) {
			return &known[i], true
		}
	}
	return nil, false
}

// UploadFile sends data base64-encoded in a JSON body, the format AzuraCast's file API accepts.
func (c *HTTPClient) UploadFile(ctx context.Context, data []byte, path string) (*Media, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file %s", shared.ErrUploadFailed, path)
	}

	body := map[string]string{
		"path": path,
		"file": base64.StdEncoding.EncodeToString(data),
	}

	var media Media
	if err := c.doRequest(ctx, http.MethodPost, c.stationPath("/files"), body, &media); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", shared.ErrUploadFailed, path, err)
	}
	if media.ID == "" {
		return nil, fmt.Errorf("%w: %s: response carried no media id", shared.ErrUploadFailed, path)
	}

	c.logger.Info("uploaded file", "path", path, "id", media.ID, "size", len(data))
	return &media, nil
}

func (c *HTTPClient) playlists(ctx context.Context) ([]Playlist, error) {
	var playlists []Playlist
	if err := c.doRequest(ctx, http.MethodGet, c.stationPath("/playlists"), nil, &playlists); err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	return playlists, nil
}

func (c *HTTPClient) Playlist(ctx context.Context, name string) (*Playlist, error) {
	playlists, err := c.playlists(ctx)
	if err != nil {
		return nil, err
	}
	for i := range playlists {
		if strings.EqualFold(playlists[i].Name, name) {
			return &playlists[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, name)
}

// CreatePlaylist creates an enabled, song-based default rotation playlist.
func (c *HTTPClient) CreatePlaylist(ctx context.Context, name string) (*Playlist, error) {
	body := map[string]any{
		"name":       name,
		"type":       "default",
		"source":     "songs",
		"is_enabled": true,
	}

	var p Playlist
	if err := c.doRequest(ctx, http.MethodPost, c.stationPath("/playlists"), body, &p); err != nil {
		return nil, fmt.Errorf("failed to create playlist %s: %w", name, err)
	}
	c.logger.Info("created playlist", "name", name, "id", p.ID)
	return &p, nil
}

func (c *HTTPClient) ClearPlaylist(ctx context.Context, name string) error {
	p, err := c.Playlist(ctx, name)
	if err != nil {
		return err
	}
	if err := c.doRequest(ctx, http.MethodDelete, c.stationPath("/playlist/%d/empty", p.ID), nil, nil); err != nil {
		return fmt.Errorf("failed to clear playlist %s: %w", name, err)
	}
	return nil
}

func (c *HTTPClient) AddToPlaylist(ctx context.Context, mediaID string, playlistID int) error {
	body := map[string]any{"playlists": []int{playlistID}}
	if err := c.doRequest(ctx, http.MethodPut, c.stationPath("/file/%s", mediaID), body, nil); err != nil {
		return fmt.Errorf("failed to add media %s to playlist %d: %w", mediaID, playlistID, err)
	}
	return nil
}
