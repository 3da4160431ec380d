package enhancer

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/desertthunder/sonicsync/internal/shared"
)

const LastFMBaseURL = "https://ws.audioscrobbler.com/2.0/"

// Last.fm error codes with a meaning of their own.
const (
	lastFMInvalidParams = 6
	lastFMInvalidKey    = 10
	lastFMUnavailable   = 16
	lastFMRateLimited   = 29
)

var ErrLastFM = errors.New("last.fm error")

// TrackInfo is what a [Lookup] knows about a recording.
type TrackInfo struct {
	Genre   string
	Country string
	Tags    []string
}

// Lookup finds remote metadata for a recording. It returns [shared.ErrTrackNotFound] when the
// service does not know the track.
type Lookup interface {
	TrackInfo(ctx context.Context, artist, title string) (*TrackInfo, error)
}

type (
	lfmResponse struct {
		XMLName xml.Name  `xml:"lfm"`
		Status  string    `xml:"status,attr"`
		Error   lfmError  `xml:"error"`
		Track   lfmTrack  `xml:"track"`
		Artist  lfmArtist `xml:"artist"`
	}

	lfmError struct {
		Code  int    `xml:"code,attr"`
		Value string `xml:",chardata"`
	}

	lfmTag struct {
		Name string `xml:"name"`
	}

	lfmTrack struct {
		Name    string `xml:"name"`
		MBID    string `xml:"mbid"`
		TopTags struct {
			Tags []lfmTag `xml:"tag"`
		} `xml:"toptags"`
	}

	lfmArtist struct {
		Name string `xml:"name"`
		Tags struct {
			Tags []lfmTag `xml:"tag"`
		} `xml:"tags"`
	}
)

// LastFMClient implements [Lookup] against the Last.fm web service.
type LastFMClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	secret     string
}

// NewLastFMClient creates a client for cfg. httpClient may be nil.
func NewLastFMClient(cfg shared.LastFMConfig, httpClient *http.Client) (*LastFMClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: lastfm api_key", shared.ErrMissingCredentials)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &LastFMClient{httpClient: httpClient, baseURL: LastFMBaseURL, apiKey: cfg.APIKey, secret: cfg.Secret}, nil
}

// WithBaseURL points the client at another endpoint.
func (c *LastFMClient) WithBaseURL(u string) *LastFMClient {
	c.baseURL = u
	return c
}

// TrackInfo resolves genre from the track's top tags and country from the artist's tags.
func (c *LastFMClient) TrackInfo(ctx context.Context, artist, title string) (*TrackInfo, error) {
	params := url.Values{}
	params.Add("method", "track.getInfo")
	params.Add("artist", artist)
	params.Add("track", title)
	params.Add("autocorrect", "1")

	resp, err := c.makeRequest(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("track.getInfo %s - %s: %w", artist, title, err)
	}

	info := &TrackInfo{Tags: tagNames(resp.Track.TopTags.Tags)}
	info.Genre = genreFromTags(info.Tags)

	params = url.Values{}
	params.Add("method", "artist.getInfo")
	params.Add("artist", artist)
	params.Add("autocorrect", "1")

	resp, err = c.makeRequest(ctx, params)
	switch {
	case errors.Is(err, shared.ErrTrackNotFound):
	case err != nil:
		return nil, fmt.Errorf("artist.getInfo %s: %w", artist, err)
	default:
		artistTags := tagNames(resp.Artist.Tags.Tags)
		info.Country = countryFromTags(artistTags)
		if info.Genre == "" {
			info.Genre = genreFromTags(artistTags)
		}
	}
	return info, nil
}

func (c *LastFMClient) makeRequest(ctx context.Context, params url.Values) (*lfmResponse, error) {
	params.Set("api_key", c.apiKey)
	if c.secret != "" {
		params.Set("api_sig", ParamSignature(params, c.secret))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.URL.RawQuery = params.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var out lfmResponse
	if err := xml.NewDecoder(resp.Body).Decode(&out); err != nil {
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("%w: last.fm status %d", shared.ErrServiceUnavailable, resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if out.Error.Code != 0 {
		return nil, lastFMError(out.Error)
	}
	return &out, nil
}

func lastFMError(e lfmError) error {
	msg := strings.TrimSpace(e.Value)
	switch e.Code {
	case lastFMInvalidParams:
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, msg)
	case lastFMInvalidKey:
		return fmt.Errorf("%w: %s", shared.ErrInvalidCredentials, msg)
	case lastFMUnavailable, lastFMRateLimited:
		return fmt.Errorf("%w: %s", shared.ErrServiceUnavailable, msg)
	default:
		return fmt.Errorf("%w %d: %s", ErrLastFM, e.Code, msg)
	}
}

// ParamSignature computes a Last.fm api_sig: the md5 of every parameter name and value
// concatenated in name order, followed by the shared secret.
func ParamSignature(params url.Values, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "format" || k == "callback" || k == "api_sig" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(params.Get(k))
	}
	b.WriteString(secret)

	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func tagNames(tags []lfmTag) []string {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		if n := strings.TrimSpace(t.Name); n != "" {
			names = append(names, n)
		}
	}
	return names
}
