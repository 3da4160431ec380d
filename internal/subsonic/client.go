package subsonic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sonicsync/internal/shared"
)

// MaxPageSize is the protocol's upper bound for size and count parameters.
const MaxPageSize = 500

// Client issues authenticated requests against one Subsonic server.
//
// A Client is safe for concurrent use. Methods block until the server answers; see [AsyncClient] for
// non-blocking variants.
type Client struct {
	cfg        Config
	httpClient *http.Client
	transport  TransportConfig
	logger     *log.Logger
	limiter    Limiter

	mu   sync.RWMutex
	info ServerInfo
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient replaces the pooled transport built from [TransportConfig].
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRateLimit throttles the client to perSecond requests in any one second window.
// Non-positive values disable throttling.
func WithRateLimit(perSecond int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = NewSlidingWindow(perSecond)
	}
}

// WithLimiter installs any [Limiter], such as a [rate.Limiter].
func WithLimiter(l Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithTransport sets the timeouts and pool sizes used when no [WithHTTPClient] option is given.
func WithTransport(tc TransportConfig) Option {
	return func(c *Client) { c.transport = tc }
}

// NewClient validates cfg and builds a client. Insecure configurations are logged at warn level.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{cfg: cfg, transport: DefaultTransportConfig()}
	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = shared.NewLogger(nil)
	}
	c.logger = shared.WithLogger(c.logger, "component", "subsonic")
	if c.httpClient == nil {
		c.httpClient = NewHTTPClient(c.transport, c.logger)
	}

	for _, w := range cfg.Warnings() {
		c.logger.Warn(w, "url", cfg.URL)
	}
	return c, nil
}

// Config returns the configuration the client was built with, defaults applied.
func (c *Client) Config() Config {
	return c.cfg
}

// Capabilities returns what the most recent [Client.Ping] learned about the server.
func (c *Client) Capabilities() ServerInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info := c.info
	info.Extensions = slices.Clone(c.info.Extensions)
	return info
}

func (c *Client) recordHeader(h header) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.info.Version = h.Version
	c.info.Type = h.Type
	c.info.ServerVersion = h.ServerVersion
	c.info.OpenSubsonic = h.OpenSubsonic
}

func (c *Client) recordExtensions(exts []OpenSubsonicExtension) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.info.Extensions = slices.Clone(exts)
}

// StreamURL returns a fully authenticated stream URL for external players. No request is made.
//
// In password mode the URL embeds a one-off token, so each call returns a different URL.
func (c *Client) StreamURL(id string) (string, error) {
	return c.buildURL("stream", values("id", id))
}

// CoverArtURL returns a fully authenticated cover art URL. A size of zero requests the original image.
func (c *Client) CoverArtURL(id string, size int) (string, error) {
	return c.buildURL("getCoverArt", values("id", id, "size", itoa(size)))
}

// authParams returns the protocol and auth parameters. Password mode draws a new salt on every call.
func (c *Client) authParams() (url.Values, error) {
	if c.cfg.UsesAPIKey() {
		return KeyParams(c.cfg.Username, c.cfg.APIKey, c.cfg.Version, c.cfg.ClientName, "json"), nil
	}

	token, err := GenerateToken(c.cfg, "")
	if err != nil {
		return nil, err
	}
	return AuthParams(token, c.cfg.Version, c.cfg.ClientName, "json"), nil
}

func (c *Client) buildURL(op string, params url.Values) (string, error) {
	v, err := c.authParams()
	if err != nil {
		return "", err
	}
	for key, vals := range params {
		for _, val := range vals {
			v.Add(key, val)
		}
	}
	return c.cfg.URL + "/rest/" + op + "?" + v.Encode(), nil
}

// get sends an authenticated GET for op after passing the rate limiter.
func (c *Client) get(ctx context.Context, op string, params url.Values) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s: rate limiter: %w", op, err)
		}
	}

	endpoint, err := c.buildURL(op, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	req.Header.Set("User-Agent", c.cfg.ClientName)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", op, err)
	}
	c.logger.Debug("request complete", "op", op, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		// some servers pair an error status with a regular failed envelope
		if mt := mediaType(resp.Header.Get("Content-Type")); isEnvelopeType(mt) {
			if body, err := io.ReadAll(resp.Body); err == nil {
				if envErr := envelopeError(mt, body); isProtocolError(envErr) {
					return nil, fmt.Errorf("%s: %w", op, envErr)
				}
			}
		}
		return nil, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Operation: op}
	}
	return resp, nil
}

// getJSON performs op and decodes the unwrapped envelope into out, which may be nil.
func (c *Client) getJSON(ctx context.Context, op string, params url.Values, out any) (header, error) {
	resp, err := c.get(ctx, op, params)
	if err != nil {
		return header{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return header{}, fmt.Errorf("%s: failed to read response: %w", op, err)
	}

	raw, h, err := unwrap(body)
	if err != nil {
		return h, fmt.Errorf("%s: %w", op, err)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return h, fmt.Errorf("%s: failed to decode payload: %w", op, err)
		}
	}
	return h, nil
}

// openBinary performs op and returns the response when it carries binary content.
// A JSON or XML body is an error envelope and is returned as an [*Error]. The caller closes the body.
func (c *Client) openBinary(ctx context.Context, op string, params url.Values) (*http.Response, error) {
	resp, err := c.get(ctx, op, params)
	if err != nil {
		return nil, err
	}

	mt := mediaType(resp.Header.Get("Content-Type"))
	if !isEnvelopeType(mt) {
		return resp, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", op, err)
	}
	return nil, fmt.Errorf("%s: %w", op, envelopeError(mt, body))
}

func (c *Client) getBinary(ctx context.Context, op string, params url.Values) ([]byte, error) {
	resp, err := c.openBinary(ctx, op, params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", op, err)
	}
	return data, nil
}

// decodeTracks converts raw song entries, dropping video entries and entries that fail to decode.
func (c *Client) decodeTracks(op string, raws []json.RawMessage) []Track {
	tracks := make([]Track, 0, len(raws))
	for i, raw := range raws {
		if t, ok := c.decodeTrack(op, i, raw); ok {
			tracks = append(tracks, t)
		}
	}
	return tracks
}

func (c *Client) decodeTrack(op string, index int, raw json.RawMessage) (Track, bool) {
	var dto songDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		c.logger.Warn("dropping malformed song entry", "op", op, "index", index, "err", err)
		return Track{}, false
	}

	t, err := dto.toTrack()
	if err != nil {
		c.logger.Warn("dropping malformed song entry", "op", op, "index", index, "id", string(dto.ID), "err", err)
		return Track{}, false
	}
	if t.IsVideo {
		c.logger.Debug("skipping video entry", "op", op, "id", t.ID)
		return Track{}, false
	}
	return t, true
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

func isEnvelopeType(mt string) bool {
	switch mt {
	case "application/json", "text/json", "application/xml", "text/xml":
		return true
	}
	return false
}

func envelopeError(mt string, body []byte) error {
	if strings.HasSuffix(mt, "xml") {
		return unwrapXML(body)
	}
	if _, _, err := unwrap(body); err != nil {
		return err
	}
	return NewError(CodeGeneric, "expected binary content, got an ok envelope")
}

func isProtocolError(err error) bool {
	_, ok := err.(*Error)
	return ok
}

// values builds query parameters from key/value pairs, dropping empty values.
func values(kv ...string) url.Values {
	v := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			v.Add(kv[i], kv[i+1])
		}
	}
	return v
}

// itoa formats positive n and returns "" otherwise, so [values] drops it.
func itoa(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprint(n)
}

func clampPage(n int) int {
	return min(n, MaxPageSize)
}
