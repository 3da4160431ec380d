package testing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
)

// SubsonicServer is an httptest server that answers /rest/<op> requests with canned envelopes.
type SubsonicServer struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	calls    map[string][]url.Values
}

// NewSubsonicServer starts a fixture server that is closed when the test ends. Unknown operations get a 404.
func NewSubsonicServer(t *testing.T) *SubsonicServer {
	t.Helper()
	s := &SubsonicServer{
		handlers: make(map[string]http.HandlerFunc),
		calls:    make(map[string][]url.Values),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *SubsonicServer) serve(w http.ResponseWriter, r *http.Request) {
	op := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/rest/"), ".view")

	s.mu.Lock()
	s.calls[op] = append(s.calls[op], r.URL.Query())
	h, ok := s.handlers[op]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

// Handle registers a custom handler for op.
func (s *SubsonicServer) Handle(op string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[op] = h
}

// OK answers op with an ok envelope carrying payload.
func (s *SubsonicServer) OK(op string, payload map[string]any) {
	body := Envelope("ok", payload)
	s.Handle(op, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	})
}

// Fail answers op with a failed envelope.
func (s *SubsonicServer) Fail(op string, code int, message string) {
	body := ErrorEnvelope(code, message)
	s.Handle(op, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	})
}

// Binary answers op with raw bytes of the given content type.
func (s *SubsonicServer) Binary(op, contentType string, data []byte) {
	s.Handle(op, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Write(data)
	})
}

// Calls returns the query parameters of every request made for op.
func (s *SubsonicServer) Calls(op string) []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]url.Values(nil), s.calls[op]...)
}

// Envelope renders a subsonic-response document with the given status and payload keys.
func Envelope(status string, payload map[string]any) []byte {
	inner := map[string]any{
		"status":        status,
		"version":       "1.16.1",
		"type":          "navidrome",
		"serverVersion": "0.53.0",
		"openSubsonic":  true,
	}
	for k, v := range payload {
		inner[k] = v
	}
	data, err := json.Marshal(map[string]any{"subsonic-response": inner})
	if err != nil {
		panic(err)
	}
	return data
}

// ErrorEnvelope renders a failed subsonic-response document.
func ErrorEnvelope(code int, message string) []byte {
	return Envelope("failed", map[string]any{"error": map[string]any{"code": code, "message": message}})
}

// Song builds a song entry as a server would send it.
func Song(id, title, artist, album, genre string) map[string]any {
	return map[string]any{
		"id":          id,
		"parent":      "al-" + album,
		"isDir":       false,
		"title":       title,
		"album":       album,
		"artist":      artist,
		"genre":       genre,
		"duration":    215,
		"path":        artist + "/" + album + "/" + title + ".mp3",
		"suffix":      "mp3",
		"contentType": "audio/mpeg",
		"created":     "2024-03-01T10:00:00.000Z",
		"type":        "music",
		"isVideo":     false,
	}
}

// Video builds a video entry that clients are expected to filter out.
func Video(id, title string) map[string]any {
	v := Song(id, title, "Director", "Clips", "")
	v["isVideo"] = true
	v["type"] = "video"
	v["suffix"] = "mp4"
	v["contentType"] = "video/mp4"
	return v
}
