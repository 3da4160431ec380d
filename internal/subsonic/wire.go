package subsonic

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"time"
)

var errMissingField = errors.New("missing required field")

type envelope struct {
	Response json.RawMessage `json:"subsonic-response"`
}

type header struct {
	Status        string     `json:"status"`
	Version       string     `json:"version"`
	Type          string     `json:"type"`
	ServerVersion string     `json:"serverVersion"`
	OpenSubsonic  bool       `json:"openSubsonic"`
	Error         *wireError `json:"error"`
}

type wireError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type xmlEnvelope struct {
	XMLName xml.Name `xml:"subsonic-response"`
	Status  string   `xml:"status,attr"`
	Error   *struct {
		Code    int    `xml:"code,attr"`
		Message string `xml:"message,attr"`
	} `xml:"error"`
}

// unwrap decodes the envelope around body and converts a failed status into an [*Error].
func unwrap(body []byte) (json.RawMessage, header, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, header{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(env.Response) == 0 {
		return nil, header{}, fmt.Errorf("failed to decode response: missing subsonic-response")
	}

	var h header
	if err := json.Unmarshal(env.Response, &h); err != nil {
		return nil, header{}, fmt.Errorf("failed to decode response header: %w", err)
	}
	if err := h.err(); err != nil {
		return nil, h, err
	}
	return env.Response, h, nil
}

func (h header) err() error {
	if h.Status == "ok" {
		return nil
	}
	if h.Error == nil {
		return NewError(CodeGeneric, fmt.Sprintf("request failed with status %q", h.Status))
	}
	return NewError(h.Error.Code, h.Error.Message)
}

// unwrapXML handles XML error envelopes returned by binary endpoints.
func unwrapXML(body []byte) error {
	var env xmlEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if env.Status == "ok" {
		return NewError(CodeGeneric, "expected binary content, got an ok envelope")
	}
	if env.Error == nil {
		return NewError(CodeGeneric, fmt.Sprintf("request failed with status %q", env.Status))
	}
	return NewError(env.Error.Code, env.Error.Message)
}

// list decodes a field the protocol may send either as a single object or as an array.
type list[T any] []T

func (l *list[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] == '[' {
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}

	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return err
	}
	*l = list[T]{item}
	return nil
}

// flexString accepts ids sent as either JSON strings or numbers.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
	case len(data) > 0 && data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("id must be a string or number: %w", err)
		}
		*s = flexString(n.String())
	}
	return nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// wireTime tolerates the timestamp formats seen across server implementations. Unparseable values decode as zero.
type wireTime struct {
	time.Time
}

func (t *wireTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil || s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			t.Time = v.UTC()
			return nil
		}
	}
	return nil
}

func (t *wireTime) ptr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

type songDTO struct {
	ID            flexString `json:"id"`
	Parent        flexString `json:"parent"`
	IsDir         bool       `json:"isDir"`
	Title         string     `json:"title"`
	Album         string     `json:"album"`
	Artist        string     `json:"artist"`
	Track         *int       `json:"track"`
	Year          *int       `json:"year"`
	Genre         string     `json:"genre"`
	CoverArt      flexString `json:"coverArt"`
	Size          *int64     `json:"size"`
	ContentType   string     `json:"contentType"`
	Suffix        string     `json:"suffix"`
	Duration      int        `json:"duration"`
	BitRate       *int       `json:"bitRate"`
	Path          string     `json:"path"`
	IsVideo       bool       `json:"isVideo"`
	PlayCount     *int       `json:"playCount"`
	DiscNumber    *int       `json:"discNumber"`
	Created       wireTime   `json:"created"`
	Starred       *wireTime  `json:"starred"`
	AlbumID       flexString `json:"albumId"`
	ArtistID      flexString `json:"artistId"`
	Type          string     `json:"type"`
	MediaType     string     `json:"mediaType"`
	MusicBrainzID string     `json:"musicBrainzId"`
}

func (d songDTO) toTrack() (Track, error) {
	if d.ID == "" {
		return Track{}, fmt.Errorf("%w: id", errMissingField)
	}
	if strings.TrimSpace(d.Title) == "" {
		return Track{}, fmt.Errorf("%w: title", errMissingField)
	}

	// OpenSubsonic moved the content tag to mediaType and reuses type for song/album.
	kind := MediaType(d.MediaType)
	if kind == "" {
		kind = MediaType(d.Type)
	}
	if kind == "song" {
		kind = MediaMusic
	}

	return Track{
		ID:            string(d.ID),
		Title:         d.Title,
		Artist:        d.Artist,
		Album:         d.Album,
		Duration:      d.Duration,
		Path:          d.Path,
		Suffix:        d.Suffix,
		Created:       d.Created.Time,
		Parent:        string(d.Parent),
		AlbumID:       string(d.AlbumID),
		ArtistID:      string(d.ArtistID),
		IsDir:         d.IsDir,
		IsVideo:       d.IsVideo || kind == MediaVideo,
		Type:          kind,
		Genre:         d.Genre,
		Track:         d.Track,
		DiscNumber:    d.DiscNumber,
		Year:          d.Year,
		MusicBrainzID: d.MusicBrainzID,
		CoverArt:      string(d.CoverArt),
		Size:          d.Size,
		BitRate:       d.BitRate,
		ContentType:   d.ContentType,
		PlayCount:     d.PlayCount,
		Starred:       d.Starred.ptr(),
	}, nil
}

type artistDTO struct {
	ID             flexString     `json:"id"`
	Name           string         `json:"name"`
	AlbumCount     int            `json:"albumCount"`
	CoverArt       flexString     `json:"coverArt"`
	ArtistImageURL string         `json:"artistImageUrl"`
	Starred        *wireTime      `json:"starred"`
	Album          list[albumDTO] `json:"album"`
}

func (d artistDTO) toArtist() Artist {
	a := Artist{
		ID:             string(d.ID),
		Name:           d.Name,
		AlbumCount:     d.AlbumCount,
		CoverArt:       string(d.CoverArt),
		ArtistImageURL: d.ArtistImageURL,
		Starred:        d.Starred.ptr(),
	}
	for _, album := range d.Album {
		a.Albums = append(a.Albums, album.toAlbum())
	}
	return a
}

type albumDTO struct {
	ID        flexString            `json:"id"`
	Name      string                `json:"name"`
	Title     string                `json:"title"`
	Artist    string                `json:"artist"`
	ArtistID  flexString            `json:"artistId"`
	SongCount int                   `json:"songCount"`
	Duration  int                   `json:"duration"`
	Created   wireTime              `json:"created"`
	CoverArt  flexString            `json:"coverArt"`
	PlayCount *int                  `json:"playCount"`
	Year      *int                  `json:"year"`
	Genre     string                `json:"genre"`
	Starred   *wireTime             `json:"starred"`
	Song      list[json.RawMessage] `json:"song"`
}

func (d albumDTO) toAlbum() Album {
	name := d.Name
	if name == "" {
		name = d.Title
	}
	return Album{
		ID:        string(d.ID),
		Name:      name,
		Artist:    d.Artist,
		ArtistID:  string(d.ArtistID),
		SongCount: d.SongCount,
		Duration:  d.Duration,
		Created:   d.Created.Time,
		CoverArt:  string(d.CoverArt),
		PlayCount: d.PlayCount,
		Year:      d.Year,
		Genre:     d.Genre,
		Starred:   d.Starred.ptr(),
	}
}

type playlistDTO struct {
	ID        flexString            `json:"id"`
	Name      string                `json:"name"`
	Comment   string                `json:"comment"`
	Owner     string                `json:"owner"`
	Public    bool                  `json:"public"`
	SongCount int                   `json:"songCount"`
	Duration  int                   `json:"duration"`
	Created   wireTime              `json:"created"`
	Changed   wireTime              `json:"changed"`
	CoverArt  flexString            `json:"coverArt"`
	Entry     list[json.RawMessage] `json:"entry"`
}

func (d playlistDTO) toPlaylist() Playlist {
	return Playlist{
		ID:        string(d.ID),
		Name:      d.Name,
		Comment:   d.Comment,
		Owner:     d.Owner,
		Public:    d.Public,
		SongCount: d.SongCount,
		Duration:  d.Duration,
		Created:   d.Created.Time,
		Changed:   d.Changed.Time,
		CoverArt:  string(d.CoverArt),
	}
}

type searchDTO struct {
	Artist list[artistDTO]       `json:"artist"`
	Album  list[albumDTO]        `json:"album"`
	Song   list[json.RawMessage] `json:"song"`
}

type extensionDTO struct {
	Name     string    `json:"name"`
	Versions list[int] `json:"versions"`
}
