package subsonic

import (
	"strings"

	"github.com/desertthunder/sonicsync/internal/shared"
)

// TicksPerSecond converts seconds to 100ns ticks, the unit used by Emby/Jellyfin style playout systems.
const TicksPerSecond int64 = 10_000_000

// ExternalTrack is a track in the schema consumed by external playout systems.
type ExternalTrack struct {
	ID             string            `json:"Id,omitempty"`
	Name           string            `json:"Name"`
	Artists        []string          `json:"Artists"`
	Album          string            `json:"Album"`
	Genres         []string          `json:"Genres"`
	RunTimeTicks   int64             `json:"RunTimeTicks"`
	ProductionYear int               `json:"ProductionYear,omitempty"`
	IndexNumber    int               `json:"IndexNumber,omitempty"`
	ProviderIDs    map[string]string `json:"ProviderIds"`
	Duplicate      bool              `json:"-"`
}

// SplitGenres splits a multi-valued genre tag on ';' and ','.
func SplitGenres(genre string) []string {
	parts := strings.FieldsFunc(genre, func(r rune) bool { return r == ';' || r == ',' })
	genres := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			genres = append(genres, p)
		}
	}
	return genres
}

func SecondsToTicks(seconds int) int64 {
	return int64(seconds) * TicksPerSecond
}

// ProviderIDs maps a MusicBrainz recording id to the provider key expected by playout systems.
func ProviderIDs(musicBrainzID string) map[string]string {
	ids := map[string]string{}
	if musicBrainzID != "" {
		ids["MusicBrainzTrack"] = musicBrainzID
	}
	return ids
}

// ToExternal converts t for an external playout system.
func ToExternal(t Track) ExternalTrack {
	e := ExternalTrack{
		ID:           t.ID,
		Name:         t.Title,
		Artists:      splitArtists(t.Artist),
		Album:        t.Album,
		Genres:       SplitGenres(t.Genre),
		RunTimeTicks: SecondsToTicks(t.Duration),
		ProviderIDs:  ProviderIDs(t.MusicBrainzID),
	}
	if t.Year != nil {
		e.ProductionYear = *t.Year
	}
	if t.Track != nil {
		e.IndexNumber = *t.Track
	}
	return e
}

func splitArtists(artist string) []string {
	if strings.TrimSpace(artist) == "" {
		return []string{}
	}
	return []string{strings.TrimSpace(artist)}
}

// TrackKey is the case and whitespace insensitive identity used for duplicate detection.
func TrackKey(title, artist, album string) string {
	return shared.NormalizeText(title) + "|" + shared.NormalizeText(artist) + "|" + shared.NormalizeText(album)
}

func (e ExternalTrack) key() string {
	artist := ""
	if len(e.Artists) > 0 {
		artist = e.Artists[0]
	}
	return TrackKey(e.Name, artist, e.Album)
}

// IsDuplicate reports whether candidate matches any of seen on title, first artist and album.
func IsDuplicate(candidate ExternalTrack, seen []ExternalTrack) bool {
	key := candidate.key()
	for _, s := range seen {
		if s.key() == key {
			return true
		}
	}
	return false
}

// FlagDuplicates sets Duplicate on every entry that repeats an earlier unique entry and returns the list.
// Lists are bounded by a playlist page, so entries are compared pairwise.
func FlagDuplicates(entries []ExternalTrack) []ExternalTrack {
	unique := make([]ExternalTrack, 0, len(entries))
	for i := range entries {
		if IsDuplicate(entries[i], unique) {
			entries[i].Duplicate = true
			continue
		}
		entries[i].Duplicate = false
		unique = append(unique, entries[i])
	}
	return entries
}
