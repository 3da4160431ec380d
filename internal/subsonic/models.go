package subsonic

import "time"

// MediaType is the OpenSubsonic content type tag of a child entry.
type MediaType string

const (
	MediaMusic     MediaType = "music"
	MediaPodcast   MediaType = "podcast"
	MediaAudiobook MediaType = "audiobook"
	MediaVideo     MediaType = "video"
)

// Track is a song entry. Pointer fields are absent from the server payload when nil.
type Track struct {
	ID       string
	Title    string
	Artist   string
	Album    string
	Duration int // seconds
	Path     string
	Suffix   string
	Created  time.Time

	Parent        string
	AlbumID       string
	ArtistID      string
	IsDir         bool
	IsVideo       bool
	Type          MediaType
	Genre         string
	Track         *int
	DiscNumber    *int
	Year          *int
	MusicBrainzID string
	CoverArt      string
	Size          *int64
	BitRate       *int
	ContentType   string
	PlayCount     *int
	Starred       *time.Time
}

// Artist is an ID3 artist. Albums is only populated by [Client.GetArtist].
type Artist struct {
	ID             string
	Name           string
	AlbumCount     int
	CoverArt       string
	ArtistImageURL string
	Starred        *time.Time
	Albums         []Album
}

// Album is an ID3 album.
type Album struct {
	ID        string
	Name      string
	Artist    string
	ArtistID  string
	SongCount int
	Duration  int
	Created   time.Time
	CoverArt  string
	PlayCount *int
	Year      *int
	Genre     string
	Starred   *time.Time
}

// Playlist is a server-side playlist. Entries is only populated by [Client.GetPlaylist].
type Playlist struct {
	ID        string
	Name      string
	Comment   string
	Owner     string
	Public    bool
	SongCount int
	Duration  int
	Created   time.Time
	Changed   time.Time
	CoverArt  string
	Entries   []Track
}

// PlaylistUpdate describes an updatePlaylist call. Nil fields are left unchanged.
type PlaylistUpdate struct {
	Name                *string
	Comment             *string
	Public              *bool
	SongIDsToAdd        []string
	SongIndexesToRemove []int
}

type MusicFolder struct {
	ID   string
	Name string
}

type Genre struct {
	Name       string
	SongCount  int
	AlbumCount int
}

type ScanStatus struct {
	Scanning bool
	Count    int
}

// SearchResult3 is the raw multi-type result of search3.
type SearchResult3 struct {
	Artists []Artist
	Albums  []Album
	Songs   []Track
}

// Starred2 holds everything the user has starred, using ID3 tags.
type Starred2 struct {
	Artists []Artist
	Albums  []Album
	Songs   []Track
}

// StarTarget selects entries for star and unstar.
type StarTarget struct {
	IDs       []string
	AlbumIDs  []string
	ArtistIDs []string
}

// License is the server's licence state. OpenSubsonic servers always report valid.
type License struct {
	Valid          bool
	Email          string
	LicenseExpires *time.Time
}

// OpenSubsonicExtension is one entry of getOpenSubsonicExtensions.
type OpenSubsonicExtension struct {
	Name     string
	Versions []int
}

// ServerInfo is what the last ping learned about the server.
type ServerInfo struct {
	Version       string
	Type          string
	ServerVersion string
	OpenSubsonic  bool
	Extensions    []OpenSubsonicExtension
}

// HasExtension reports whether the server advertised the named OpenSubsonic extension.
func (s ServerInfo) HasExtension(name string) bool {
	for _, ext := range s.Extensions {
		if ext.Name == name {
			return true
		}
	}
	return false
}

// RandomSongsOptions filters getRandomSongs.
type RandomSongsOptions struct {
	Genre         string
	FromYear      int
	ToYear        int
	MusicFolderID string
}

// AlbumListOptions drives getAlbumList2. Type is one of random, newest, highest, frequent, recent,
// alphabeticalByName, alphabeticalByArtist, starred, byYear or byGenre.
type AlbumListOptions struct {
	Type          string
	Size          int
	Offset        int
	FromYear      int
	ToYear        int
	Genre         string
	MusicFolderID string
}

// StreamOptions adjusts server-side transcoding for stream.
type StreamOptions struct {
	MaxBitRate int
	Format     string
}
