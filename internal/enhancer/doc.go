// Package enhancer enriches Subsonic tracks with metadata the library may lack: genre, BPM and
// country of origin.
//
// Lookups go to Last.fm (track.getInfo and artist.getInfo) and fall back to the ID3 tags of a
// downloaded file. Every result, including "nothing found", is cached in sqlite through
// [repositories.MetadataRepository] so a track is looked up at most once per [DefaultMaxAge].
package enhancer
