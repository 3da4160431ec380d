// Package audio reads and writes ID3 tags on downloaded MP3 files.
//
// Downloads from the Subsonic server are tagged with the track's library metadata plus
// whatever the enhancer found (genre, BPM, country) before they are uploaded elsewhere.
package audio
