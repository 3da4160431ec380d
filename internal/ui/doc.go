// Package ui implements an interactive terminal browser for a Subsonic library using bubbletea's Elm architecture.
//
// The TUI drills down through the library and saves a single track to disk:
//  1. [ArtistView] : Browse every artist on the server
//  2. [AlbumView] : Pick one of the artist's albums
//  3. [TrackView] : Preview the album's tracks
//  4. [ConfirmView] : Confirm the download target
//  5. [DownloadView] : Wait for the file to be written
//  6. [ResultView] : Show the saved path and size, or the failure
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Every server round trip runs in a [tea.Cmd], so the interface stays responsive while requests are in flight.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
