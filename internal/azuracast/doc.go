// Package azuracast talks to an AzuraCast station: it lists the station's media library, uploads audio files and
// manages the playlists the sync engine fills.
//
// The [Client] interface is what the rest of sonicsync depends on; [HTTPClient] implements it against the
// AzuraCast REST API (/api/station/{id}/...). The station API key is sent as a bearer token.
package azuracast
