// Package server exposes the Subsonic library over HTTP for players and radio automation.
//
// # Routes
//
//	GET /health               pings Subsonic and reports the server type and API version
//	GET /playlists            lists playlists and their feed paths as JSON
//	GET /playlists/{id}.m3u   renders a playlist as extended M3U
//
// Feed entries are authenticated Subsonic stream URLs, so anyone holding a feed can play the tracks.
// When [shared.ServerConfig.Token] is set, the playlist routes require it as ?token= or a bearer header.
//
// # Router Infrastructure
//
// [BasicRouter] wraps [http.ServeMux] method patterns with a [Middleware] stack. Middleware added with
// Use applies to handlers registered after it, which is how /health stays public.
// Custom handlers implement [Handler], returning the patterns they serve from Routes.
package server
