// Package subsonic implements an authenticated client for the Subsonic REST API (v1.16.1) and its OpenSubsonic extensions.
//
// # Authentication
//
// Password mode draws a fresh 8 byte salt for every request and sends u, t and s where t is the lowercase hex md5 of
// password+salt. The digest is an obfuscation scheme required by the protocol, not a security mechanism.
// API-key mode (OpenSubsonic) sends u and k instead; when a [Config] carries both, the key wins.
//
// # Responses
//
// Every JSON response is wrapped in a "subsonic-response" envelope. A failed envelope is converted into an [*Error]
// whose Kind is derived from the numeric protocol code:
//   - 10: [ErrParameter]
//   - 20, 30: [ErrVersion]
//   - 40, 41: [ErrAuthentication]
//   - 42: [ErrTokenAuthNotSupported]
//   - 43: [ErrClientVersionTooOld]
//   - 44: [ErrServerVersionTooOld]
//   - 50: [ErrAuthorization]
//   - 60: [ErrTrialExpired]
//   - 70: [ErrNotFound]
//   - anything else: [ErrGeneric]
//
// Binary endpoints (stream, download, getCoverArt) return raw bytes on success and an envelope on failure, even with
// a 200 status, so the Content-Type decides which path a response takes.
//
// Transport failures (dial errors, timeouts, non-2xx statuses) are not part of the taxonomy. They surface as
// [*url.Error] or [*HTTPError]. Connection-level failures are retried by the transport; protocol errors never are.
//
// # Tracks
//
// Video entries never leave a track-returning method. Song entries that cannot be decoded or lack an id or title are
// logged and skipped so one bad record does not fail a page of results.
package subsonic
