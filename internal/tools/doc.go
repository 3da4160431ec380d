// Package tools exposes the Subsonic library to an LLM tool-calling loop.
//
// Each tool takes JSON arguments and always produces a [ToolResult]: either the tracks or album it found,
// or a [ToolError] describing what went wrong and whether calling again could help. Errors never escape
// as Go errors, so one failed call does not abort a multi-step conversation.
//
// Tools:
//
//	search_tracks  {"query": string, "limit": int, "genres": [string]}
//	random_tracks  {"count": int, "genre": string, "from_year": int, "to_year": int}
//	get_album      {"id": string}
//
// Retryable failures (generic server errors, 429/5xx responses, dropped connections) are retried with
// backoff before they are reported. The model behind a [Curator] is out of scope; [SearchCurator] is a
// deterministic stand-in that turns the prompt into a search.
package tools
