// Package evolve sends a canvas snapshot and a text prompt to an image
// generation service and brings the generated image back.
//
// # Wire contract
//
// Both sides speak one JSON contract:
//
//	POST /api/evolve
//	{"image": "data:image/png;base64,...", "prompt": "make it a watercolor"}
//
//	200 {"image": "data:image/png;base64,..."}   or   200 ["https://..."]
//	400 {"error": "Prompt is required."}
//	500 {"error": "..."}
//
// # Client
//
// [Client] is what the session uses. It never retries: a failed call is
// reported once as an EXTERNAL_SERVICE error and the user decides whether
// to try again. Whatever format the service returns, Evolve yields PNG.
//
// # Server
//
// [Server] is the proxy that holds the API credentials so the drawing
// client never sees them. It delegates to a [Generator]:
//
//   - [GenAIGenerator] calls Gemini image generation through
//     google.golang.org/genai.
//   - [UpstreamGenerator] forwards to another service speaking the same
//     contract.
//
// Wrap either with [NewCachedGenerator] to reuse results for identical
// snapshot and prompt pairs.
package evolve
