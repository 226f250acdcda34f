// Package httputil holds the HTTP plumbing shared by the evolve client and
// the evolve proxy.
//
// # Data URLs
//
// Images cross the evolve boundary as RFC 2397 data URLs:
//
//	url := httputil.EncodeDataURL("image/png", pngBytes)
//	mime, data, err := httputil.DecodeDataURL(url)
//
// # Evolve responses
//
// The image generation service answers either with an object
// {"image": "<url>"} or with an array holding one URL. [DecodeImageRef]
// accepts both. The URL is a data URL or an http(s) URL that the caller
// fetches with [Fetch].
//
// # Limits
//
// [Fetch] and [ReadLimited] cap bodies at [MaxImageBytes] so a misbehaving
// upstream cannot exhaust memory.
package httputil
