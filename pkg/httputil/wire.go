package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	errs "github.com/matzehuels/chromascribe/pkg/errors"
)

// MaxImageBytes caps request and response bodies on the evolve boundary.
const MaxImageBytes = 10 << 20

// EvolveRequest is the body POSTed to the evolve endpoint.
type EvolveRequest struct {
	Image  string `json:"image,omitempty"`
	Prompt string `json:"prompt"`
}

// EvolveResponse is the object form of the evolve reply.
type EvolveResponse struct {
	Image string `json:"image"`
}

// ErrorResponse is the body of a failed evolve call.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ErrNoImage is returned when a reply holds no image reference.
var ErrNoImage = errors.New("response contains no image")

// DecodeImageRef extracts the image URL from an evolve reply: either
// {"image": url} or [url, ...] (the first entry wins).
func DecodeImageRef(body []byte) (string, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return "", ErrNoImage
	}
	switch body[0] {
	case '[':
		var urls []string
		if err := json.Unmarshal(body, &urls); err != nil {
			return "", fmt.Errorf("decode evolve reply: %w", err)
		}
		if len(urls) == 0 || urls[0] == "" {
			return "", ErrNoImage
		}
		return urls[0], nil
	case '{':
		var r EvolveResponse
		if err := json.Unmarshal(body, &r); err != nil {
			return "", fmt.Errorf("decode evolve reply: %w", err)
		}
		if r.Image == "" {
			return "", ErrNoImage
		}
		return r.Image, nil
	case '"':
		var s string
		if err := json.Unmarshal(body, &s); err != nil {
			return "", fmt.Errorf("decode evolve reply: %w", err)
		}
		if s == "" {
			return "", ErrNoImage
		}
		return s, nil
	}
	return "", fmt.Errorf("decode evolve reply: unexpected %q", body[0])
}

// ReadLimited reads at most limit bytes from r and fails if there is more.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("body exceeds %d bytes", limit)
	}
	return data, nil
}

// Fetch GETs url and returns the body. Non-2xx responses yield a
// *errors.StatusError. Bodies above MaxImageBytes are rejected.
func Fetch(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := ReadLimited(resp.Body, MaxImageBytes)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &errs.StatusError{StatusCode: resp.StatusCode, Body: string(truncate(body, 256))}
	}
	return body, nil
}

// ResolveImage turns an image reference into bytes: data URLs are decoded
// in place, http(s) URLs are fetched.
func ResolveImage(ctx context.Context, client *http.Client, ref string) ([]byte, error) {
	switch {
	case IsDataURL(ref):
		_, data, err := DecodeDataURL(ref)
		return data, err
	case IsHTTPURL(ref):
		return Fetch(ctx, client, ref)
	}
	return nil, fmt.Errorf("unsupported image reference %.32q", ref)
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
