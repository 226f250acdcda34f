package evolve

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	_ "golang.org/x/image/webp"

	errs "github.com/matzehuels/chromascribe/pkg/errors"
	"github.com/matzehuels/chromascribe/pkg/httputil"
	"github.com/matzehuels/chromascribe/pkg/observability"
)

// DefaultTimeout bounds one evolve round trip including the image fetch.
const DefaultTimeout = 60 * time.Second

// ErrPromptRequired is returned when the prompt is empty after trimming.
var ErrPromptRequired = errors.New("prompt is required")

// Client calls an evolve endpoint.
type Client struct {
	endpoint string
	http     *http.Client
	headers  map[string]string
	logger   *log.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client. Its timeout is left alone.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the round-trip timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d, Transport: c.http.Transport}
		}
	}
}

// WithHeader adds a header to every request, e.g. Authorization.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		if c.headers == nil {
			c.headers = make(map[string]string)
		}
		c.headers[key] = value
	}
}

// WithClientLogger sets the logger.
func WithClientLogger(l *log.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client for the evolve endpoint at url.
func NewClient(url string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: url,
		http:     &http.Client{Timeout: DefaultTimeout},
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithPrefix("evolve")
	return c
}

// Endpoint returns the URL requests are POSTed to.
func (c *Client) Endpoint() string { return c.endpoint }

// Evolve posts img with prompt and returns the generated image as PNG.
// An empty img sends the prompt alone.
func (c *Client) Evolve(ctx context.Context, img []byte, prompt string) ([]byte, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, ErrPromptRequired, "evolve")
	}

	body, err := c.post(ctx, img, prompt)
	if err != nil {
		return nil, err
	}
	ref, err := httputil.DecodeImageRef(body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeExternalService, err, "evolve reply")
	}
	data, err := httputil.ResolveImage(ctx, c.http, ref)
	if err != nil {
		return nil, wrapTransport(ctx, err, "fetch evolved image")
	}
	out, err := toPNG(data)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeExternalService, err, "evolved image")
	}
	c.logger.Debug("evolve finished", "bytes", len(out))
	return out, nil
}

func (c *Client) post(ctx context.Context, img []byte, prompt string) ([]byte, error) {
	reqBody := httputil.EvolveRequest{Prompt: prompt}
	if len(img) > 0 {
		reqBody.Image = httputil.EncodeDataURL(http.DetectContentType(img), img)
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "encode evolve request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "evolve endpoint %q", c.endpoint)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	hooks := observability.HTTP()
	host, path := req.URL.Host, req.URL.Path
	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		return nil, wrapTransport(ctx, err, "evolve request")
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	body, err := httputil.ReadLimited(resp.Body, httputil.MaxImageBytes)
	if err != nil {
		return nil, wrapTransport(ctx, err, "read evolve reply")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := errorMessage(body)
		c.logger.Warn("evolve rejected", "status", resp.StatusCode, "error", msg)
		return nil, errs.Wrap(errs.ErrCodeExternalService,
			&errs.StatusError{StatusCode: resp.StatusCode, Body: msg}, "evolve failed")
	}
	return body, nil
}

func wrapTransport(ctx context.Context, err error, msg string) error {
	var se *errs.StatusError
	if errors.As(err, &se) {
		return errs.Wrap(errs.ErrCodeExternalService, err, "%s", msg)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errs.Wrap(errs.ErrCodeTimeout, err, "%s", msg)
	}
	return errs.Wrap(errs.ErrCodeExternalService, err, "%s", msg)
}

func errorMessage(body []byte) string {
	var e httputil.ErrorResponse
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// toPNG re-encodes JPEG or WebP results so callers always see PNG.
func toPNG(data []byte) ([]byte, error) {
	if http.DetectContentType(data) == "image/png" {
		return data, nil
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("re-encode %s as png: %w", format, err)
	}
	return buf.Bytes(), nil
}
