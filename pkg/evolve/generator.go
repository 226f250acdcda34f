package evolve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/matzehuels/chromascribe/pkg/httputil"
)

// Image is a generated image and its MIME type.
type Image struct {
	Data []byte `json:"data"`
	MIME string `json:"mime"`
}

// Generator produces a new image from an optional source image and a prompt.
type Generator interface {
	Generate(ctx context.Context, img []byte, prompt string) (Image, error)
	// Model names what produces the images; it is part of the cache key.
	Model() string
}

// ErrNoImageReturned is returned when the model answers with text only.
var ErrNoImageReturned = errors.New("model returned no image")

// =============================================================================
// Gemini
// =============================================================================

// DefaultModel is the Gemini image model used when none is configured.
const DefaultModel = "gemini-2.5-flash-image"

// GenAIGenerator calls Gemini image generation.
type GenAIGenerator struct {
	client *genai.Client
	model  string
}

// NewGenAIGenerator creates a Gemini-backed generator.
func NewGenAIGenerator(ctx context.Context, apiKey, model string) (*GenAIGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GenAIGenerator{client: client, model: model}, nil
}

// Model implements Generator.
func (g *GenAIGenerator) Model() string { return g.model }

// Generate implements Generator. The source image goes first so the prompt
// reads as an instruction about it.
func (g *GenAIGenerator) Generate(ctx context.Context, img []byte, prompt string) (Image, error) {
	var parts []*genai.Part
	if len(img) > 0 {
		parts = append(parts, genai.NewPartFromBytes(img, http.DetectContentType(img)))
	}
	parts = append(parts, genai.NewPartFromText(prompt))
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		return Image{}, fmt.Errorf("generate content: %w", err)
	}
	return firstImage(resp)
}

func firstImage(resp *genai.GenerateContentResponse) (Image, error) {
	if resp == nil {
		return Image{}, ErrNoImageReturned
	}
	var text []string
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				mime := part.InlineData.MIMEType
				if mime == "" {
					mime = http.DetectContentType(part.InlineData.Data)
				}
				return Image{Data: part.InlineData.Data, MIME: mime}, nil
			}
			if part.Text != "" {
				text = append(text, part.Text)
			}
		}
	}
	if len(text) > 0 {
		return Image{}, fmt.Errorf("%w: %s", ErrNoImageReturned, strings.Join(text, " "))
	}
	return Image{}, ErrNoImageReturned
}

// =============================================================================
// Upstream
// =============================================================================

// UpstreamGenerator forwards to another evolve service.
type UpstreamGenerator struct {
	client *Client
}

// NewUpstreamGenerator forwards to url, authenticating with token when set.
func NewUpstreamGenerator(url, token string, opts ...ClientOption) *UpstreamGenerator {
	if token != "" {
		opts = append(opts, WithHeader("Authorization", "Bearer "+token))
	}
	return &UpstreamGenerator{client: NewClient(url, opts...)}
}

// Model implements Generator.
func (g *UpstreamGenerator) Model() string { return "upstream:" + g.client.Endpoint() }

// Generate implements Generator.
func (g *UpstreamGenerator) Generate(ctx context.Context, img []byte, prompt string) (Image, error) {
	data, err := g.client.Evolve(ctx, img, prompt)
	if err != nil {
		return Image{}, err
	}
	return Image{Data: data, MIME: "image/png"}, nil
}

// dataURL renders an Image for the wire.
func (i Image) dataURL() string {
	mime := i.MIME
	if mime == "" {
		mime = http.DetectContentType(i.Data)
	}
	return httputil.EncodeDataURL(mime, i.Data)
}
