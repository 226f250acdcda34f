package evolve

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/chromascribe/pkg/cache"
	"github.com/matzehuels/chromascribe/pkg/config"
	errs "github.com/matzehuels/chromascribe/pkg/errors"
)

// ClientFromConfig builds the client a session uses.
func ClientFromConfig(cfg config.EvolveConfig, logger *log.Logger) *Client {
	return NewClient(cfg.Endpoint,
		WithTimeout(cfg.Timeout.D()),
		WithClientLogger(logger),
	)
}

// GeneratorFromConfig builds the proxy's generator for cfg.Backend.
func GeneratorFromConfig(ctx context.Context, cfg config.EvolveConfig) (Generator, error) {
	switch cfg.Backend {
	case config.BackendUpstream:
		if cfg.UpstreamURL == "" {
			return nil, errs.New(errs.ErrCodeInvalidConfig, "evolve.upstream_url is required for the upstream backend")
		}
		return NewUpstreamGenerator(cfg.UpstreamURL, cfg.UpstreamToken,
			WithTimeout(cfg.Timeout.D())), nil
	case config.BackendGenAI, "":
		if cfg.APIKey == "" {
			return nil, errs.New(errs.ErrCodeInvalidConfig, "%s is not set", config.EnvGeminiKey)
		}
		g, err := NewGenAIGenerator(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeExternalService, err, "genai")
		}
		return g, nil
	}
	return nil, errs.New(errs.ErrCodeInvalidConfig, "unknown evolve backend %q", cfg.Backend)
}

// OpenCache picks the response cache: Redis when an address is configured,
// otherwise a file cache under dir, or none when dir is empty.
func OpenCache(ctx context.Context, cfg config.EvolveConfig, dir string) (cache.Cache, error) {
	switch {
	case cfg.RedisAddr != "":
		return cache.NewRedisCache(ctx, cfg.RedisAddr)
	case dir != "":
		return cache.NewFileCache(dir)
	}
	return cache.NewNullCache(), nil
}
