package evolve

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/chromascribe/pkg/cache"
	"github.com/matzehuels/chromascribe/pkg/observability"
)

// CachedGenerator reuses results for identical image, prompt and model.
type CachedGenerator struct {
	inner  Generator
	cache  cache.Cache
	keyer  cache.Keyer
	ttl    time.Duration
	logger *log.Logger
}

// NewCachedGenerator wraps inner. A nil keyer uses the default keyer and a
// nil cache disables caching.
func NewCachedGenerator(inner Generator, c cache.Cache, keyer cache.Keyer, ttl time.Duration, logger *log.Logger) *CachedGenerator {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &CachedGenerator{inner: inner, cache: c, keyer: keyer, ttl: ttl, logger: logger}
}

// Model implements Generator.
func (g *CachedGenerator) Model() string { return g.inner.Model() }

// Generate implements Generator. Cache failures are logged and never fail
// the call.
func (g *CachedGenerator) Generate(ctx context.Context, img []byte, prompt string) (Image, error) {
	key := g.keyer.EvolveKey(img, prompt, g.inner.Model())
	hooks := observability.Cache()

	if data, ok, err := g.cache.Get(ctx, key); err != nil {
		g.logger.Warn("evolve cache read failed", "err", err)
	} else if ok {
		var out Image
		if err := json.Unmarshal(data, &out); err == nil && len(out.Data) > 0 {
			hooks.OnCacheHit(ctx, "evolve")
			return out, nil
		}
	}
	hooks.OnCacheMiss(ctx, "evolve")

	out, err := g.inner.Generate(ctx, img, prompt)
	if err != nil {
		return Image{}, err
	}
	data, err := json.Marshal(out)
	if err == nil {
		err = g.cache.Set(ctx, key, data, g.ttl)
	}
	if err != nil {
		g.logger.Warn("evolve cache write failed", "err", err)
	} else {
		hooks.OnCacheSet(ctx, "evolve", len(data))
	}
	return out, nil
}
