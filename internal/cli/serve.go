package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/chromascribe/pkg/cache"
	"github.com/matzehuels/chromascribe/pkg/config"
	"github.com/matzehuels/chromascribe/pkg/evolve"
)

// serveOpts holds the flags of the serve command.
type serveOpts struct {
	listen  string
	origin  string
	envFile string
	noCache bool
}

// serveCommand creates the serve command running the evolve proxy.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the evolve proxy",
		Long: `Run the evolve proxy.

The proxy holds the image model credentials (GEMINI_API_KEY, or UPSTREAM_TOKEN
for the upstream backend) and answers POST /api/evolve. Results are cached by
snapshot, prompt and model. With --config the backend is rebuilt whenever the
file changes.`,
		Example: `  # Serve with credentials from .env
  chromascribe serve

  # Share the cache between instances through Redis
  CHROMASCRIBE_REDIS_ADDR=localhost:6379 chromascribe serve --listen :8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.listen, "listen", "", "listen address (default from config, :3001)")
	cmd.Flags().StringVar(&opts.origin, "allow-origin", "*", "Access-Control-Allow-Origin value")
	cmd.Flags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file with API credentials")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the response cache")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	logger := loggerFromContext(ctx)

	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return err
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	store, err := c.openEvolveCache(ctx, cfg.Evolve, opts.noCache)
	if err != nil {
		return err
	}
	defer store.Close()

	gen, err := c.buildGenerator(ctx, cfg.Evolve, store)
	if err != nil {
		return err
	}

	listen := opts.listen
	if listen == "" {
		listen = cfg.Evolve.Listen
	}
	srv := evolve.NewServer(gen,
		evolve.WithServerLogger(logger),
		evolve.WithGenerateTimeout(cfg.Evolve.Timeout.D()),
		evolve.WithAllowedOrigin(opts.origin),
	)

	printSuccess("Evolve proxy on %s", StyleHighlight.Render(listen))
	printKeyValue("Backend", cfg.Evolve.Backend)
	printKeyValue("Model", gen.Model())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(gctx, listen) })
	if c.configPath != "" {
		g.Go(func() error {
			return config.Watch(gctx, c.configPath, logger, func(cfg *config.Config) {
				next, err := c.buildGenerator(gctx, cfg.Evolve, store)
				if err != nil {
					logger.Warn("backend reload rejected", "err", err)
					return
				}
				srv.SetGenerator(next)
				logger.Info("backend reloaded", "backend", cfg.Evolve.Backend, "model", next.Model())
			})
		})
	}

	err = g.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// buildGenerator creates the configured generator behind the response cache.
func (c *CLI) buildGenerator(ctx context.Context, cfg config.EvolveConfig, store cache.Cache) (evolve.Generator, error) {
	gen, err := evolve.GeneratorFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	ttl := cfg.CacheTTL.D()
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return evolve.NewCachedGenerator(gen, store, cache.NewDefaultKeyer(), ttl, c.Logger), nil
}

// openEvolveCache opens Redis when configured and the file cache otherwise.
func (c *CLI) openEvolveCache(ctx context.Context, cfg config.EvolveConfig, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		dir = ""
	}
	return evolve.OpenCache(ctx, cfg, dir)
}
