package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/chromascribe/pkg/config"
	errs "github.com/matzehuels/chromascribe/pkg/errors"
	"github.com/matzehuels/chromascribe/pkg/evolve"
)

// evolveOpts holds the flags of the evolve command.
type evolveOpts struct {
	prompt   string
	endpoint string
	output   string
	envFile  string
}

// evolveCommand creates the evolve command calling the evolve endpoint.
func (c *CLI) evolveCommand() *cobra.Command {
	opts := evolveOpts{}

	cmd := &cobra.Command{
		Use:   "evolve <snapshot.png>",
		Short: "Send a snapshot and a prompt to the evolve endpoint",
		Long: `Send a snapshot and a prompt to the evolve endpoint.

The call is made once. A failure is reported as is and never retried.`,
		Example: `  chromascribe evolve painting.png --prompt "as a stained glass window"
  chromascribe evolve painting.png -p "ink wash" --endpoint http://gpu-box:3001/api/evolve`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runEvolve(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.prompt, "prompt", "p", "", "what to turn the painting into (required)")
	cmd.Flags().StringVar(&opts.endpoint, "endpoint", "", "evolve endpoint (default from config)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output PNG (default: <input>-evolved.png)")
	cmd.Flags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file")
	_ = cmd.MarkFlagRequired("prompt")

	return cmd
}

func (c *CLI) runEvolve(ctx context.Context, input string, opts evolveOpts) error {
	logger := loggerFromContext(ctx)

	if err := errs.ValidatePrompt(opts.prompt); err != nil {
		return err
	}
	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return err
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if opts.endpoint != "" {
		if err := errs.ValidateURL(opts.endpoint); err != nil {
			return err
		}
		cfg.Evolve.Endpoint = opts.endpoint
	}

	spinner := newSpinnerWithContext(ctx, "Reading "+filepath.Base(input)+"...")
	spinner.Start()
	prog := newProgress(logger)

	img, err := os.ReadFile(input)
	if err != nil {
		spinner.Stop()
		return errs.Wrap(errs.ErrCodeNotFound, err, "read %s", input)
	}

	client := evolve.ClientFromConfig(cfg.Evolve, logger)
	spinner.SetMessage(fmt.Sprintf("Evolving via %s...", client.Endpoint()))

	out, err := client.Evolve(ctx, img, opts.prompt)
	if err != nil {
		if spinner.Cancelled() {
			spinner.Stop()
			return ctx.Err()
		}
		spinner.StopWithError("Evolve failed: " + errs.UserMessage(err))
		return err
	}
	spinner.Stop()
	prog.done("Evolved")

	path := opts.output
	if path == "" {
		path = strings.TrimSuffix(input, filepath.Ext(input)) + "-evolved.png"
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	printSuccess("Evolved %s", StyleHighlight.Render(input))
	printDetail("Prompt: %s", opts.prompt)
	printFile(path)
	return nil
}
