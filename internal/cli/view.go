package cli

import (
	"context"

	"github.com/spf13/cobra"

	errs "github.com/matzehuels/chromascribe/pkg/errors"
	"github.com/matzehuels/chromascribe/pkg/evolve"
	"github.com/matzehuels/chromascribe/pkg/feature"
	"github.com/matzehuels/chromascribe/pkg/session"

	"github.com/matzehuels/chromascribe/internal/viewer"
)

// viewOpts holds the flags of the view command.
type viewOpts struct {
	audio  string
	brush  string
	prompt string
	dir    string
}

// viewCommand creates the view command opening the live window.
func (c *CLI) viewCommand() *cobra.Command {
	opts := viewOpts{}

	cmd := &cobra.Command{
		Use:   "view [recording.jsonl]",
		Short: "Paint live in a window",
		Long: `Paint live in a window.

Without a recording the mouse is the brush: move to steer, hold the left
button to draw, scroll to change depth. With a recording the session is
replayed at recorded speed.

Keys: B brush, C clear, S save snapshot, M audio, G gesture, E evolve, Esc quit.`,
		Example: `  # Draw with the mouse, a WAV file driving size and color
  chromascribe view --audio voice.wav

  # Watch a recording and evolve it with E
  chromascribe view session.jsonl --prompt "as a watercolor"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return c.runView(cmd.Context(), path, opts)
		},
	}

	cmd.Flags().StringVar(&opts.audio, "audio", "", "WAV file analyzed as microphone input")
	cmd.Flags().StringVarP(&opts.brush, "brush", "b", "", "initial brush: ink, smoke, string")
	cmd.Flags().StringVar(&opts.prompt, "prompt", "", "evolve prompt used by the E key")
	cmd.Flags().StringVar(&opts.dir, "snapshot-dir", "", "snapshot directory for the S key (default ~/Pictures/chromascribe)")
	_ = cmd.RegisterFlagCompletionFunc("brush", completeBrush)

	return cmd
}

func (c *CLI) runView(ctx context.Context, path string, opts viewOpts) error {
	logger := loggerFromContext(ctx)

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if opts.brush != "" {
		cfg.Brush.Default = opts.brush
	}

	var (
		gesture session.GestureFeed
		audio   session.AudioFeed
		pointer *feature.PointerTracker
	)
	if path != "" {
		rec, err := feature.LoadRecording(path)
		if err != nil {
			return err
		}
		tracker := &feature.ReplayTracker{Rec: rec}
		gesture = feature.NewGestureSource(
			&feature.ReplayCamera{Rec: rec, Realtime: true},
			tracker.Factory(),
			feature.WithGestureLogger(logger),
		)
		if rec.HasAudio() && opts.audio == "" {
			audio = feature.NewAudioSource(&feature.ReplayAudio{Rec: rec, Realtime: true}, logger)
		}
	} else {
		pointer = feature.NewPointerTracker()
		gesture = pointer
	}
	if opts.audio != "" {
		audio = c.wavSource(cfg, opts.audio, true)
	}

	var sessOpts []session.Option
	if opts.prompt != "" {
		if err := errs.ValidatePrompt(opts.prompt); err != nil {
			return err
		}
		sessOpts = append(sessOpts, session.WithEvolver(evolve.ClientFromConfig(cfg.Evolve, logger)))
	}

	ctrl, err := c.newSession(cfg, gesture, audio, sessOpts...)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if err := ctrl.EnableGesture(ctx); err != nil {
		printWarning("Gesture input unavailable: %s", errs.UserMessage(err))
	}
	if audio != nil {
		if err := ctrl.EnableAudio(ctx); err != nil {
			printWarning("Audio input unavailable: %s", errs.UserMessage(err))
		}
	}

	store, err := session.NewSnapshotStore(opts.dir)
	if err != nil {
		logger.Warn("snapshots disabled", "err", err)
		store = nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.watchTuning(ctx, ctrl)

	return viewer.Run(ctx, ctrl, viewer.Options{
		Prompt:  opts.prompt,
		Store:   store,
		Pointer: pointer,
		FPS:     cfg.Canvas.FPS,
		Logger:  logger,
	})
}
