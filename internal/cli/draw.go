package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/chromascribe/pkg/config"
	errs "github.com/matzehuels/chromascribe/pkg/errors"
	"github.com/matzehuels/chromascribe/pkg/evolve"
	"github.com/matzehuels/chromascribe/pkg/feature"
	"github.com/matzehuels/chromascribe/pkg/feature/wavmic"
	"github.com/matzehuels/chromascribe/pkg/session"
	"github.com/matzehuels/chromascribe/pkg/stroke"
)

// drawOpts holds the flags of the draw command.
type drawOpts struct {
	output   string
	audio    string
	brush    string
	switchAt string
	clearAt  string
	prompt   string
	save     bool
	realtime bool
	tui      bool
}

// drawCommand creates the draw command for rendering a recording headlessly.
func (c *CLI) drawCommand() *cobra.Command {
	opts := drawOpts{}

	cmd := &cobra.Command{
		Use:   "draw <recording.jsonl>",
		Short: "Render a recorded gesture session to PNG",
		Long: `Render a recorded gesture session to PNG.

The recording is replayed frame by frame through the same pipeline the live
window uses: trajectory filter, stroke synthesizer, canvas. Without --realtime
the replay is deterministic.`,
		Example: `  # Render with the default brush
  chromascribe draw session.jsonl -o painting.png

  # Switch to smoke at frame 120 and string at frame 240, clear at 400
  chromascribe draw session.jsonl --switch-brush-at 120:smoke,240:string --clear-at 400

  # Let a WAV file drive stroke size and color, and watch the HUD
  chromascribe draw session.jsonl --audio voice.wav --tui`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDraw(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output PNG (default: chroma-scribe-<unix-ms>.png)")
	cmd.Flags().StringVar(&opts.audio, "audio", "", "WAV file analyzed as microphone input")
	cmd.Flags().StringVarP(&opts.brush, "brush", "b", "", "initial brush: ink, smoke, string")
	cmd.Flags().StringVar(&opts.switchAt, "switch-brush-at", "", "brush changes as frame:brush list")
	cmd.Flags().StringVar(&opts.clearAt, "clear-at", "", "frames at which the canvas is cleared")
	cmd.Flags().StringVar(&opts.prompt, "evolve", "", "evolve the final frame with this prompt")
	cmd.Flags().BoolVar(&opts.save, "save", false, "also store the snapshot in the snapshot library")
	cmd.Flags().BoolVar(&opts.realtime, "realtime", false, "replay at recorded speed through live sources")
	cmd.Flags().BoolVar(&opts.tui, "tui", false, "show a live status display")
	_ = cmd.RegisterFlagCompletionFunc("brush", completeBrush)

	return cmd
}

// completeBrush completes brush policy names.
func completeBrush(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	var names []string
	for _, p := range stroke.Policies() {
		names = append(names, p.String())
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

// =============================================================================
// Frame schedule
// =============================================================================

// schedule holds the per-frame commands given on the command line.
type schedule struct {
	brush map[int]stroke.Policy
	clear map[int]bool
}

// parseSchedule parses "--switch-brush-at 120:smoke,240:ink" and
// "--clear-at 300,600".
func parseSchedule(switchAt, clearAt string) (schedule, error) {
	s := schedule{brush: map[int]stroke.Policy{}, clear: map[int]bool{}}
	for _, item := range splitList(switchAt) {
		frame, name, ok := strings.Cut(item, ":")
		if !ok {
			return s, errs.New(errs.ErrCodeInvalidInput, "--switch-brush-at entry %q must be frame:brush", item)
		}
		i, err := parseFrame(frame)
		if err != nil {
			return s, err
		}
		p, err := stroke.ParsePolicy(name)
		if err != nil {
			return s, err
		}
		s.brush[i] = p
	}
	for _, item := range splitList(clearAt) {
		i, err := parseFrame(item)
		if err != nil {
			return s, err
		}
		s.clear[i] = true
	}
	return s, nil
}

func parseFrame(s string) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || i < 0 {
		return 0, errs.New(errs.ErrCodeInvalidInput, "invalid frame index %q", s)
	}
	return i, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// apply runs the commands scheduled for frame i.
func (s schedule) apply(ctx context.Context, ctrl *session.Controller, i int) {
	if p, ok := s.brush[i]; ok {
		ctrl.SetBrush(p)
	}
	if s.clear[i] {
		ctrl.Clear(ctx)
	}
}

// =============================================================================
// Run
// =============================================================================

func (c *CLI) runDraw(ctx context.Context, path string, opts drawOpts) error {
	logger := loggerFromContext(ctx)

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if opts.brush != "" {
		if _, err := stroke.ParsePolicy(opts.brush); err != nil {
			return err
		}
		cfg.Brush.Default = opts.brush
	}
	sched, err := parseSchedule(opts.switchAt, opts.clearAt)
	if err != nil {
		return err
	}

	rec, err := feature.LoadRecording(path)
	if err != nil {
		return err
	}
	if rec.Len() == 0 {
		return errs.New(errs.ErrCodeInvalidInput, "%s has no frames", path)
	}
	logger.Debug("recording loaded", "frames", rec.Len(), "fps", rec.FPS, "audio", rec.HasAudio())

	var sessOpts []session.Option
	if opts.prompt != "" {
		sessOpts = append(sessOpts, session.WithEvolver(evolve.ClientFromConfig(cfg.Evolve, logger)))
	}

	prog := newProgress(logger)
	var ctrl *session.Controller
	if opts.realtime {
		ctrl, err = c.drawRealtime(ctx, cfg, rec, sched, opts, sessOpts)
	} else {
		ctrl, err = c.drawStepped(ctx, cfg, rec, sched, opts, sessOpts)
	}
	if err != nil {
		return err
	}
	st := ctrl.Status()
	prog.doneFrames(fmt.Sprintf("Rendered %d frames", st.Frames), st.Frames)

	if opts.prompt != "" {
		if err := c.evolveFinal(ctx, ctrl, opts.prompt); err != nil {
			return err
		}
	}

	png, err := ctrl.Snapshot(ctx)
	if err != nil {
		return err
	}
	out := opts.output
	if out == "" {
		out = fmt.Sprintf("chroma-scribe-%d.png", time.Now().UnixMilli())
	}
	if err := os.WriteFile(out, png, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	printSuccess("Painted %s", StyleHighlight.Render(path))
	printCanvasStats(ctrl.Status())
	printFile(out)

	if opts.save {
		store, err := session.NewSnapshotStore("")
		if err != nil {
			return err
		}
		saved, err := ctrl.SaveSnapshot(ctx, store)
		if err != nil {
			return err
		}
		printFile(saved)
	}
	if opts.prompt == "" {
		printNewline()
		printNextStep("Evolve it", fmt.Sprintf("chromascribe evolve %s --prompt \"...\"", out))
	}
	return nil
}

// drawStepped replays rec one frame per Frame call through a Playback.
func (c *CLI) drawStepped(ctx context.Context, cfg *config.Config, rec *feature.Recording, sched schedule, opts drawOpts, sessOpts []session.Option) (*session.Controller, error) {
	pb := feature.NewPlayback(rec)

	var audio session.AudioFeed
	switch {
	case opts.audio != "":
		audio = c.wavSource(cfg, opts.audio, false)
	case rec.HasAudio():
		audio = pb.Audio()
	}

	ctrl, err := c.newSession(cfg, pb.Gesture(), audio, sessOpts...)
	if err != nil {
		return nil, err
	}
	defer ctrl.Close()
	if err := ctrl.EnableGesture(ctx); err != nil {
		return nil, err
	}
	if audio != nil {
		if err := ctrl.EnableAudio(ctx); err != nil {
			return nil, err
		}
	}

	step := func(ctx context.Context, report func(session.Status)) error {
		base := time.Now()
		for i := 0; i < pb.Len(); i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			sched.apply(ctx, ctrl, i)
			pb.Seek(i)
			ctrl.Frame(ctx, base.Add(rec.At(i)))
			if report != nil {
				report(ctrl.Status())
			}
		}
		return nil
	}

	if opts.tui {
		return ctrl, runWithHUD(ctx, rec.Len(), step)
	}
	return ctrl, step(ctx, nil)
}

// drawRealtime replays rec through the goroutine-backed sources at the
// recorded pace while the session loop runs on its own ticker.
func (c *CLI) drawRealtime(ctx context.Context, cfg *config.Config, rec *feature.Recording, sched schedule, opts drawOpts, sessOpts []session.Option) (*session.Controller, error) {
	logger := loggerFromContext(ctx)
	tracker := &feature.ReplayTracker{Rec: rec}
	gesture := feature.NewGestureSource(
		&feature.ReplayCamera{Rec: rec, Realtime: true},
		tracker.Factory(),
		feature.WithGestureLogger(logger),
	)

	var audio session.AudioFeed
	switch {
	case opts.audio != "":
		audio = c.wavSource(cfg, opts.audio, true)
	case rec.HasAudio():
		audio = feature.NewAudioSource(&feature.ReplayAudio{Rec: rec, Realtime: true}, logger)
	}

	ctrl, err := c.newSession(cfg, gesture, audio, sessOpts...)
	if err != nil {
		return nil, err
	}
	if err := ctrl.EnableGesture(ctx); err != nil {
		return nil, err
	}
	if audio != nil {
		if err := ctrl.EnableAudio(ctx); err != nil {
			logger.Warn("audio disabled", "err", errs.UserMessage(err))
		}
	}

	length := rec.At(rec.Len()-1) + 250*time.Millisecond
	runCtx, cancel := context.WithTimeout(ctx, length)
	defer cancel()

	fps := cfg.Canvas.FPS
	if fps <= 0 {
		fps = 60
	}
	play := func(ctx context.Context, report func(session.Status)) error {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return ctrl.Run(gctx) })
		g.Go(func() error {
			// Scheduled commands fire when the wall clock reaches the frame's
			// recorded time.
			start := time.Now()
			ticker := time.NewTicker(time.Second / time.Duration(fps))
			defer ticker.Stop()
			next := 0
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					for next < rec.Len() && rec.At(next) <= time.Since(start) {
						sched.apply(gctx, ctrl, next)
						next++
					}
					if report != nil {
						report(ctrl.Status())
					}
				}
			}
		})
		err := g.Wait()
		if errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	}

	if opts.tui {
		err = runWithHUD(runCtx, rec.Len(), play)
	} else {
		err = play(runCtx, nil)
	}
	if err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return ctrl, err
}

// wavSource analyzes a WAV file as if it were the microphone.
func (c *CLI) wavSource(cfg *config.Config, path string, realtime bool) *feature.AudioSource {
	input := &feature.PCMInput{
		Mic:      &wavmic.Microphone{Path: path, Realtime: realtime},
		Analyzer: session.NewAnalyzer(cfg),
		HopRate:  cfg.Canvas.FPS,
	}
	return feature.NewAudioSource(input, c.Logger)
}

// evolveFinal evolves the last frame and renders it as the backdrop.
func (c *CLI) evolveFinal(ctx context.Context, ctrl *session.Controller, prompt string) error {
	spinner := newSpinnerWithContext(ctx, "Evolving...")
	spinner.Start()
	_, err := ctrl.Evolve(ctx, prompt)
	if err != nil {
		spinner.StopWithError("Evolve failed: " + errs.UserMessage(err))
		return err
	}
	spinner.StopWithSuccess("Evolved")
	ctrl.Frame(ctx, time.Now())
	return nil
}

// runWithHUD runs work while a bubbletea status display follows it.
func runWithHUD(ctx context.Context, total int, work func(context.Context, func(session.Status)) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newHUDModel(total), tea.WithContext(ctx), tea.WithOutput(os.Stderr))
	workErr := make(chan error, 1)
	go func() {
		err := work(ctx, func(st session.Status) { p.Send(statusMsg(st)) })
		p.Send(doneMsg{err: err})
		workErr <- err
	}()

	m, err := p.Run()
	if err != nil && ctx.Err() == nil {
		return err
	}
	if hm, ok := m.(hudModel); ok && hm.quit {
		cancel()
	}
	return <-workErr
}
