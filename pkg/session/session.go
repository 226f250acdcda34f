// Package session wires feature sources, the trajectory filter, the stroke
// synthesizer and the scene canvas into one drawing session.
//
// A [Controller] owns the per-frame pipeline. Each call to [Controller.Frame]
// runs, in order:
//
//  1. canvas.Advance: deferred particle expiry
//  2. sampling: latest gesture sample and audio features
//  3. filtering: trajectory.Filter.Update
//  4. synthesis: stroke.Synthesizer.OnFrame
//  5. render: brush indicator plus canvas.Render
//
// Commands (brush selection, clear, snapshot, evolve, source toggles) may
// arrive from another goroutine, for example a window's input handler; the
// controller serializes them with the frame loop.
//
// # State machine
//
// The session is IDLE while the gesture source is off, TRACKING while it is
// on but no open hand is seen, and DRAWING while an open hand is seen.
// Disabling the gesture source returns to IDLE immediately and no further
// geometry is produced from it. Clear is orthogonal to the state.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	errs "github.com/matzehuels/chromascribe/pkg/errors"
	"github.com/matzehuels/chromascribe/pkg/feature"
	"github.com/matzehuels/chromascribe/pkg/geom"
	"github.com/matzehuels/chromascribe/pkg/observability"
	"github.com/matzehuels/chromascribe/pkg/scene"
	"github.com/matzehuels/chromascribe/pkg/stroke"
	"github.com/matzehuels/chromascribe/pkg/trajectory"
)

// State is the brush state.
type State int

const (
	Idle State = iota
	Tracking
	Drawing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Tracking:
		return "TRACKING"
	case Drawing:
		return "DRAWING"
	}
	return "UNKNOWN"
}

// ErrNoEvolver is returned by Evolve when no evolve client is configured.
var ErrNoEvolver = errors.New("evolve is not configured")

// GestureFeed is a gesture source. *feature.GestureSource and
// *feature.PlaybackGesture implement it.
type GestureFeed interface {
	Enable(ctx context.Context) error
	Disable()
	Latest() (feature.Sample, bool)
}

// AudioFeed is an audio source. *feature.AudioSource and
// *feature.PlaybackAudio implement it.
type AudioFeed interface {
	Enable(ctx context.Context) error
	Disable()
	Latest() feature.AudioFeatures
}

// Evolver submits a snapshot and a prompt to an image generation service.
type Evolver interface {
	Evolve(ctx context.Context, png []byte, prompt string) ([]byte, error)
}

// Config tunes a session.
type Config struct {
	Trajectory trajectory.Config
	Stroke     stroke.Config
	Brush      stroke.Policy
	FPS        int
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		Trajectory: trajectory.DefaultConfig(),
		Stroke:     stroke.DefaultConfig(),
		Brush:      stroke.Ink,
		FPS:        60,
	}
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithEvolver enables Evolve.
func WithEvolver(e Evolver) Option {
	return func(c *Controller) { c.evolver = e }
}

// Controller runs one drawing session.
type Controller struct {
	id      string
	canvas  *scene.Canvas
	gesture GestureFeed
	audio   AudioFeed
	evolver Evolver
	logger  *log.Logger

	mu            sync.Mutex
	cfg           Config
	filter        *trajectory.Filter
	synth         *stroke.Synthesizer
	brush         stroke.Policy
	state         State
	gestureOn     bool
	gestureFailed bool
	audioOn       bool
	lastAudio     feature.AudioFeatures
	frames        int
	segments      int
	started       time.Time
}

// New returns an idle session drawing into canvas. Either feed may be nil
// when the device is absent.
func New(canvas *scene.Canvas, gesture GestureFeed, audio AudioFeed, cfg Config, opts ...Option) *Controller {
	c := &Controller{
		id:      uuid.NewString(),
		canvas:  canvas,
		gesture: gesture,
		audio:   audio,
		logger:  log.Default(),
		cfg:     cfg,
		brush:   cfg.Brush,
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	c.logger = c.logger.With("session", c.id[:8])
	c.filter = trajectory.New(cfg.Trajectory, c.logger)
	c.synth = stroke.NewSynthesizer(cfg.Stroke, canvas, c.logger)
	return c
}

// ID is the session's unique identifier.
func (c *Controller) ID() string { return c.id }

// Canvas returns the session's canvas.
func (c *Controller) Canvas() *scene.Canvas { return c.canvas }

// =============================================================================
// Source toggles
// =============================================================================

// EnableGesture turns the gesture source on. On failure the toggle stays
// off and the returned error carries a user-facing message.
func (c *Controller) EnableGesture(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gestureOn {
		return nil
	}
	if c.gesture == nil {
		return errs.New(errs.ErrCodeDeviceAccess, "no camera available")
	}
	if err := c.gesture.Enable(ctx); err != nil {
		if errs.Is(err, errs.ErrCodeModelInit) {
			c.gestureFailed = true
		}
		c.logger.Warn("gesture source unavailable", "code", errs.GetCode(err), "err", err)
		return err
	}
	c.gestureOn = true
	c.state = Tracking
	c.filter.Reset()
	c.logger.Info("gesture source enabled")
	return nil
}

// DisableGesture turns the gesture source off and returns to IDLE. The
// source's loop and devices are released before it returns.
func (c *Controller) DisableGesture() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disableGestureLocked()
}

func (c *Controller) disableGestureLocked() {
	if !c.gestureOn {
		return
	}
	c.gesture.Disable()
	c.gestureOn = false
	c.state = Idle
	c.filter.Reset()
	c.synth.Reset()
	c.canvas.SetIndicator(scene.Indicator{})
	c.logger.Info("gesture source disabled")
}

// EnableAudio turns the audio source on. On failure the toggle stays off.
func (c *Controller) EnableAudio(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.audioOn {
		return nil
	}
	if c.audio == nil {
		return errs.New(errs.ErrCodeDeviceAccess, "no microphone available")
	}
	if err := c.audio.Enable(ctx); err != nil {
		c.logger.Warn("audio source unavailable", "code", errs.GetCode(err), "err", err)
		return err
	}
	c.audioOn = true
	c.logger.Info("audio source enabled")
	return nil
}

// DisableAudio turns the audio source off. Audio reads as silence.
func (c *Controller) DisableAudio() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disableAudioLocked()
}

func (c *Controller) disableAudioLocked() {
	if !c.audioOn {
		return
	}
	c.audio.Disable()
	c.audioOn = false
	c.lastAudio = feature.AudioFeatures{}
	c.logger.Info("audio source disabled")
}

// ToggleGesture flips the gesture source.
func (c *Controller) ToggleGesture(ctx context.Context) error {
	if c.Status().Gesture {
		c.DisableGesture()
		return nil
	}
	return c.EnableGesture(ctx)
}

// ToggleAudio flips the audio source.
func (c *Controller) ToggleAudio(ctx context.Context) error {
	if c.Status().Audio {
		c.DisableAudio()
		return nil
	}
	return c.EnableAudio(ctx)
}

// Close disables both sources.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disableGestureLocked()
	c.disableAudioLocked()
}

// =============================================================================
// Frame loop
// =============================================================================

// FrameResult describes one processed frame.
type FrameResult struct {
	State   State
	Anchor  trajectory.Anchor
	Drawing bool
	Audio   feature.AudioFeatures
	Stroke  stroke.Result
}

// Frame runs one frame of the pipeline at time now.
func (c *Controller) Frame(ctx context.Context, now time.Time) FrameResult {
	start := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	c.canvas.Advance(ctx, now)

	var sample feature.Sample
	if c.gestureOn {
		sample, _ = c.gesture.Latest()
	}
	audio := feature.AudioFeatures{}
	if c.audioOn {
		audio = c.audio.Latest()
	}
	c.lastAudio = audio

	var (
		anchor  trajectory.Anchor
		drawing bool
	)
	if c.gestureOn {
		anchor, drawing = c.filter.Update(sample)
	}
	switch {
	case !c.gestureOn:
		c.state = Idle
	case drawing:
		c.state = Drawing
	default:
		c.state = Tracking
	}

	res, err := c.synth.OnFrame(stroke.Frame{
		Anchor:      anchor,
		Drawing:     drawing,
		Audio:       audio,
		Policy:      c.brush,
		Orientation: sample.Orientation,
		Now:         now,
	})
	if err != nil {
		c.logger.Warn("stroke dropped", "brush", c.brush, "err", err)
	}
	for range res.Segments {
		observability.Frame().OnSegment(ctx, c.brush.String())
	}
	if res.Particles > 0 {
		observability.Frame().OnSegment(ctx, stroke.Smoke.String())
	}
	c.segments += res.Segments

	c.canvas.SetIndicator(indicator(anchor, c.gestureOn, res.Style))
	c.canvas.Render()
	c.frames++

	observability.Frame().OnFrame(ctx, c.state.String(), time.Since(start))
	return FrameResult{State: c.state, Anchor: anchor, Drawing: drawing, Audio: audio, Stroke: res}
}

func indicator(a trajectory.Anchor, on bool, st stroke.Style) scene.Indicator {
	if !on || !a.Valid {
		return scene.Indicator{}
	}
	return scene.Indicator{Pos: a.Pos, Radius: st.BaseScale, Color: st.Color, Visible: true}
}

// Run drives Frame at the configured rate until ctx is done, then disables
// both sources.
func (c *Controller) Run(ctx context.Context) error {
	fps := c.cfg.FPS
	if fps <= 0 {
		fps = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()
	defer c.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			c.Frame(ctx, now)
		}
	}
}

// =============================================================================
// Commands
// =============================================================================

// SetBrush selects the active policy. Existing geometry is untouched.
func (c *Controller) SetBrush(p stroke.Policy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p != c.brush {
		c.logger.Info("brush", "policy", p)
	}
	c.brush = p
}

// CycleBrush moves to the next policy and returns it.
func (c *Controller) CycleBrush() stroke.Policy {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.brush = c.brush.Next()
	c.logger.Info("brush", "policy", c.brush)
	return c.brush
}

// Clear empties the canvas. Tracking state is unaffected.
func (c *Controller) Clear(ctx context.Context) scene.ClearStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.canvas.Clear(ctx)
	c.synth.Reset()
	c.logger.Info("canvas cleared", "disposed", st.Disposed, "generation", st.Generation)
	return st
}

// Snapshot returns the current frame as PNG.
func (c *Controller) Snapshot(ctx context.Context) ([]byte, error) {
	return c.canvas.Snapshot(ctx)
}

// Evolve submits the current frame with prompt and shows the returned image
// behind the strokes. Drawing continues while the request is in flight.
func (c *Controller) Evolve(ctx context.Context, prompt string) ([]byte, error) {
	if c.evolver == nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidConfig, ErrNoEvolver, "evolve")
	}
	if err := errs.ValidatePrompt(prompt); err != nil {
		return nil, err
	}
	png, err := c.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := c.evolver.Evolve(ctx, png, prompt)
	if err != nil {
		c.logger.Error("evolve failed", "err", err)
		return nil, err
	}
	img, err := scene.DecodePNG(out)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeExternalService, err, "evolve returned an unreadable image")
	}
	c.canvas.SetBackdrop(img)
	c.logger.Info("evolved", "bytes", len(out), "duration", time.Since(start))
	return out, nil
}

// SetTuning swaps the filter and stroke tuning, for example after a config
// reload. Geometry and tracking state are kept.
func (c *Controller) SetTuning(cfg Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.Trajectory, c.cfg.Stroke = cfg.Trajectory, cfg.Stroke
	c.filter.SetConfig(cfg.Trajectory)
	c.synth.SetConfig(cfg.Stroke)
}

// Status is a point-in-time summary for display.
type Status struct {
	ID            string
	State         State
	Brush         stroke.Policy
	Gesture       bool
	GestureFailed bool
	Audio         bool
	Levels        feature.AudioFeatures
	Anchor        geom.Vec3
	Frames        int
	Segments      int
	Canvas        scene.Stats
	Uptime        time.Duration
}

// Status returns the current session status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		ID:            c.id,
		State:         c.state,
		Brush:         c.brush,
		Gesture:       c.gestureOn,
		GestureFailed: c.gestureFailed,
		Audio:         c.audioOn,
		Levels:        c.lastAudio,
		Anchor:        c.filter.Anchor().Pos,
		Frames:        c.frames,
		Segments:      c.segments,
		Canvas:        c.canvas.Stats(),
		Uptime:        time.Since(c.started),
	}
}
