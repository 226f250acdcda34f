package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/chromascribe/pkg/errors"
)

var brushNames = []string{"ink", "smoke", "string"}

// Validate checks every section and returns the first problem as an
// INVALID_CONFIG error.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	t := c.Trajectory
	if t.Alpha <= 0 || t.Alpha > 1 {
		add("trajectory.alpha must be in (0, 1], got %g", t.Alpha)
	}
	if t.Epsilon < 0 {
		add("trajectory.epsilon must be >= 0, got %g", t.Epsilon)
	}
	if t.ScaleX == 0 || t.ScaleY == 0 {
		add("trajectory.scale_x and scale_y must be non-zero")
	}
	if t.AbsenceFrames < 1 {
		add("trajectory.absence_frames must be >= 1, got %d", t.AbsenceFrames)
	}

	b := c.Brush
	if !slices.Contains(brushNames, strings.ToLower(b.Default)) {
		add("brush.default must be one of %s, got %q", strings.Join(brushNames, ", "), b.Default)
	}
	if b.InkWidth <= 0 || b.StringWidth <= 0 || b.SmokeSize <= 0 || b.WorldScale <= 0 {
		add("brush widths and world_scale must be positive")
	}
	if b.ParticleCount < 1 {
		add("brush.particle_count must be >= 1, got %d", b.ParticleCount)
	}
	if b.ParticleLifetime <= 0 || b.ParticleLifetimeStep < 0 {
		add("brush.particle_lifetime must be positive and particle_lifetime_step non-negative")
	}

	if len(c.Color.Palette) < 2 {
		add("color.palette needs at least two stops, got %d", len(c.Color.Palette))
	}
	for _, hex := range c.Color.Palette {
		if _, err := colorful.Hex(hex); err != nil {
			add("color.palette: invalid color %q", hex)
		}
	}
	if c.Color.Lightness < 0 || c.Color.Lightness > 1 {
		add("color.lightness must be in [0, 1], got %g", c.Color.Lightness)
	}

	cv := c.Canvas
	if cv.Width < 1 || cv.Height < 1 {
		add("canvas size must be positive, got %dx%d", cv.Width, cv.Height)
	}
	if cv.FOV <= 0 || cv.FOV >= 180 {
		add("canvas.fov must be in (0, 180), got %g", cv.FOV)
	}
	if cv.CameraZ <= 0 {
		add("canvas.camera_z must be positive, got %g", cv.CameraZ)
	}
	if _, err := colorful.Hex(cv.Background); err != nil {
		add("canvas.background: invalid color %q", cv.Background)
	}
	if !cv.PreserveBuffer {
		add("canvas.preserve_buffer must be true: snapshots read the retained frame")
	}
	if cv.FPS < 1 || cv.FPS > 240 {
		add("canvas.fps must be in [1, 240], got %d", cv.FPS)
	}

	a := c.Audio
	if a.FFTSize < 32 || a.FFTSize&(a.FFTSize-1) != 0 {
		add("audio.fft_size must be a power of two >= 32, got %d", a.FFTSize)
	}
	if a.Smoothing < 0 || a.Smoothing >= 1 {
		add("audio.smoothing must be in [0, 1), got %g", a.Smoothing)
	}
	if a.VolumeGain <= 0 || a.PitchCeilingHz <= 0 {
		add("audio.volume_gain and pitch_ceiling_hz must be positive")
	}

	e := c.Evolve
	if e.Endpoint != "" {
		if err := errors.ValidateURL(e.Endpoint); err != nil {
			add("evolve.endpoint: %s", errors.UserMessage(err))
		}
	}
	if e.Backend != BackendGenAI && e.Backend != BackendUpstream {
		add("evolve.backend must be %q or %q, got %q", BackendGenAI, BackendUpstream, e.Backend)
	}
	if e.Timeout <= 0 {
		add("evolve.timeout must be positive")
	}

	if len(problems) == 0 {
		return nil
	}
	if len(problems) == 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "%s", problems[0])
	}
	return errors.New(errors.ErrCodeInvalidConfig, "%s (and %d more)", problems[0], len(problems)-1)
}
