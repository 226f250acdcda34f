package session

import (
	"github.com/charmbracelet/log"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/chromascribe/pkg/config"
	errs "github.com/matzehuels/chromascribe/pkg/errors"
	"github.com/matzehuels/chromascribe/pkg/feature"
	"github.com/matzehuels/chromascribe/pkg/geom"
	"github.com/matzehuels/chromascribe/pkg/scene"
	"github.com/matzehuels/chromascribe/pkg/stroke"
	"github.com/matzehuels/chromascribe/pkg/trajectory"
)

// FromConfig converts the file configuration into session tuning.
func FromConfig(cfg *config.Config) (Config, error) {
	brush, err := stroke.ParsePolicy(cfg.Brush.Default)
	if err != nil {
		return Config{}, err
	}
	palette, err := stroke.ParsePalette(cfg.Color.Palette...)
	if err != nil {
		return Config{}, errs.Wrap(errs.ErrCodeInvalidConfig, err, "color.palette")
	}

	t, b, c := cfg.Trajectory, cfg.Brush, cfg.Color
	return Config{
		Trajectory: trajectory.Config{
			Alpha:         t.Alpha,
			ScaleX:        t.ScaleX,
			ScaleY:        t.ScaleY,
			Depth:         t.Depth,
			AbsenceFrames: t.AbsenceFrames,
		},
		Stroke: stroke.Config{
			Epsilon:              t.Epsilon,
			InkWidth:             b.InkWidth,
			StringWidth:          b.StringWidth,
			SmokeSize:            b.SmokeSize,
			ParticleCount:        b.ParticleCount,
			ParticleLifetime:     b.ParticleLifetime.D(),
			ParticleLifetimeStep: b.ParticleLifetimeStep.D(),
			ParticleJitter:       b.ParticleJitter,
			Seed:                 b.Seed,
			Color: stroke.ColorConfig{
				Palette:             palette,
				SaturationBase:      c.SaturationBase,
				SaturationDepthGain: c.SaturationDepthGain,
				Lightness:           c.Lightness,
			},
		},
		Brush: brush,
		FPS:   cfg.Canvas.FPS,
	}, nil
}

// CanvasOptions converts the canvas section into scene options.
func CanvasOptions(cfg *config.Config, logger *log.Logger) ([]scene.Option, error) {
	cv := cfg.Canvas
	bg, err := colorful.Hex(cv.Background)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "canvas.background")
	}
	return []scene.Option{
		scene.WithSize(cv.Width, cv.Height),
		scene.WithCamera(cv.FOV, cv.CameraZ),
		scene.WithBackground(bg),
		scene.WithLights(cv.Ambient, geom.V(cv.Light[0], cv.Light[1], cv.Light[2])),
		scene.WithWorldScale(cfg.Brush.WorldScale),
		scene.WithPreserveBuffer(cv.PreserveBuffer),
		scene.WithLogger(logger),
	}, nil
}

// NewAnalyzer builds the audio analyzer from the audio section.
func NewAnalyzer(cfg *config.Config) *feature.Analyzer {
	a := cfg.Audio
	return feature.NewAnalyzer(a.FFTSize, a.Smoothing, a.VolumeGain, a.PitchCeilingHz)
}
