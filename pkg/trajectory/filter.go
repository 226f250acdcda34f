// Package trajectory smooths raw fingertip samples into a brush anchor.
//
// Each frame the tracker-normalized fingertip is mapped into scene space
// with a fixed linear transform and the anchor closes a fixed fraction
// (alpha) of the remaining distance to it. The motion is critically damped:
// no overshoot and a bounded one-frame lag.
package trajectory

import (
	"github.com/charmbracelet/log"

	"github.com/matzehuels/chromascribe/pkg/feature"
	"github.com/matzehuels/chromascribe/pkg/geom"
)

// Config holds the mapping and smoothing constants.
type Config struct {
	Alpha         float64 // fraction of the remaining distance closed per frame
	ScaleX        float64 // x' = (x - 0.5) * ScaleX
	ScaleY        float64 // y' = (y - 0.5) * ScaleY
	Depth         float64 // z' = -z * Depth
	AbsenceFrames int     // consecutive absent frames before the anchor is dropped
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{Alpha: 0.5, ScaleX: -15, ScaleY: -10, Depth: 5, AbsenceFrames: 30}
}

// Anchor is the filtered scene-space brush position.
type Anchor struct {
	Pos   geom.Vec3
	Valid bool
}

// Filter is not safe for concurrent use; it belongs to the frame loop.
type Filter struct {
	cfg    Config
	bounds geom.Box
	logger *log.Logger

	anchor Anchor
	absent int
}

// New returns a filter with no anchor.
func New(cfg Config, logger *log.Logger) *Filter {
	if logger == nil {
		logger = log.Default()
	}
	return &Filter{
		cfg:    cfg,
		bounds: Bounds(cfg),
		logger: logger.WithPrefix("trajectory"),
	}
}

// Bounds is the scene-space box the mapping sends the tracker's range to:
// x and y in [0, 1], z in [-1, 1].
func Bounds(cfg Config) geom.Box {
	m := func(x, y, z float64) geom.Vec3 {
		return geom.V((x-0.5)*cfg.ScaleX, (y-0.5)*cfg.ScaleY, -z*cfg.Depth)
	}
	return geom.NewBox(m(0, 0, -1), m(1, 1, 1))
}

// Map sends a tracker-normalized point into scene space, clamped to Bounds.
func (f *Filter) Map(p geom.Vec3) geom.Vec3 {
	return f.bounds.Clamp(geom.V(
		(p.X-0.5)*f.cfg.ScaleX,
		(p.Y-0.5)*f.cfg.ScaleY,
		-p.Z*f.cfg.Depth,
	))
}

// Update advances the filter by one frame and reports whether the brush is
// drawing. Drawing requires a present, open hand.
//
// An absent point holds the anchor; after AbsenceFrames consecutive absent
// frames the anchor is invalidated. The first point after invalidation
// places the anchor directly on its target. Non-finite points are logged and
// treated as absent.
func (f *Filter) Update(s feature.Sample) (Anchor, bool) {
	if s.Point == nil {
		f.miss()
		return f.anchor, false
	}
	if !s.Point.IsFinite() {
		f.logger.Warn("skipping non-finite sample", "point", *s.Point, "ts", s.Timestamp)
		f.miss()
		return f.anchor, false
	}

	f.absent = 0
	target := f.Map(*s.Point)
	if f.anchor.Valid {
		f.anchor.Pos = f.anchor.Pos.Lerp(target, f.cfg.Alpha)
	} else {
		f.anchor = Anchor{Pos: target, Valid: true}
	}
	return f.anchor, s.HandOpen
}

func (f *Filter) miss() {
	f.absent++
	if f.cfg.AbsenceFrames > 0 && f.absent >= f.cfg.AbsenceFrames && f.anchor.Valid {
		f.logger.Debug("hand lost, dropping anchor", "frames", f.absent)
		f.anchor = Anchor{}
	}
}

// Anchor returns the current anchor without advancing.
func (f *Filter) Anchor() Anchor { return f.anchor }

// Reset drops the anchor. Called when the gesture source is disabled.
func (f *Filter) Reset() {
	f.anchor = Anchor{}
	f.absent = 0
}

// SetConfig swaps the tuning. The anchor is kept.
func (f *Filter) SetConfig(cfg Config) {
	f.cfg = cfg
	f.bounds = Bounds(cfg)
}
