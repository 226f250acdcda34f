// Package stroke turns the filtered brush anchor into scene geometry.
//
// A [Synthesizer] is called once per frame with the anchor, the drawing
// flag, the audio features and the active [Policy]. It emits:
//
//   - ink: a ribbon quad between the previous and current accepted anchor
//   - string: one vertex appended to the current polyline strip
//   - smoke: a small cluster of fading particles at the anchor
//
// Permanent geometry (ink, string) is only emitted when the anchor moved
// more than Epsilon since the last accepted anchor. Continuity resets when
// drawing stops or the policy changes; old geometry is never touched.
package stroke

import (
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/chromascribe/pkg/feature"
	"github.com/matzehuels/chromascribe/pkg/geom"
	"github.com/matzehuels/chromascribe/pkg/scene"
	"github.com/matzehuels/chromascribe/pkg/trajectory"
)

// Config holds the stroke tuning constants. Widths are in stroke units; the
// canvas converts them to scene units with its world scale.
type Config struct {
	Epsilon              float64
	InkWidth             float64
	StringWidth          float64
	SmokeSize            float64
	ParticleCount        int
	ParticleLifetime     time.Duration
	ParticleLifetimeStep time.Duration
	ParticleJitter       float64
	Seed                 int64
	Color                ColorConfig
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		Epsilon:              0.01,
		InkWidth:             25,
		StringWidth:          10,
		SmokeSize:            4,
		ParticleCount:        3,
		ParticleLifetime:     2 * time.Second,
		ParticleLifetimeStep: 500 * time.Millisecond,
		ParticleJitter:       0.15,
		Seed:                 42,
		Color:                DefaultColorConfig(),
	}
}

// Sink receives geometry. *scene.Canvas implements it.
type Sink interface {
	AddRibbon(r scene.Ribbon) error
	BeginPolyline() error
	AppendPolyline(v scene.Vertex) error
	AddParticle(p scene.Particle, now time.Time) error
}

// Frame is one frame of synthesizer input.
type Frame struct {
	Anchor      trajectory.Anchor
	Drawing     bool
	Audio       feature.AudioFeatures
	Policy      Policy
	Orientation feature.Orientation
	Now         time.Time
}

// Result reports what one frame emitted.
type Result struct {
	Segments  int   // permanent segments (ribbons or polyline segments)
	Particles int   // transient particles
	Style     Style // appearance used this frame, for the brush indicator
}

// Synthesizer is not safe for concurrent use; it belongs to the frame loop.
type Synthesizer struct {
	cfg    Config
	sink   Sink
	rng    *rand.Rand
	logger *log.Logger

	policy  Policy
	last    geom.Vec3
	hasLast bool
	emitted int
}

// NewSynthesizer returns a synthesizer writing into sink.
func NewSynthesizer(cfg Config, sink Sink, logger *log.Logger) *Synthesizer {
	if logger == nil {
		logger = log.Default()
	}
	return &Synthesizer{
		cfg:    cfg,
		sink:   sink,
		rng:    rand.New(rand.NewPCG(uint64(cfg.Seed), 0)),
		logger: logger.WithPrefix("stroke"),
	}
}

// StyleFor returns the appearance for policy p: ink follows the pitch
// palette, the others follow volume.
func (s *Synthesizer) StyleFor(p Policy, audio feature.AudioFeatures, z float64) Style {
	if p == Ink {
		return s.cfg.Color.Pitch(audio, z)
	}
	return s.cfg.Color.Volume(audio, z)
}

// OnFrame advances the synthesizer by one frame.
func (s *Synthesizer) OnFrame(f Frame) (Result, error) {
	res := Result{Style: s.StyleFor(f.Policy, f.Audio, f.Anchor.Pos.Z)}

	if f.Policy != s.policy {
		s.logger.Debug("policy changed", "from", s.policy, "to", f.Policy)
		s.policy = f.Policy
		s.Reset()
	}
	if !f.Drawing || !f.Anchor.Valid {
		s.Reset()
		return res, nil
	}

	pos := f.Anchor.Pos
	switch f.Policy {
	case Smoke:
		n, err := s.smoke(pos, res.Style, f.Now)
		res.Particles = n
		return res, err

	case Ink, String:
		if !s.hasLast {
			s.last, s.hasLast = pos, true
			if f.Policy == String {
				if err := s.sink.BeginPolyline(); err != nil {
					return res, err
				}
				return res, s.sink.AppendPolyline(s.vertex(pos, res.Style))
			}
			return res, nil
		}
		if pos.Dist(s.last) <= s.cfg.Epsilon {
			return res, nil
		}

		var err error
		if f.Policy == Ink {
			err = s.sink.AddRibbon(s.ribbon(s.last, pos, f.Orientation.Z, res.Style))
		} else {
			err = s.sink.AppendPolyline(s.vertex(pos, res.Style))
		}
		if err != nil {
			return res, err
		}
		s.last = pos
		s.emitted++
		res.Segments = 1
	}
	return res, nil
}

// Reset forgets the last accepted anchor so the next drawing frame starts a
// new stroke.
func (s *Synthesizer) Reset() {
	s.hasLast = false
}

// Emitted is the number of permanent segments emitted since construction.
func (s *Synthesizer) Emitted() int { return s.emitted }

// SetConfig swaps the tuning. The random stream is kept.
func (s *Synthesizer) SetConfig(cfg Config) { s.cfg = cfg }

var zAxis = geom.V(0, 0, 1)

func (s *Synthesizer) ribbon(a, b geom.Vec3, roll float64, st Style) scene.Ribbon {
	dir := b.Sub(a).Normalize()
	side := dir.Cross(zAxis).Normalize()
	if side.Len() == 0 {
		side = geom.V(0, 1, 0)
	}
	side = side.RotateAround(dir, roll)
	return scene.Ribbon{
		A:     a,
		B:     b,
		Side:  side,
		Width: st.BaseScale * s.cfg.InkWidth,
		Color: st.Color,
	}
}

func (s *Synthesizer) vertex(p geom.Vec3, st Style) scene.Vertex {
	return scene.Vertex{Pos: p, Width: st.BaseScale * s.cfg.StringWidth, Color: st.Color}
}

func (s *Synthesizer) smoke(at geom.Vec3, st Style, now time.Time) (int, error) {
	j := s.cfg.ParticleJitter
	jitter := func() float64 { return (s.rng.Float64()*2 - 1) * j }
	for i := range s.cfg.ParticleCount {
		p := scene.Particle{
			Pos:      at.Add(geom.V(jitter(), jitter(), jitter())),
			Radius:   st.BaseScale * s.cfg.SmokeSize,
			Color:    st.Color,
			Lifetime: s.cfg.ParticleLifetime + time.Duration(i)*s.cfg.ParticleLifetimeStep,
		}
		if err := s.sink.AddParticle(p, now); err != nil {
			return i, err
		}
	}
	return s.cfg.ParticleCount, nil
}
