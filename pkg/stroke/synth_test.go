package stroke

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/matzehuels/chromascribe/pkg/feature"
	"github.com/matzehuels/chromascribe/pkg/geom"
	"github.com/matzehuels/chromascribe/pkg/scene"
	"github.com/matzehuels/chromascribe/pkg/trajectory"
)

var t0 = time.Unix(1000, 0)

func newSynth(t *testing.T) (*Synthesizer, *scene.Canvas) {
	t.Helper()
	c, err := scene.New(scene.WithSize(32, 24))
	if err != nil {
		t.Fatalf("scene.New: %v", err)
	}
	return NewSynthesizer(DefaultConfig(), c, nil), c
}

func draw(t *testing.T, s *Synthesizer, p Policy, pts ...geom.Vec3) {
	t.Helper()
	for i, pt := range pts {
		_, err := s.OnFrame(Frame{
			Anchor:  trajectory.Anchor{Pos: pt, Valid: true},
			Drawing: true,
			Policy:  p,
			Now:     t0.Add(time.Duration(i) * 16 * time.Millisecond),
		})
		if err != nil {
			t.Fatalf("OnFrame(%v): %v", pt, err)
		}
	}
}

func TestStringSuppressesRepeatedAnchor(t *testing.T) {
	s, c := newSynth(t)
	draw(t, s, String, geom.V(0, 0, 0), geom.V(1, 0, 0), geom.V(1, 0, 0), geom.V(2, 0, 0))

	st := c.Stats()
	if st.PolylineSegments != 2 {
		t.Errorf("segments = %d, want 2", st.PolylineSegments)
	}
	if st.Polylines != 1 {
		t.Errorf("strips = %d, want 1", st.Polylines)
	}
}

func TestInkAtSilenceUsesMinimumWidth(t *testing.T) {
	s, c := newSynth(t)
	draw(t, s, Ink, geom.V(0, 0, 0), geom.V(1, 0, 0), geom.V(2, 1, 0), geom.V(3, 1, 1))

	ribbons := c.Ribbons()
	if len(ribbons) != 3 {
		t.Fatalf("ribbons = %d, want 3", len(ribbons))
	}
	for i, r := range ribbons {
		if math.Abs(r.Width-2.5) > 1e-9 {
			t.Errorf("ribbon %d width = %v, want 2.5", i, r.Width)
		}
	}
}

func TestJitterBelowEpsilonEmitsNothing(t *testing.T) {
	for _, p := range []Policy{Ink, String} {
		t.Run(p.String(), func(t *testing.T) {
			s, c := newSynth(t)
			draw(t, s, p,
				geom.V(0, 0, 0),
				geom.V(0.005, 0, 0),
				geom.V(0.009, 0, 0),
				geom.V(0.002, 0.003, 0.004),
				geom.V(0, 0, 0.008),
			)
			if got := c.Stats().Permanent(); got != 0 {
				t.Errorf("permanent segments = %d, want 0", got)
			}
		})
	}
}

func TestPolicySwitchKeepsOldGeometry(t *testing.T) {
	s, c := newSynth(t)
	draw(t, s, Ink, geom.V(0, 0, 0), geom.V(1, 0, 0), geom.V(2, 0, 0))
	before := c.Ribbons()

	draw(t, s, String, geom.V(2, 1, 0), geom.V(3, 1, 0))
	draw(t, s, Smoke, geom.V(3, 2, 0))

	if diff := cmp.Diff(before, c.Ribbons(), cmpopts.IgnoreUnexported(scene.Ribbon{})); diff != "" {
		t.Errorf("ink geometry changed after switch (-before +after):\n%s", diff)
	}
	st := c.Stats()
	if st.Ribbons != 2 || st.PolylineSegments != 1 || st.Particles != 3 {
		t.Errorf("Stats = %+v, want 2 ribbons, 1 polyline segment, 3 particles", st)
	}
}

func TestDrawingGapBreaksContinuity(t *testing.T) {
	s, c := newSynth(t)
	draw(t, s, Ink, geom.V(0, 0, 0), geom.V(1, 0, 0))
	if _, err := s.OnFrame(Frame{Anchor: trajectory.Anchor{Pos: geom.V(1, 0, 0), Valid: true}, Policy: Ink}); err != nil {
		t.Fatal(err)
	}
	draw(t, s, Ink, geom.V(5, 0, 0))

	if got := c.Stats().Ribbons; got != 1 {
		t.Errorf("ribbons = %d, want 1 (no bridge across the gap)", got)
	}
}

func TestStringGapStartsNewStrip(t *testing.T) {
	s, c := newSynth(t)
	draw(t, s, String, geom.V(0, 0, 0), geom.V(1, 0, 0))
	_, _ = s.OnFrame(Frame{Policy: String})
	draw(t, s, String, geom.V(4, 0, 0), geom.V(5, 0, 0))

	st := c.Stats()
	if st.Polylines != 2 || st.PolylineSegments != 2 {
		t.Errorf("Stats = %+v, want 2 strips with 1 segment each", st)
	}
}

func TestNotDrawingEmitsNothing(t *testing.T) {
	s, c := newSynth(t)
	for _, p := range Policies() {
		res, err := s.OnFrame(Frame{Anchor: trajectory.Anchor{Pos: geom.V(1, 1, 1), Valid: true}, Policy: p})
		if err != nil {
			t.Fatal(err)
		}
		if res.Segments+res.Particles != 0 {
			t.Errorf("%s: emitted %+v while not drawing", p, res)
		}
	}
	if st := c.Stats(); st.Permanent()+st.Particles != 0 {
		t.Errorf("Stats = %+v, want empty", st)
	}
}

func TestSmokeParticles(t *testing.T) {
	s, c := newSynth(t)
	res, err := s.OnFrame(Frame{
		Anchor:  trajectory.Anchor{Pos: geom.V(1, 1, 0), Valid: true},
		Drawing: true,
		Policy:  Smoke,
		Now:     t0,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Particles != 3 || res.Segments != 0 {
		t.Fatalf("result = %+v, want 3 particles", res)
	}

	ps := c.Particles()
	want := []time.Duration{2 * time.Second, 2500 * time.Millisecond, 3 * time.Second}
	for i, p := range ps {
		if p.Lifetime != want[i] {
			t.Errorf("particle %d lifetime = %v, want %v", i, p.Lifetime, want[i])
		}
		if math.Abs(p.Radius-0.4) > 1e-9 {
			t.Errorf("particle %d radius = %v, want 0.4", i, p.Radius)
		}
		if d := p.Pos.Sub(geom.V(1, 1, 0)); math.Abs(d.X) > 0.15 || math.Abs(d.Y) > 0.15 || math.Abs(d.Z) > 0.15 {
			t.Errorf("particle %d jitter %v exceeds 0.15", i, d)
		}
	}

	// Stationary smoke keeps emitting: no epsilon check.
	res, _ = s.OnFrame(Frame{Anchor: trajectory.Anchor{Pos: geom.V(1, 1, 0), Valid: true}, Drawing: true, Policy: Smoke, Now: t0})
	if res.Particles != 3 {
		t.Errorf("second frame particles = %d, want 3", res.Particles)
	}
}

func TestSmokeExpiresWithinLifetimePlusFrame(t *testing.T) {
	ctx := t.Context()
	s, c := newSynth(t)
	draw(t, s, Smoke, geom.V(0, 0, 0))

	c.Advance(ctx, t0.Add(3*time.Second+16*time.Millisecond))
	if got := c.Stats().Particles; got != 0 {
		t.Errorf("particles = %d after longest lifetime plus a frame, want 0", got)
	}
}

func TestSmokeSeededIsDeterministic(t *testing.T) {
	a, ca := newSynth(t)
	b, cb := newSynth(t)
	draw(t, a, Smoke, geom.V(0, 0, 0), geom.V(1, 0, 0))
	draw(t, b, Smoke, geom.V(0, 0, 0), geom.V(1, 0, 0))

	opt := cmpopts.IgnoreUnexported(scene.Particle{})
	if diff := cmp.Diff(ca.Particles(), cb.Particles(), opt); diff != "" {
		t.Errorf("same seed produced different particles:\n%s", diff)
	}
}

func TestRibbonRoll(t *testing.T) {
	s, c := newSynth(t)
	frame := func(x, roll float64) Frame {
		return Frame{
			Anchor:      trajectory.Anchor{Pos: geom.V(x, 0, 0), Valid: true},
			Drawing:     true,
			Policy:      Ink,
			Orientation: feature.Orientation{Z: roll},
		}
	}
	for _, f := range []Frame{frame(0, 0), frame(1, 0), frame(2, math.Pi/2)} {
		if _, err := s.OnFrame(f); err != nil {
			t.Fatal(err)
		}
	}

	rs := c.Ribbons()
	if len(rs) != 2 {
		t.Fatalf("ribbons = %d, want 2", len(rs))
	}
	if rs[0].Side.Dist(geom.V(0, -1, 0)) > 1e-9 {
		t.Errorf("flat side = %v, want (0,-1,0)", rs[0].Side)
	}
	if rs[1].Side.Dist(geom.V(0, 0, -1)) > 1e-9 {
		t.Errorf("rolled side = %v, want (0,0,-1)", rs[1].Side)
	}
}

func TestStyleByPolicy(t *testing.T) {
	s, _ := newSynth(t)
	audio := feature.AudioFeatures{Volume: 0.5, Pitch: 0}

	ink := s.StyleFor(Ink, audio, 0)
	h, _, _ := ink.Color.Hsl()
	h0, _, _ := DefaultPalette[0].Hsl()
	if math.Abs(h-h0) > 1 {
		t.Errorf("ink hue = %v, want palette stop 0 hue %v", h, h0)
	}
	if math.Abs(ink.BaseScale-0.11) > 1e-9 {
		t.Errorf("BaseScale = %v, want 0.11", ink.BaseScale)
	}

	str := s.StyleFor(String, audio, 0)
	if h, _, _ := str.Color.Hsl(); math.Abs(h-1.8) > 0.5 {
		t.Errorf("string hue = %v, want about 1.8", h)
	}
}
