package trajectory

import (
	"math"
	"testing"

	"github.com/matzehuels/chromascribe/pkg/feature"
	"github.com/matzehuels/chromascribe/pkg/geom"
)

func at(x, y, z float64, open bool) feature.Sample {
	p := geom.V(x, y, z)
	return feature.Sample{Point: &p, HandOpen: open}
}

func absent() feature.Sample { return feature.Sample{} }

func near(a, b geom.Vec3) bool { return a.Dist(b) < 1e-9 }

func TestMap(t *testing.T) {
	f := New(DefaultConfig(), nil)
	tests := []struct {
		name string
		in   geom.Vec3
		want geom.Vec3
	}{
		{"center", geom.V(0.5, 0.5, 0), geom.V(0, 0, 0)},
		{"top left", geom.V(0, 0, 0), geom.V(7.5, 5, 0)},
		{"bottom right near", geom.V(1, 1, -0.2), geom.V(-7.5, -5, 1)},
		{"clamped", geom.V(2, -1, 3), geom.V(-7.5, 5, -5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Map(tt.in); !near(got, tt.want) {
				t.Errorf("Map(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFirstSampleSnaps(t *testing.T) {
	f := New(DefaultConfig(), nil)
	a, drawing := f.Update(at(0, 0.5, 0, true))
	if !a.Valid || !near(a.Pos, geom.V(7.5, 0, 0)) {
		t.Errorf("anchor = %+v, want snapped to target", a)
	}
	if !drawing {
		t.Error("open hand should draw")
	}
}

func TestExponentialInterpolation(t *testing.T) {
	f := New(DefaultConfig(), nil)
	f.Update(at(0.5, 0.5, 0, true)) // anchor at origin

	// Target (7.5, 0, 0); each frame closes half the remaining distance.
	want := []float64{3.75, 5.625, 6.5625}
	for i, w := range want {
		a, _ := f.Update(at(0, 0.5, 0, true))
		if math.Abs(a.Pos.X-w) > 1e-9 {
			t.Errorf("frame %d: x = %v, want %v", i, a.Pos.X, w)
		}
		if a.Pos.X > 7.5 {
			t.Errorf("frame %d overshot: %v", i, a.Pos.X)
		}
	}
}

func TestFistDoesNotDraw(t *testing.T) {
	f := New(DefaultConfig(), nil)
	a, drawing := f.Update(at(0.5, 0.5, 0, false))
	if drawing {
		t.Error("fist should not draw")
	}
	if !a.Valid {
		t.Error("anchor should still track a fist")
	}
}

func TestAbsentHoldsThenInvalidates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AbsenceFrames = 3
	f := New(cfg, nil)
	f.Update(at(0.5, 0.5, 0, true))

	for i := 1; i < 3; i++ {
		a, drawing := f.Update(absent())
		if drawing {
			t.Fatalf("absent frame %d drew", i)
		}
		if !a.Valid || !near(a.Pos, geom.Vec3{}) {
			t.Fatalf("absent frame %d: anchor = %+v, want held", i, a)
		}
	}
	if a, _ := f.Update(absent()); a.Valid {
		t.Error("anchor should be invalid after sustained absence")
	}

	// Reacquiring snaps instead of sweeping in from the old position.
	a, _ := f.Update(at(1, 0.5, 0, true))
	if !near(a.Pos, geom.V(-7.5, 0, 0)) {
		t.Errorf("reacquired anchor = %v, want snapped", a.Pos)
	}
}

func TestPresentSampleResetsAbsenceCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AbsenceFrames = 2
	f := New(cfg, nil)
	f.Update(at(0.5, 0.5, 0, true))
	f.Update(absent())
	f.Update(at(0.5, 0.5, 0, true))
	if a, _ := f.Update(absent()); !a.Valid {
		t.Error("absence count should restart after a present sample")
	}
}

func TestNonFiniteSampleIsSkipped(t *testing.T) {
	f := New(DefaultConfig(), nil)
	f.Update(at(0.5, 0.5, 0, true))

	for _, bad := range []float64{math.NaN(), math.Inf(1)} {
		a, drawing := f.Update(at(bad, 0.5, 0, true))
		if drawing {
			t.Errorf("non-finite sample %v drew", bad)
		}
		if !a.Valid || !a.Pos.IsFinite() || !near(a.Pos, geom.Vec3{}) {
			t.Errorf("anchor corrupted by %v: %+v", bad, a)
		}
	}
}

func TestReset(t *testing.T) {
	f := New(DefaultConfig(), nil)
	f.Update(at(0.5, 0.5, 0, true))
	f.Reset()
	if f.Anchor().Valid {
		t.Error("Reset should invalidate the anchor")
	}
}
