package geom

import (
	"math"
	"testing"
)

func TestLerp(t *testing.T) {
	a := V(0, 0, 0)
	b := V(2, -4, 8)

	if got := a.Lerp(b, 0.5); got != V(1, -2, 4) {
		t.Errorf("Lerp(0.5) = %v, want (1,-2,4)", got)
	}
	if got := a.Lerp(b, 0); got != a {
		t.Errorf("Lerp(0) = %v, want %v", got, a)
	}
	if got := a.Lerp(b, 1); got != b {
		t.Errorf("Lerp(1) = %v, want %v", got, b)
	}
}

func TestDist(t *testing.T) {
	if d := V(1, 2, 2).Dist(V(0, 0, 0)); d != 3 {
		t.Errorf("Dist = %v, want 3", d)
	}
}

func TestIsFinite(t *testing.T) {
	tests := []struct {
		name string
		v    Vec3
		want bool
	}{
		{"finite", V(1, 2, 3), true},
		{"nan", V(math.NaN(), 0, 0), false},
		{"inf", V(0, math.Inf(-1), 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.IsFinite(); got != tt.want {
				t.Errorf("IsFinite() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBoxClamp(t *testing.T) {
	b := NewBox(V(7.5, 5, -5), V(-7.5, -5, 5))
	if b.Min != V(-7.5, -5, -5) || b.Max != V(7.5, 5, 5) {
		t.Fatalf("NewBox did not order corners: %+v", b)
	}
	if got := b.Clamp(V(100, -100, 2)); got != V(7.5, -5, 2) {
		t.Errorf("Clamp = %v, want (7.5,-5,2)", got)
	}
	if !b.Contains(V(0, 0, 0)) {
		t.Error("origin should be inside")
	}
	if b.Contains(V(8, 0, 0)) {
		t.Error("(8,0,0) should be outside")
	}
}

func TestRotateAround(t *testing.T) {
	got := V(1, 0, 0).RotateAround(V(0, 0, 1), math.Pi/2)
	if math.Abs(got.X) > 1e-12 || math.Abs(got.Y-1) > 1e-12 || math.Abs(got.Z) > 1e-12 {
		t.Errorf("RotateAround = %v, want (0,1,0)", got)
	}
}
