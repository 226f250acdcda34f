package stroke

import (
	"math"
	"testing"

	"github.com/matzehuels/chromascribe/pkg/errors"
	"github.com/matzehuels/chromascribe/pkg/feature"
)

func TestBaseScale(t *testing.T) {
	tests := []struct {
		volume, want float64
	}{
		{0, 0.1},
		{0.5, 0.11},
		{1, 0.12},
	}
	for _, tt := range tests {
		if got := BaseScale(tt.volume); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("BaseScale(%v) = %v, want %v", tt.volume, got, tt.want)
		}
	}
}

func TestSaturationFromDepth(t *testing.T) {
	c := DefaultColorConfig()
	tests := []struct {
		name string
		z    float64
		want float64
	}{
		{"origin", 0, 0.7},
		{"closer", 5, 1},
		{"far", -5, 0.4},
		{"slightly near", 2, 0.82},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Saturation(tt.z); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Saturation(%v) = %v, want %v", tt.z, got, tt.want)
			}
		})
	}
}

func TestPaletteIsCyclic(t *testing.T) {
	p := DefaultPalette
	if !p.At(0).AlmostEqualRgb(p[0]) {
		t.Errorf("At(0) = %v, want first stop", p.At(0).Hex())
	}
	if !p.At(1).AlmostEqualRgb(p[0]) {
		t.Errorf("At(1) = %v, want wrap to first stop", p.At(1).Hex())
	}
	if !p.At(1.0 / 3).AlmostEqualRgb(p[1]) {
		t.Errorf("At(1/3) = %v, want second stop", p.At(1.0/3).Hex())
	}
	mid := p.At(0.5)
	want := p[1].BlendRgb(p[2], 0.5)
	if !mid.AlmostEqualRgb(want) {
		t.Errorf("At(0.5) = %v, want %v", mid.Hex(), want.Hex())
	}
}

func TestParsePaletteErrors(t *testing.T) {
	if _, err := ParsePalette("#fff"); err == nil {
		t.Error("single stop should fail")
	}
	if _, err := ParsePalette("#ffffff", "nope"); err == nil {
		t.Error("bad hex should fail")
	}
}

func TestPitchStyleUsesDepthSaturation(t *testing.T) {
	c := DefaultColorConfig()
	st := c.Pitch(feature.AudioFeatures{Pitch: 0.5}, 5)
	if _, s, _ := st.Color.Hsl(); math.Abs(s-1) > 0.02 {
		t.Errorf("saturation = %v, want 1 for a close anchor", s)
	}
}

func TestPolicyCycle(t *testing.T) {
	p := Ink
	var got []string
	for range 4 {
		got = append(got, p.String())
		p = p.Next()
	}
	want := []string{"ink", "smoke", "string", "ink"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("cycle = %v, want %v", got, want)
		}
	}
	if Smoke.Permanent() || !Ink.Permanent() || !String.Permanent() {
		t.Error("only smoke is transient")
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"ink", Ink, false},
		{" Smoke ", Smoke, false},
		{"STRING", String, false},
		{"crayon", Ink, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePolicy(tt.in)
			if tt.wantErr {
				if !errors.Is(err, errors.ErrCodeInvalidBrush) {
					t.Errorf("err = %v, want INVALID_BRUSH", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParsePolicy(%q) = %v, %v", tt.in, got, err)
			}
		})
	}
}
