package stroke

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/chromascribe/pkg/feature"
	"github.com/matzehuels/chromascribe/pkg/geom"
)

// Palette is a cyclic list of color stops, evenly spaced over [0, 1).
// Position 1 wraps back to the first stop.
type Palette []colorful.Color

// DefaultPalette is teal, brass and terracotta.
var DefaultPalette = MustPalette("#598280", "#C7A250", "#B86A4C")

// ParsePalette parses hex color stops.
func ParsePalette(hex ...string) (Palette, error) {
	if len(hex) < 2 {
		return nil, fmt.Errorf("palette needs at least two stops, got %d", len(hex))
	}
	p := make(Palette, len(hex))
	for i, h := range hex {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, fmt.Errorf("palette stop %d: %w", i, err)
		}
		p[i] = c
	}
	return p, nil
}

// MustPalette is ParsePalette that panics on error.
func MustPalette(hex ...string) Palette {
	p, err := ParsePalette(hex...)
	if err != nil {
		panic(err)
	}
	return p
}

// At interpolates linearly between the two stops around t.
func (p Palette) At(t float64) colorful.Color {
	n := float64(len(p))
	x := geom.Clamp(t, 0, 1) * n
	k := int(math.Floor(x))
	frac := x - float64(k)
	a := p[k%len(p)]
	b := p[(k+1)%len(p)]
	return a.BlendRgb(b, frac).Clamped()
}

// ColorConfig tunes color derivation.
type ColorConfig struct {
	Palette             Palette
	SaturationBase      float64
	SaturationDepthGain float64
	Lightness           float64
}

// DefaultColorConfig returns the stock tuning.
func DefaultColorConfig() ColorConfig {
	return ColorConfig{
		Palette:             DefaultPalette,
		SaturationBase:      0.7,
		SaturationDepthGain: 0.06,
		Lightness:           0.5,
	}
}

// Style is the per-frame appearance shared by every policy.
type Style struct {
	Color     colorful.Color
	BaseScale float64
}

// BaseScale is the size scalar every width is a multiple of.
func BaseScale(volume float64) float64 { return 0.1 + volume/50 }

// Saturation maps anchor depth to saturation. Closer anchors (larger z) are
// more vibrant.
func (c ColorConfig) Saturation(z float64) float64 {
	return geom.Clamp(c.SaturationBase+z*c.SaturationDepthGain, 0.4, 1)
}

// Volume derives the loudness-driven color: hue is volume/100 of the wheel.
func (c ColorConfig) Volume(a feature.AudioFeatures, z float64) Style {
	hue := geom.Clamp(a.Volume, 0, 1) / 100 * 360
	return Style{
		Color:     colorful.Hsl(hue, c.Saturation(z), c.Lightness),
		BaseScale: BaseScale(a.Volume),
	}
}

// Pitch derives the palette color for pitch with depth saturation applied.
func (c ColorConfig) Pitch(a feature.AudioFeatures, z float64) Style {
	h, _, l := c.Palette.At(a.Pitch).Hsl()
	return Style{
		Color:     colorful.Hsl(h, c.Saturation(z), l),
		BaseScale: BaseScale(a.Volume),
	}
}
