package scene

import (
	"image/color"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/chromascribe/pkg/geom"
)

// Ribbon is a flat quad spanning two anchors. Side is the unit vector across
// the ribbon; the corners are A and B offset by ±Side·Width/2.
type Ribbon struct {
	A, B  geom.Vec3
	Side  geom.Vec3
	Width float64
	Color colorful.Color

	buf Buffer
}

// Corners returns the quad in drawing order.
func (r *Ribbon) Corners(worldScale float64) [4]geom.Vec3 {
	h := r.Side.Scale(r.Width * worldScale / 2)
	return [4]geom.Vec3{r.A.Add(h), r.B.Add(h), r.B.Sub(h), r.A.Sub(h)}
}

// Vertex is one point of a polyline strip.
type Vertex struct {
	Pos   geom.Vec3
	Width float64
	Color colorful.Color
}

// Polyline is one continuous line strip. A strip of n vertices holds n-1
// segments.
type Polyline struct {
	Vertices []Vertex

	buf Buffer
}

// Segments is the number of line segments in the strip.
func (p *Polyline) Segments() int { return max(0, len(p.Vertices)-1) }

// Particle is a transient sphere that fades and removes itself after
// Lifetime.
type Particle struct {
	Pos      geom.Vec3
	Radius   float64
	Color    colorful.Color
	Lifetime time.Duration

	id      uint64
	born    time.Time
	opacity float64
	buf     Buffer
}

// Opacity is the current fade level in [0, 1].
func (p *Particle) Opacity() float64 { return p.opacity }

// Indicator is the moving brush sphere. It is drawn last and is not part of
// the geometry set.
type Indicator struct {
	Pos     geom.Vec3
	Radius  float64
	Color   colorful.Color
	Visible bool
}

func nrgba(c colorful.Color, alpha float64) color.NRGBA {
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: uint8(geom.Clamp(alpha, 0, 1)*255 + 0.5)}
}
