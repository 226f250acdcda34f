package scene

import (
	"image"
	"math"
	"sort"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"
	xdraw "golang.org/x/image/draw"

	"github.com/matzehuels/chromascribe/pkg/geom"
)

// minLinePx keeps far strokes visible.
const minLinePx = 1.0

// drawable is one depth-sorted paint operation.
type drawable struct {
	depth float64
	paint func(dc *gg.Context)
}

// Render repaints the retained frame from the current geometry set.
func (c *Canvas) Render() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renderLocked()
}

func (c *Canvas) renderLocked() {
	dc := gg.NewContextForRGBA(c.frame)
	dc.SetColor(nrgba(c.background, 1))
	dc.Clear()

	if c.backdrop != nil {
		xdraw.CatmullRom.Scale(c.frame, c.frame.Bounds(), c.backdrop, c.backdrop.Bounds(), xdraw.Over, nil)
	}

	var ops []drawable
	for _, r := range c.ribbons {
		if op, ok := c.ribbonOp(r); ok {
			ops = append(ops, op)
		}
	}
	for _, p := range c.polylines {
		ops = append(ops, c.polylineOps(p)...)
	}
	for _, p := range c.particles {
		if op, ok := c.sphereOp(p.Pos, p.Radius*c.worldScale, p.Color, p.opacity, false); ok {
			ops = append(ops, op)
		}
	}

	// Painter's algorithm: farthest first. Stable keeps insertion order for
	// coplanar strokes.
	sort.SliceStable(ops, func(i, j int) bool { return ops[i].depth > ops[j].depth })
	for _, op := range ops {
		op.paint(dc)
	}

	if c.brush.Visible {
		if op, ok := c.sphereOp(c.brush.Pos, c.brush.Radius, c.brush.Color, 0.85, true); ok {
			op.paint(dc)
		}
	}
}

// lambert returns the diffuse intensity for a surface at p with normal n.
// Two-sided: ribbons are visible from both faces.
func (c *Canvas) lambert(p, n geom.Vec3) float64 {
	l := c.light.Sub(p).Normalize()
	d := math.Abs(n.Normalize().Dot(l))
	return geom.Clamp(c.ambient+(1-c.ambient)*d, 0, 1)
}

func shade(col colorful.Color, k float64) colorful.Color {
	return colorful.Color{R: col.R * k, G: col.G * k, B: col.B * k}
}

func (c *Canvas) ribbonOp(r *Ribbon) (drawable, bool) {
	corners := r.Corners(c.worldScale)
	var pts [4][2]float64
	depth := 0.0
	for i, p := range corners {
		x, y, d, ok := c.cam.Project(p)
		if !ok {
			return drawable{}, false
		}
		pts[i] = [2]float64{x, y}
		depth += d
	}
	center := r.A.Lerp(r.B, 0.5)
	normal := r.B.Sub(r.A).Cross(r.Side)
	fill := nrgba(shade(r.Color, c.lambert(center, normal)), 1)
	return drawable{
		depth: depth / 4,
		paint: func(dc *gg.Context) {
			dc.NewSubPath()
			dc.MoveTo(pts[0][0], pts[0][1])
			for _, p := range pts[1:] {
				dc.LineTo(p[0], p[1])
			}
			dc.ClosePath()
			dc.SetColor(fill)
			dc.Fill()
		},
	}, true
}

// polylineOps emits one op per segment so strips interleave correctly with
// other geometry. Lines are unlit.
func (c *Canvas) polylineOps(p *Polyline) []drawable {
	var ops []drawable
	for i := 1; i < len(p.Vertices); i++ {
		a, b := p.Vertices[i-1], p.Vertices[i]
		ax, ay, ad, okA := c.cam.Project(a.Pos)
		bx, by, bd, okB := c.cam.Project(b.Pos)
		if !okA || !okB {
			continue
		}
		depth := (ad + bd) / 2
		width := math.Max(minLinePx, c.cam.Scale(b.Width*c.worldScale, depth))
		col := nrgba(b.Color, 1)
		ops = append(ops, drawable{
			depth: depth,
			paint: func(dc *gg.Context) {
				dc.SetLineCapRound()
				dc.SetLineWidth(width)
				dc.SetColor(col)
				dc.DrawLine(ax, ay, bx, by)
				dc.Stroke()
			},
		})
	}
	return ops
}

// sphereOp shades a sphere with a radial gradient whose highlight leans
// toward the light. Emissive spheres skip the falloff.
func (c *Canvas) sphereOp(pos geom.Vec3, radius float64, col colorful.Color, alpha float64, emissive bool) (drawable, bool) {
	x, y, depth, ok := c.cam.Project(pos)
	if !ok || alpha <= 0 {
		return drawable{}, false
	}
	r := math.Max(minLinePx, c.cam.Scale(radius, depth))
	if emissive {
		fill := nrgba(col, alpha)
		return drawable{depth: depth, paint: func(dc *gg.Context) {
			dc.DrawCircle(x, y, r)
			dc.SetColor(fill)
			dc.Fill()
		}}, true
	}

	l := c.light.Sub(pos).Normalize()
	hx, hy := x+l.X*r*0.4, y-l.Y*r*0.4
	lit := nrgba(shade(col, 1), alpha)
	dark := nrgba(shade(col, c.ambient), alpha)
	return drawable{depth: depth, paint: func(dc *gg.Context) {
		g := gg.NewRadialGradient(hx, hy, 0, x, y, r)
		g.AddColorStop(0, lit)
		g.AddColorStop(1, dark)
		dc.DrawCircle(x, y, r)
		dc.SetFillStyle(g)
		dc.Fill()
	}}, true
}

// CopyPixels copies the retained frame into dst, which must hold
// width*height*4 bytes of premultiplied RGBA. It returns false when dst has
// the wrong size, for example after a resize.
func (c *Canvas) CopyPixels(dst []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(dst) != len(c.frame.Pix) {
		return false
	}
	copy(dst, c.frame.Pix)
	return true
}

// SnapshotImage returns a copy of the retained frame.
func (c *Canvas) SnapshotImage() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	img := image.NewRGBA(c.frame.Rect)
	copy(img.Pix, c.frame.Pix)
	return img
}
