package scene

import (
	"math"

	"github.com/matzehuels/chromascribe/pkg/geom"
)

// nearPlane is the closest distance in front of the camera that is drawn.
const nearPlane = 0.1

// Camera is a perspective camera on the +z axis looking toward the origin.
type Camera struct {
	FOV float64 // vertical field of view in degrees
	Z   float64 // distance from the origin

	width, height int
	focal         float64
}

// NewCamera returns a camera for a viewport of width by height pixels.
func NewCamera(fov, z float64, width, height int) Camera {
	c := Camera{FOV: fov, Z: z}
	c.resize(width, height)
	return c
}

func (c *Camera) resize(width, height int) {
	c.width, c.height = width, height
	c.focal = float64(height) / 2 / math.Tan(c.FOV*math.Pi/360)
}

// Aspect is width over height.
func (c Camera) Aspect() float64 { return float64(c.width) / float64(c.height) }

// Project maps a scene point to pixel coordinates. The third value is the
// distance in front of the camera; ok is false behind the near plane.
func (c Camera) Project(p geom.Vec3) (x, y, depth float64, ok bool) {
	depth = c.Z - p.Z
	if depth < nearPlane {
		return 0, 0, depth, false
	}
	s := c.focal / depth
	return float64(c.width)/2 + p.X*s, float64(c.height)/2 - p.Y*s, depth, true
}

// Scale converts a scene length at the given depth to pixels.
func (c Camera) Scale(length, depth float64) float64 {
	return length * c.focal / depth
}

// Position is the camera location in scene space.
func (c Camera) Position() geom.Vec3 { return geom.V(0, 0, c.Z) }
