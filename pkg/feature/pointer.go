package feature

import (
	"context"
	"sync"
	"time"

	"github.com/matzehuels/chromascribe/pkg/geom"
)

// PointerTracker turns a mouse or pen into a gesture feed.
//
// The window loop reports the cursor through Move. A held button stands in
// for an open hand and a released one for a fist, so the pointer draws only
// while pressed. The scroll wheel moves the depth within [-1, 1].
type PointerTracker struct {
	now func() time.Time

	mu      sync.Mutex
	enabled bool
	start   time.Time
	inside  bool
	x, y, z float64
	pressed bool
}

// NewPointerTracker returns a disabled tracker.
func NewPointerTracker() *PointerTracker {
	return &PointerTracker{now: time.Now}
}

// Enable starts reporting the pointer.
func (p *PointerTracker) Enable(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = true
	p.start = p.now()
	p.inside = false
	return nil
}

// Disable stops reporting and forgets the last position.
func (p *PointerTracker) Disable() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = false
	p.inside = false
	p.pressed = false
}

// Move records the cursor at pixel (x, y) in a window of the given size.
// A cursor outside the window reads as an absent hand.
func (p *PointerTracker) Move(x, y, width, height int, pressed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return
	}
	p.inside = width > 0 && height > 0 && x >= 0 && y >= 0 && x < width && y < height
	if !p.inside {
		p.pressed = false
		return
	}
	p.x = float64(x) / float64(width)
	p.y = float64(y) / float64(height)
	p.pressed = pressed
}

// Scroll moves the depth by dy wheel steps. Scrolling up brings the brush
// closer.
func (p *PointerTracker) Scroll(dy float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.z = min(1, max(-1, p.z-dy*0.05))
}

// Latest returns the current pointer sample.
func (p *PointerTracker) Latest() (Sample, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return Sample{}, false
	}
	s := Sample{Timestamp: p.now().Sub(p.start)}
	if p.inside {
		s.Point = &geom.Vec3{X: p.x, Y: p.y, Z: p.z}
		s.HandOpen = p.pressed
	}
	return s, true
}
