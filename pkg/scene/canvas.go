// Package scene owns the render surface and the live stroke geometry.
//
// A [Canvas] holds the Scene Geometry Set (ribbons, polyline strips and
// particles), a perspective camera, lighting and a retained RGBA frame. The
// frame loop mutates the set between renders; a viewer goroutine may copy
// frames concurrently, so every method takes the canvas lock.
//
// Clearing releases every primitive's buffer, empties the set and bumps the
// generation counter. Particle expiry is a deferred task tagged with the
// generation it was scheduled in, so an expiry that comes due after a clear
// is dropped instead of touching the new set.
package scene

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lucasb-eyer/go-colorful"

	errs "github.com/matzehuels/chromascribe/pkg/errors"
	"github.com/matzehuels/chromascribe/pkg/geom"
	"github.com/matzehuels/chromascribe/pkg/observability"
)

// ErrBufferNotPreserved rejects canvases configured to discard their frame
// between paints: snapshots would capture a blank image.
var ErrBufferNotPreserved = errors.New("render surface must preserve its drawing buffer")

// Canvas is the render surface plus the Scene Geometry Set.
type Canvas struct {
	mu sync.Mutex

	cam        Camera
	background colorful.Color
	ambient    float64
	light      geom.Vec3
	worldScale float64
	preserve   bool
	alloc      Allocator
	logger     *log.Logger

	ribbons   []*Ribbon
	polylines []*Polyline
	particles []*Particle
	nextID    uint64

	generation uint64
	sched      scheduler
	expired    int
	stale      int

	brush    Indicator
	backdrop image.Image
	frame    *image.RGBA
}

// Option configures a Canvas.
type Option func(*Canvas)

// WithSize sets the viewport in pixels.
func WithSize(width, height int) Option {
	return func(c *Canvas) { c.cam.resize(width, height) }
}

// WithCamera sets the vertical field of view (degrees) and camera distance.
func WithCamera(fov, z float64) Option {
	return func(c *Canvas) {
		c.cam.FOV, c.cam.Z = fov, z
		c.cam.resize(c.cam.width, c.cam.height)
	}
}

// WithBackground sets the clear color.
func WithBackground(bg colorful.Color) Option {
	return func(c *Canvas) { c.background = bg }
}

// WithLights sets the ambient intensity and the point light position.
func WithLights(ambient float64, light geom.Vec3) Option {
	return func(c *Canvas) { c.ambient, c.light = ambient, light }
}

// WithWorldScale sets the factor from stroke widths to scene units.
func WithWorldScale(s float64) Option {
	return func(c *Canvas) { c.worldScale = s }
}

// WithAllocator replaces the default buffer pool.
func WithAllocator(a Allocator) Option {
	return func(c *Canvas) { c.alloc = a }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Canvas) { c.logger = l }
}

// WithPreserveBuffer controls whether the frame survives between paints.
// Only true is accepted.
func WithPreserveBuffer(preserve bool) Option {
	return func(c *Canvas) { c.preserve = preserve }
}

// DefaultBackground is the charcoal the canvas clears to.
var DefaultBackground, _ = colorful.Hex("#28282D")

// New returns an empty canvas rendered once to its background.
func New(opts ...Option) (*Canvas, error) {
	c := &Canvas{
		cam:        NewCamera(75, 8, 800, 600),
		background: DefaultBackground,
		ambient:    0.5,
		light:      geom.V(10, 10, 10),
		worldScale: 0.08,
		preserve:   true,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if !c.preserve {
		return nil, ErrBufferNotPreserved
	}
	if c.cam.width < 1 || c.cam.height < 1 {
		return nil, errs.New(errs.ErrCodeInvalidInput, "canvas size must be positive, got %dx%d", c.cam.width, c.cam.height)
	}
	if c.alloc == nil {
		c.alloc = NewPool()
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	c.logger = c.logger.WithPrefix("canvas")
	c.frame = image.NewRGBA(image.Rect(0, 0, c.cam.width, c.cam.height))
	c.renderLocked()
	return c, nil
}

// Size returns the viewport in pixels.
func (c *Canvas) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cam.width, c.cam.height
}

// Generation returns the number of clears so far.
func (c *Canvas) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// AddRibbon adds a permanent ribbon.
func (c *Canvas) AddRibbon(r Ribbon) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf, err := c.alloc.Allocate(KindRibbon)
	if err != nil {
		return err
	}
	r.buf = buf
	c.ribbons = append(c.ribbons, &r)
	return nil
}

// BeginPolyline starts a new strip. Vertices appended afterwards extend it.
func (c *Canvas) BeginPolyline() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.beginPolylineLocked()
}

func (c *Canvas) beginPolylineLocked() error {
	buf, err := c.alloc.Allocate(KindPolyline)
	if err != nil {
		return err
	}
	c.polylines = append(c.polylines, &Polyline{buf: buf})
	return nil
}

// AppendPolyline extends the current strip, starting one if none exists.
func (c *Canvas) AppendPolyline(v Vertex) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.polylines) == 0 {
		if err := c.beginPolylineLocked(); err != nil {
			return err
		}
	}
	p := c.polylines[len(c.polylines)-1]
	p.Vertices = append(p.Vertices, v)
	return nil
}

// AddParticle adds a transient particle born at now and schedules its
// removal after its lifetime.
func (c *Canvas) AddParticle(p Particle, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf, err := c.alloc.Allocate(KindParticle)
	if err != nil {
		return err
	}
	c.nextID++
	p.id, p.born, p.opacity, p.buf = c.nextID, now, 1, buf
	pp := &p
	c.particles = append(c.particles, pp)
	c.sched.schedule(now.Add(p.Lifetime), c.generation, func() { c.removeParticleLocked(pp.id) })
	return nil
}

// removeParticleLocked runs from the scheduler with c.mu held.
func (c *Canvas) removeParticleLocked(id uint64) {
	for i, p := range c.particles {
		if p.id != id {
			continue
		}
		if err := p.buf.Release(); err != nil {
			c.logger.Warn("release particle", "err", errs.Wrap(errs.ErrCodeDisposal, err, "particle %d", id))
		}
		c.particles = append(c.particles[:i], c.particles[i+1:]...)
		c.expired++
		return
	}
}

// Advance runs every deferred task due at now and updates particle fades.
// It returns the number of particles removed.
func (c *Canvas) Advance(ctx context.Context, now time.Time) int {
	c.mu.Lock()
	ran, stale := c.sched.drain(now, c.generation)
	c.stale += stale
	for _, p := range c.particles {
		if p.Lifetime <= 0 {
			p.opacity = 0
			continue
		}
		age := now.Sub(p.born)
		p.opacity = geom.Clamp(1-float64(age)/float64(p.Lifetime), 0, 1)
	}
	c.mu.Unlock()

	if ran > 0 {
		observability.Canvas().OnExpire(ctx, ran)
	}
	return ran
}

// SetIndicator updates the brush sphere.
func (c *Canvas) SetIndicator(ind Indicator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.brush = ind
}

// SetBackdrop shows img behind the strokes, scaled to the viewport.
// A nil image removes the backdrop.
func (c *Canvas) SetBackdrop(img image.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.backdrop = img
}

// ClearStats reports what a clear released.
type ClearStats struct {
	Disposed   int
	Failures   int
	Generation uint64
}

// Clear releases every primitive's buffer and empties the geometry set.
// Release failures are logged and counted; the set is emptied regardless.
// The retained frame is repainted so a snapshot taken right after shows the
// empty canvas.
func (c *Canvas) Clear(ctx context.Context) ClearStats {
	c.mu.Lock()
	var st ClearStats
	release := func(kind Kind, b Buffer) {
		if b == nil {
			return
		}
		if err := b.Release(); err != nil {
			st.Failures++
			c.logger.Warn("release failed, continuing", "kind", kind, "err", errs.Wrap(errs.ErrCodeDisposal, err, "release %s", kind))
			return
		}
		st.Disposed++
	}
	for _, r := range c.ribbons {
		release(KindRibbon, r.buf)
	}
	for _, p := range c.polylines {
		release(KindPolyline, p.buf)
	}
	for _, p := range c.particles {
		release(KindParticle, p.buf)
	}

	c.ribbons, c.polylines, c.particles = nil, nil, nil
	c.backdrop = nil
	c.generation++
	st.Generation = c.generation
	c.renderLocked()
	c.mu.Unlock()

	c.logger.Debug("cleared", "disposed", st.Disposed, "failures", st.Failures, "generation", st.Generation)
	observability.Canvas().OnClear(ctx, st.Generation, st.Disposed, st.Failures)
	return st
}

// Resize changes the viewport. Geometry is untouched; the frame is
// reallocated and repainted.
func (c *Canvas) Resize(width, height int) error {
	if width < 1 || height < 1 {
		return errs.New(errs.ErrCodeInvalidInput, "canvas size must be positive, got %dx%d", width, height)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cam.resize(width, height)
	c.frame = image.NewRGBA(image.Rect(0, 0, width, height))
	c.renderLocked()
	return nil
}

// Stats summarizes the geometry set.
type Stats struct {
	Ribbons          int
	Polylines        int
	PolylineSegments int
	Particles        int
	Generation       uint64
	Expired          int
	StaleTasks       int
	PendingTasks     int
}

// Permanent is the number of permanent segments (ribbons plus polyline
// segments).
func (s Stats) Permanent() int { return s.Ribbons + s.PolylineSegments }

// Stats returns a summary of the geometry set.
func (c *Canvas) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Stats{
		Ribbons:      len(c.ribbons),
		Polylines:    len(c.polylines),
		Particles:    len(c.particles),
		Generation:   c.generation,
		Expired:      c.expired,
		StaleTasks:   c.stale,
		PendingTasks: c.sched.pending(),
	}
	for _, p := range c.polylines {
		st.PolylineSegments += p.Segments()
	}
	return st
}

// Ribbons returns copies of the live ribbons.
func (c *Canvas) Ribbons() []Ribbon {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Ribbon, len(c.ribbons))
	for i, r := range c.ribbons {
		out[i] = *r
		out[i].buf = nil
	}
	return out
}

// Polylines returns copies of the live strips.
func (c *Canvas) Polylines() [][]Vertex {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]Vertex, len(c.polylines))
	for i, p := range c.polylines {
		out[i] = append([]Vertex(nil), p.Vertices...)
	}
	return out
}

// Particles returns copies of the live particles.
func (c *Canvas) Particles() []Particle {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Particle, len(c.particles))
	for i, p := range c.particles {
		out[i] = *p
		out[i].buf = nil
	}
	return out
}
