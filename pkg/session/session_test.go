package session

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	errs "github.com/matzehuels/chromascribe/pkg/errors"
	"github.com/matzehuels/chromascribe/pkg/feature"
	"github.com/matzehuels/chromascribe/pkg/geom"
	"github.com/matzehuels/chromascribe/pkg/scene"
	"github.com/matzehuels/chromascribe/pkg/stroke"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeGesture reports whatever sample the test sets, even after Disable,
// to model detection results still queued when the source is turned off.
type fakeGesture struct {
	mu        sync.Mutex
	sample    feature.Sample
	has       bool
	enabled   bool
	err       error
	disabled  int
	latestHit int
}

func (f *fakeGesture) Enable(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.enabled = true
	return nil
}

func (f *fakeGesture) Disable() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = false
	f.disabled++
}

func (f *fakeGesture) Latest() (feature.Sample, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latestHit++
	return f.sample, f.has
}

func (f *fakeGesture) set(x, y float64, open bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := geom.V(x, y, 0)
	f.sample = feature.Sample{Point: &p, HandOpen: open}
	f.has = true
}

func (f *fakeGesture) lose() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sample = feature.Sample{}
}

type fakeAudio struct {
	level feature.AudioFeatures
	err   error
	on    bool
}

func (f *fakeAudio) Enable(context.Context) error {
	if f.err != nil {
		return f.err
	}
	f.on = true
	return nil
}
func (f *fakeAudio) Disable()                      { f.on = false }
func (f *fakeAudio) Latest() feature.AudioFeatures { return f.level }

func newSession(t *testing.T, g GestureFeed, a AudioFeed, opts ...Option) *Controller {
	t.Helper()
	c, err := scene.New(scene.WithSize(64, 48))
	require.NoError(t, err)
	return New(c, g, a, DefaultConfig(), opts...)
}

var t0 = time.Unix(500, 0)

func frameAt(i int) time.Time { return t0.Add(time.Duration(i) * 16 * time.Millisecond) }

func TestStateMachine(t *testing.T) {
	ctx := context.Background()
	g := &fakeGesture{}
	s := newSession(t, g, nil)

	require.Equal(t, Idle, s.Frame(ctx, frameAt(0)).State)

	require.NoError(t, s.EnableGesture(ctx))
	require.Equal(t, Tracking, s.Frame(ctx, frameAt(1)).State, "no hand yet")

	g.set(0.4, 0.5, true)
	require.Equal(t, Drawing, s.Frame(ctx, frameAt(2)).State)

	g.set(0.4, 0.5, false)
	require.Equal(t, Tracking, s.Frame(ctx, frameAt(3)).State, "fist stops drawing")

	g.lose()
	require.Equal(t, Tracking, s.Frame(ctx, frameAt(4)).State, "hand lost")

	s.DisableGesture()
	require.Equal(t, Idle, s.Status().State)
	require.Equal(t, Idle, s.Frame(ctx, frameAt(5)).State)
}

func TestDisableMidDrawingStopsGeometry(t *testing.T) {
	ctx := context.Background()
	g := &fakeGesture{}
	s := newSession(t, g, nil)
	s.SetBrush(stroke.String)
	require.NoError(t, s.EnableGesture(ctx))

	for i := range 10 {
		g.set(0.1+float64(i)*0.05, 0.5, true)
		s.Frame(ctx, frameAt(i))
	}
	require.Equal(t, Drawing, s.Status().State)
	before := s.Status().Canvas
	require.Positive(t, before.Permanent())

	s.DisableGesture()
	require.Equal(t, Idle, s.Status().State)
	require.Equal(t, 1, g.disabled)

	hits := g.latestHit
	for i := 10; i < 20; i++ {
		g.set(0.1+float64(i)*0.05, 0.5, true) // residual results keep arriving
		res := s.Frame(ctx, frameAt(i))
		require.Equal(t, Idle, res.State)
		require.False(t, res.Drawing)
	}
	require.Equal(t, hits, g.latestHit, "disabled source must not be polled")
	require.Equal(t, before.Permanent(), s.Status().Canvas.Permanent())
}

func TestEnableFailureRevertsToggle(t *testing.T) {
	ctx := context.Background()

	t.Run("device denied", func(t *testing.T) {
		g := &fakeGesture{err: errs.New(errs.ErrCodeDeviceAccess, "camera busy")}
		s := newSession(t, g, nil)
		err := s.EnableGesture(ctx)
		require.True(t, errs.Is(err, errs.ErrCodeDeviceAccess))
		st := s.Status()
		require.False(t, st.Gesture)
		require.False(t, st.GestureFailed)
		require.Equal(t, Idle, st.State)
	})

	t.Run("model init", func(t *testing.T) {
		g := &fakeGesture{err: errs.New(errs.ErrCodeModelInit, "no model")}
		s := newSession(t, g, nil)
		require.Error(t, s.EnableGesture(ctx))
		require.True(t, s.Status().GestureFailed)
	})

	t.Run("mic denied", func(t *testing.T) {
		a := &fakeAudio{err: errs.New(errs.ErrCodeDeviceAccess, "mic denied")}
		s := newSession(t, nil, a)
		require.Error(t, s.EnableAudio(ctx))
		require.False(t, s.Status().Audio)
	})

	t.Run("no devices", func(t *testing.T) {
		s := newSession(t, nil, nil)
		require.True(t, errs.Is(s.EnableGesture(ctx), errs.ErrCodeDeviceAccess))
		require.True(t, errs.Is(s.EnableAudio(ctx), errs.ErrCodeDeviceAccess))
	})
}

func TestAudioDrivesWidth(t *testing.T) {
	ctx := context.Background()
	g := &fakeGesture{}
	a := &fakeAudio{level: feature.AudioFeatures{Volume: 1}}
	s := newSession(t, g, a)
	require.NoError(t, s.EnableGesture(ctx))
	require.NoError(t, s.EnableAudio(ctx))

	g.set(0.2, 0.5, true)
	s.Frame(ctx, frameAt(0))
	g.set(0.8, 0.5, true)
	s.Frame(ctx, frameAt(1))

	ribbons := s.Canvas().Ribbons()
	require.Len(t, ribbons, 1)
	require.InDelta(t, 0.12*25, ribbons[0].Width, 1e-9)

	s.DisableAudio()
	require.Equal(t, feature.AudioFeatures{}, s.Status().Levels)
}

func TestSegmentsMatchMovingDrawingFrames(t *testing.T) {
	ctx := context.Background()
	g := &fakeGesture{}
	s := newSession(t, g, nil)
	require.NoError(t, s.EnableGesture(ctx))

	xs := []float64{0.5, 0.5, 0.6, 0.6, 0.6, 0.7, 0.3}
	for i, x := range xs {
		g.set(x, 0.5, true)
		s.Frame(ctx, frameAt(i))
	}
	st := s.Status()
	require.Equal(t, st.Segments, st.Canvas.Permanent())
	require.Equal(t, st.Canvas.Ribbons, st.Segments)
	require.Positive(t, st.Segments)
}

func TestClearIsOrthogonalToState(t *testing.T) {
	ctx := context.Background()
	g := &fakeGesture{}
	s := newSession(t, g, nil)
	require.NoError(t, s.EnableGesture(ctx))
	for i := range 5 {
		g.set(0.2+float64(i)*0.1, 0.5, true)
		s.Frame(ctx, frameAt(i))
	}
	require.Equal(t, Drawing, s.Status().State)

	st := s.Clear(ctx)
	require.Equal(t, uint64(1), st.Generation)
	require.Equal(t, Drawing, s.Status().State)
	require.Zero(t, s.Status().Canvas.Permanent())
}

func TestCycleBrushKeepsGeometry(t *testing.T) {
	ctx := context.Background()
	g := &fakeGesture{}
	s := newSession(t, g, nil)
	require.NoError(t, s.EnableGesture(ctx))
	for i := range 4 {
		g.set(0.2+float64(i)*0.1, 0.5, true)
		s.Frame(ctx, frameAt(i))
	}
	ribbons := s.Status().Canvas.Ribbons

	require.Equal(t, stroke.Smoke, s.CycleBrush())
	g.set(0.7, 0.5, true)
	s.Frame(ctx, frameAt(5))
	require.Equal(t, stroke.String, s.CycleBrush())

	st := s.Status().Canvas
	require.Equal(t, ribbons, st.Ribbons)
	require.Equal(t, 3, st.Particles)
}

func TestRunStopsAndReleasesSources(t *testing.T) {
	g := &fakeGesture{}
	a := &fakeAudio{}
	s := newSession(t, g, a)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.EnableGesture(ctx))
	require.NoError(t, s.EnableAudio(ctx))

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	require.Eventually(t, func() bool { return s.Status().Frames > 2 }, time.Second, 5*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	st := s.Status()
	require.False(t, st.Gesture)
	require.False(t, st.Audio)
	require.Equal(t, Idle, st.State)
}

type fakeEvolver struct {
	out    []byte
	err    error
	prompt string
	got    []byte
}

func (f *fakeEvolver) Evolve(_ context.Context, png []byte, prompt string) ([]byte, error) {
	f.got, f.prompt = png, prompt
	return f.out, f.err
}

func solidPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.Set(0, 0, color.RGBA{A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestEvolveSetsBackdrop(t *testing.T) {
	ctx := context.Background()
	ev := &fakeEvolver{out: solidPNG(t)}
	s := newSession(t, nil, nil, WithEvolver(ev))

	before, err := s.Snapshot(ctx)
	require.NoError(t, err)

	_, err = s.Evolve(ctx, "make it a watercolor")
	require.NoError(t, err)
	require.Equal(t, "make it a watercolor", ev.prompt)
	require.Equal(t, before, ev.got, "evolve submits the current frame")

	s.Frame(ctx, frameAt(0))
	after, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.NotEqual(t, before, after)
}

func TestEvolveFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("not configured", func(t *testing.T) {
		s := newSession(t, nil, nil)
		_, err := s.Evolve(ctx, "x")
		require.ErrorIs(t, err, ErrNoEvolver)
	})

	t.Run("empty prompt", func(t *testing.T) {
		s := newSession(t, nil, nil, WithEvolver(&fakeEvolver{}))
		_, err := s.Evolve(ctx, "  ")
		require.True(t, errs.Is(err, errs.ErrCodeInvalidInput))
	})

	t.Run("service error leaves drawing intact", func(t *testing.T) {
		g := &fakeGesture{}
		ev := &fakeEvolver{err: errs.New(errs.ErrCodeExternalService, "status 500")}
		s := newSession(t, g, nil, WithEvolver(ev))
		require.NoError(t, s.EnableGesture(ctx))
		for i := range 3 {
			g.set(0.2+float64(i)*0.1, 0.5, true)
			s.Frame(ctx, frameAt(i))
		}
		n := s.Status().Canvas.Permanent()

		_, err := s.Evolve(ctx, "sunset")
		require.True(t, errs.Is(err, errs.ErrCodeExternalService))
		require.Equal(t, n, s.Status().Canvas.Permanent())
		require.Equal(t, Drawing, s.Status().State)
	})

	t.Run("unreadable image", func(t *testing.T) {
		s := newSession(t, nil, nil, WithEvolver(&fakeEvolver{out: []byte("not a png")}))
		_, err := s.Evolve(ctx, "x")
		require.True(t, errs.Is(err, errs.ErrCodeExternalService))
	})
}

func TestPlaybackDrivesSession(t *testing.T) {
	ctx := context.Background()
	rec := &feature.Recording{}
	for i := range 6 {
		rec.AddHand(time.Duration(i)*33*time.Millisecond, handAt(0.2+float64(i)*0.1), nil)
	}
	pb := feature.NewPlayback(rec)
	s := newSession(t, pb.Gesture(), pb.Audio())
	s.SetBrush(stroke.String)
	require.NoError(t, s.EnableGesture(ctx))

	for i := range pb.Len() {
		pb.Seek(i)
		s.Frame(ctx, frameAt(i))
	}
	st := s.Status().Canvas
	require.Equal(t, 1, st.Polylines)
	require.Equal(t, 5, st.PolylineSegments)
}

// handAt returns 21 landmarks of an open hand with the index tip at x.
func handAt(x float64) []geom.Vec3 {
	pts := make([]geom.Vec3, feature.LandmarkCount)
	for i := range pts {
		pts[i] = geom.V(x, 0.6, 0)
	}
	pts[feature.IndexTip] = geom.V(x, 0.4, 0)
	pts[feature.MiddleTip] = geom.V(x+0.02, 0.4, 0)
	return pts
}
