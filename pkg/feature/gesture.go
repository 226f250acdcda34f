package feature

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/chromascribe/pkg/errors"
)

// Tracker finds a hand in a camera frame. It returns a nil hand, not an
// error, when the frame simply contains no hand. Timestamps passed to Detect
// are strictly increasing for the lifetime of a tracker.
type Tracker interface {
	Detect(frame Frame, ts time.Duration) (*Hand, error)
	Close() error
}

// TrackerFactory loads a tracker model. It is called on every enable.
type TrackerFactory func(ctx context.Context) (Tracker, error)

// Camera opens a video device.
type Camera interface {
	Open(ctx context.Context) (FrameReader, error)
}

// FrameReader yields frames until the stream ends with io.EOF.
type FrameReader interface {
	ReadFrame(ctx context.Context) (Frame, error)
	Close() error
}

const readBackoff = 10 * time.Millisecond

// GestureSource runs hand detection on a camera stream.
type GestureSource struct {
	camera     Camera
	newTracker TrackerFactory
	logger     *log.Logger
	now        func() time.Time

	mu      sync.Mutex
	enabled bool
	failed  error
	cancel  context.CancelFunc
	done    chan struct{}
	reader  FrameReader
	tracker Tracker

	latest slot[Sample]
}

// GestureOption configures a GestureSource.
type GestureOption func(*GestureSource)

// WithGestureLogger sets the logger. Detection failures are logged at debug
// level only.
func WithGestureLogger(l *log.Logger) GestureOption {
	return func(s *GestureSource) { s.logger = l }
}

// WithGestureClock replaces time.Now, for tests.
func WithGestureClock(now func() time.Time) GestureOption {
	return func(s *GestureSource) { s.now = now }
}

// NewGestureSource returns a disabled source.
func NewGestureSource(camera Camera, newTracker TrackerFactory, opts ...GestureOption) *GestureSource {
	s := &GestureSource{
		camera:     camera,
		newTracker: newTracker,
		logger:     log.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithPrefix("gesture")
	return s
}

// Enable opens the camera, loads the tracker and starts detection.
//
// A camera failure returns DEVICE_ACCESS and leaves the source disabled; the
// caller may try again. A tracker failure returns MODEL_INIT and disables
// the source for good: later calls fail with ErrSourceDisabled.
func (s *GestureSource) Enable(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failed != nil {
		return errs.Wrap(errs.ErrCodeModelInit, ErrSourceDisabled, "hand tracking unavailable: %v", s.failed)
	}
	if s.enabled {
		return nil
	}

	reader, err := s.camera.Open(ctx)
	if err != nil {
		return errs.Wrap(errs.ErrCodeDeviceAccess, err, "camera unavailable")
	}
	tracker, err := s.newTracker(ctx)
	if err != nil {
		if cerr := reader.Close(); cerr != nil {
			s.logger.Warn("close camera", "err", cerr)
		}
		s.failed = err
		return errs.Wrap(errs.ErrCodeModelInit, err, "hand tracker failed to load")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.reader, s.tracker = reader, tracker
	s.cancel = cancel
	s.done = make(chan struct{})
	s.enabled = true

	run := s.latest.begin()
	go s.loop(runCtx, run, reader, tracker, s.done)

	s.logger.Debug("enabled")
	return nil
}

// Disable stops detection and releases the camera and tracker. It returns
// after the detection goroutine has exited.
func (s *GestureSource) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled {
		return
	}
	s.enabled = false
	s.latest.end()
	s.cancel()
	<-s.done

	if err := s.tracker.Close(); err != nil {
		s.logger.Warn("release tracker", "err", errs.Wrap(errs.ErrCodeDisposal, err, "tracker"))
	}
	if err := s.reader.Close(); err != nil {
		s.logger.Warn("release camera", "err", errs.Wrap(errs.ErrCodeDisposal, err, "camera"))
	}
	s.reader, s.tracker, s.cancel, s.done = nil, nil, nil, nil
	s.logger.Debug("disabled")
}

// Enabled reports whether detection is running.
func (s *GestureSource) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Failed reports whether the tracker failed to load.
func (s *GestureSource) Failed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed != nil
}

// Latest returns the most recent sample of the current run. The boolean is
// false when the source is disabled or nothing has been detected yet.
func (s *GestureSource) Latest() (Sample, bool) {
	return s.latest.get()
}

func (s *GestureSource) loop(ctx context.Context, run uint64, reader FrameReader, tracker Tracker, done chan struct{}) {
	defer close(done)

	start := s.now()
	last := time.Duration(-1)

	for {
		frame, err := reader.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				s.latest.post(run, Sample{Timestamp: last})
				s.logger.Debug("camera stream ended")
				return
			}
			s.logger.Debug("frame read failed", "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(readBackoff):
			}
			continue
		}

		ts := s.now().Sub(start)
		if ts <= last {
			ts = last + time.Microsecond
		}
		last = ts

		hand, err := tracker.Detect(frame, ts)
		if err != nil {
			s.logger.Debug("detection failed", "frame", frame.Index, "err", errs.Wrap(errs.ErrCodeDetection, err, "frame %d", frame.Index))
			continue
		}
		s.latest.post(run, hand.Sample(ts))
	}
}
