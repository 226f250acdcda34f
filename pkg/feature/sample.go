// Package feature turns devices into per-frame features.
//
// Two sources feed a drawing session:
//
//   - [GestureSource] reads camera frames, runs a hand [Tracker] on each and
//     publishes the index fingertip as a [Sample].
//   - [AudioSource] reads an [AudioInput] and publishes [AudioFeatures]
//     (loudness and dominant pitch, both normalized to [0, 1]).
//
// Each source runs one goroutine while enabled and keeps only the most recent
// value. Consumers poll with Latest once per frame and never block on a
// device. Disabling a source is synchronous: when Disable returns, the
// goroutine has exited, every device handle is closed and no stale value can
// be observed.
//
// Inputs shipped with the package are JSON Lines recordings ([Recording])
// replayed through [ReplayCamera], [ReplayTracker] and [ReplayAudio]. WAV
// files are read by the wavmic subpackage.
package feature

import (
	"errors"
	"time"

	"github.com/matzehuels/chromascribe/pkg/geom"
)

// ErrSourceDisabled is returned by Enable after the source has been disabled
// for the rest of the session (the tracker model failed to load).
var ErrSourceDisabled = errors.New("source permanently disabled")

// Sample is one gesture observation.
//
// Point is nil when no hand was detected. Coordinates are tracker
// normalized: X and Y in [0, 1] image space with Y pointing down, Z the
// relative depth reported by the tracker (roughly [-1, 1], smaller is closer).
type Sample struct {
	Point       *geom.Vec3
	Timestamp   time.Duration
	HandOpen    bool
	Orientation Orientation
}

// Present reports whether a hand was detected.
func (s Sample) Present() bool { return s.Point != nil }

// Orientation is a coarse hand pose in radians.
// X and Y describe the wrist to index fingertip direction, Z is the roll of
// the index to middle fingertip line.
type Orientation struct {
	X, Y, Z float64
}

// AudioFeatures are the per-frame audio modulation inputs.
type AudioFeatures struct {
	Volume float64 // RMS loudness, [0, 1]
	Pitch  float64 // dominant frequency over the pitch ceiling, [0, 1]
}

// Frame is one camera image. Index is the frame number since the camera was
// opened, which replay trackers use to look up recorded landmarks.
type Frame struct {
	Index int
	Image any
}
