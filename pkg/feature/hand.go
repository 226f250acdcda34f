package feature

import (
	"fmt"
	"math"
	"time"

	"github.com/matzehuels/chromascribe/pkg/geom"
)

// LandmarkCount is the number of points a 21-point hand model reports.
const LandmarkCount = 21

// Indices of the landmarks consumed from a 21-point hand model.
const (
	Wrist         = 0
	IndexKnuckle  = 5
	IndexTip      = 8
	MiddleKnuckle = 9
	MiddleTip     = 12
)

// Hand holds the five landmarks the session consumes. Everything else the
// tracker reports is dropped at the boundary.
type Hand struct {
	Wrist         geom.Vec3
	IndexKnuckle  geom.Vec3
	IndexTip      geom.Vec3
	MiddleKnuckle geom.Vec3
	MiddleTip     geom.Vec3
}

// HandFromLandmarks picks the consumed landmarks out of a full tracker
// result.
func HandFromLandmarks(pts []geom.Vec3) (*Hand, error) {
	if len(pts) != LandmarkCount {
		return nil, fmt.Errorf("hand: want %d landmarks, got %d", LandmarkCount, len(pts))
	}
	return &Hand{
		Wrist:         pts[Wrist],
		IndexKnuckle:  pts[IndexKnuckle],
		IndexTip:      pts[IndexTip],
		MiddleKnuckle: pts[MiddleKnuckle],
		MiddleTip:     pts[MiddleTip],
	}, nil
}

// Curled reports how many of the index and middle fingers are curled.
// A finger is curled when its tip sits below its knuckle in image space.
func (h *Hand) Curled() int {
	n := 0
	if h.IndexTip.Y > h.IndexKnuckle.Y {
		n++
	}
	if h.MiddleTip.Y > h.MiddleKnuckle.Y {
		n++
	}
	return n
}

// IsFist reports whether the hand is closed. Both tracked fingers must be
// curled.
func (h *Hand) IsFist() bool { return h.Curled() >= 2 }

// Orientation derives the coarse pose hint from the landmarks.
func (h *Hand) Orientation() Orientation {
	d := h.IndexTip.Sub(h.Wrist)
	return Orientation{
		X: math.Atan2(d.Y, math.Hypot(d.X, d.Z)),
		Y: math.Atan2(d.X, d.Z),
		Z: math.Atan2(h.MiddleTip.Y-h.IndexTip.Y, h.MiddleTip.X-h.IndexTip.X),
	}
}

// Sample converts a detection into a gesture sample. A nil hand yields an
// absent sample.
func (h *Hand) Sample(ts time.Duration) Sample {
	if h == nil {
		return Sample{Timestamp: ts}
	}
	tip := h.IndexTip
	return Sample{
		Point:       &tip,
		Timestamp:   ts,
		HandOpen:    !h.IsFist(),
		Orientation: h.Orientation(),
	}
}
