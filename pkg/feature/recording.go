package feature

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/matzehuels/chromascribe/pkg/geom"
)

// DefaultRecordingFPS is used for frames that carry no timestamp.
const DefaultRecordingFPS = 30

// RecordedFrame is one line of a recording.
//
//	{"t": 0.033, "landmarks": [[0.5, 0.4, -0.02], ...], "volume": 0.2, "pitch": 0.4}
//
// Landmarks is null or absent when no hand was visible. Volume and Pitch are
// optional; a recording without them has no audio track.
type RecordedFrame struct {
	T         *float64     `json:"t,omitempty"`
	Landmarks [][3]float64 `json:"landmarks"`
	Volume    *float64     `json:"volume,omitempty"`
	Pitch     *float64     `json:"pitch,omitempty"`
}

// Recording is a captured gesture (and optionally audio) session stored as
// JSON Lines.
type Recording struct {
	Frames []RecordedFrame
	FPS    float64
}

// LoadRecording reads a JSON Lines recording from disk.
func LoadRecording(path string) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rec, err := ReadRecording(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}

// ReadRecording parses JSON Lines. Blank lines and lines starting with '#'
// are skipped.
func ReadRecording(r io.Reader) (*Recording, error) {
	rec := &Recording{FPS: DefaultRecordingFPS}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 || b[0] == '#' {
			continue
		}
		var f RecordedFrame
		if err := json.Unmarshal(b, &f); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if f.Landmarks != nil && len(f.Landmarks) != LandmarkCount {
			return nil, fmt.Errorf("line %d: want %d landmarks, got %d", line, LandmarkCount, len(f.Landmarks))
		}
		rec.Frames = append(rec.Frames, f)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return rec, nil
}

// WriteTo encodes the recording as JSON Lines.
func (r *Recording) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	enc := json.NewEncoder(cw)
	for _, f := range r.Frames {
		if err := enc.Encode(f); err != nil {
			return cw.n, err
		}
	}
	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Len is the number of frames.
func (r *Recording) Len() int { return len(r.Frames) }

// At returns the offset of frame i from the start of the recording.
func (r *Recording) At(i int) time.Duration {
	if i >= 0 && i < len(r.Frames) && r.Frames[i].T != nil {
		return time.Duration(*r.Frames[i].T * float64(time.Second))
	}
	fps := r.FPS
	if fps <= 0 {
		fps = DefaultRecordingFPS
	}
	return time.Duration(float64(i) / fps * float64(time.Second))
}

// Hand returns the recorded hand of frame i, or nil when none was visible.
func (r *Recording) Hand(i int) (*Hand, error) {
	if i < 0 || i >= len(r.Frames) {
		return nil, fmt.Errorf("frame %d out of range [0, %d)", i, len(r.Frames))
	}
	lm := r.Frames[i].Landmarks
	if lm == nil {
		return nil, nil
	}
	pts := make([]geom.Vec3, len(lm))
	for j, p := range lm {
		pts[j] = geom.V(p[0], p[1], p[2])
	}
	return HandFromLandmarks(pts)
}

// Audio returns the recorded audio features of frame i.
func (r *Recording) Audio(i int) (AudioFeatures, bool) {
	if i < 0 || i >= len(r.Frames) {
		return AudioFeatures{}, false
	}
	f := r.Frames[i]
	if f.Volume == nil && f.Pitch == nil {
		return AudioFeatures{}, false
	}
	var a AudioFeatures
	if f.Volume != nil {
		a.Volume = geom.Clamp(*f.Volume, 0, 1)
	}
	if f.Pitch != nil {
		a.Pitch = geom.Clamp(*f.Pitch, 0, 1)
	}
	return a, true
}

// HasAudio reports whether any frame carries audio features.
func (r *Recording) HasAudio() bool {
	for i := range r.Frames {
		if _, ok := r.Audio(i); ok {
			return true
		}
	}
	return false
}

// AddHand appends a frame holding hand landmarks (nil for no hand).
func (r *Recording) AddHand(t time.Duration, landmarks []geom.Vec3, audio *AudioFeatures) {
	sec := t.Seconds()
	f := RecordedFrame{T: &sec}
	if landmarks != nil {
		f.Landmarks = make([][3]float64, len(landmarks))
		for i, p := range landmarks {
			f.Landmarks[i] = [3]float64{p.X, p.Y, p.Z}
		}
	}
	if audio != nil {
		v, p := audio.Volume, audio.Pitch
		f.Volume, f.Pitch = &v, &p
	}
	r.Frames = append(r.Frames, f)
}

// pacer sleeps until recorded offsets when realtime is set.
type pacer struct {
	realtime bool
	start    time.Time
}

func newPacer(realtime bool) pacer { return pacer{realtime: realtime, start: time.Now()} }

func (p pacer) wait(ctx context.Context, at time.Duration) error {
	if !p.realtime {
		return ctx.Err()
	}
	d := time.Until(p.start.Add(at))
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ReplayCamera yields one frame per recorded frame.
type ReplayCamera struct {
	Rec      *Recording
	Realtime bool
}

// Open implements Camera.
func (c *ReplayCamera) Open(context.Context) (FrameReader, error) {
	return &replayFrames{rec: c.Rec, pace: newPacer(c.Realtime)}, nil
}

type replayFrames struct {
	rec  *Recording
	pace pacer
	next int
}

func (r *replayFrames) ReadFrame(ctx context.Context) (Frame, error) {
	if r.next >= r.rec.Len() {
		return Frame{}, io.EOF
	}
	if err := r.pace.wait(ctx, r.rec.At(r.next)); err != nil {
		return Frame{}, err
	}
	f := Frame{Index: r.next}
	r.next++
	return f, nil
}

func (r *replayFrames) Close() error { return nil }

// ReplayTracker answers detections from a recording, keyed by frame index.
type ReplayTracker struct {
	Rec *Recording
}

// Factory returns a TrackerFactory yielding this tracker.
func (t *ReplayTracker) Factory() TrackerFactory {
	return func(context.Context) (Tracker, error) { return t, nil }
}

// Detect implements Tracker.
func (t *ReplayTracker) Detect(frame Frame, _ time.Duration) (*Hand, error) {
	return t.Rec.Hand(frame.Index)
}

// Close implements Tracker.
func (t *ReplayTracker) Close() error { return nil }

// ReplayAudio yields the recorded audio features frame by frame.
type ReplayAudio struct {
	Rec      *Recording
	Realtime bool
}

// Open implements AudioInput.
func (a *ReplayAudio) Open(context.Context) (AudioStream, error) {
	return &replayAudio{rec: a.Rec, pace: newPacer(a.Realtime)}, nil
}

type replayAudio struct {
	rec  *Recording
	pace pacer
	next int
}

func (r *replayAudio) Next(ctx context.Context) (AudioFeatures, error) {
	if r.next >= r.rec.Len() {
		return AudioFeatures{}, io.EOF
	}
	if err := r.pace.wait(ctx, r.rec.At(r.next)); err != nil {
		return AudioFeatures{}, err
	}
	f, _ := r.rec.Audio(r.next)
	r.next++
	return f, nil
}

func (r *replayAudio) Close() error { return nil }
