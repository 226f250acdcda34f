package feature

import (
	"context"
	"sync"
)

// Playback steps through a recording in lockstep with a frame loop.
//
// Unlike the goroutine-backed sources, Playback only moves when Seek is
// called, so a headless render of a recording is deterministic: frame i of
// the session always sees frame i of the recording. Its gesture and audio
// feeds honor enable and disable like the live sources.
type Playback struct {
	rec *Recording

	mu      sync.Mutex
	index   int
	gesture bool
	audio   bool
}

// NewPlayback returns a playback positioned before the first frame.
func NewPlayback(rec *Recording) *Playback {
	return &Playback{rec: rec, index: -1}
}

// Len is the number of frames in the recording.
func (p *Playback) Len() int { return p.rec.Len() }

// Seek moves to frame i.
func (p *Playback) Seek(i int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.index = i
}

// Gesture returns the gesture feed.
func (p *Playback) Gesture() *PlaybackGesture { return &PlaybackGesture{p: p} }

// Audio returns the audio feed.
func (p *Playback) Audio() *PlaybackAudio { return &PlaybackAudio{p: p} }

// PlaybackGesture is the gesture feed of a Playback.
type PlaybackGesture struct{ p *Playback }

// Enable starts reporting recorded hands.
func (g *PlaybackGesture) Enable(context.Context) error {
	g.p.mu.Lock()
	defer g.p.mu.Unlock()
	g.p.gesture = true
	return nil
}

// Disable stops reporting.
func (g *PlaybackGesture) Disable() {
	g.p.mu.Lock()
	defer g.p.mu.Unlock()
	g.p.gesture = false
}

// Latest returns the sample of the current frame. Malformed frames read as
// absent.
func (g *PlaybackGesture) Latest() (Sample, bool) {
	g.p.mu.Lock()
	defer g.p.mu.Unlock()
	if !g.p.gesture || g.p.index < 0 || g.p.index >= g.p.rec.Len() {
		return Sample{}, false
	}
	ts := g.p.rec.At(g.p.index)
	hand, err := g.p.rec.Hand(g.p.index)
	if err != nil {
		return Sample{Timestamp: ts}, true
	}
	return hand.Sample(ts), true
}

// PlaybackAudio is the audio feed of a Playback.
type PlaybackAudio struct{ p *Playback }

// Enable starts reporting recorded audio.
func (a *PlaybackAudio) Enable(context.Context) error {
	a.p.mu.Lock()
	defer a.p.mu.Unlock()
	a.p.audio = true
	return nil
}

// Disable stops reporting.
func (a *PlaybackAudio) Disable() {
	a.p.mu.Lock()
	defer a.p.mu.Unlock()
	a.p.audio = false
}

// Latest returns the audio features of the current frame, or zero.
func (a *PlaybackAudio) Latest() AudioFeatures {
	a.p.mu.Lock()
	defer a.p.mu.Unlock()
	if !a.p.audio {
		return AudioFeatures{}
	}
	f, _ := a.p.rec.Audio(a.p.index)
	return f
}
