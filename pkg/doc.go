// Package pkg provides the core libraries for Chroma Scribe gesture painting.
//
// # Overview
//
// Chroma Scribe turns a tracked hand into a 3D brush. Hand position steers the
// stroke, an open hand draws and a fist lifts the brush, while microphone
// volume and pitch set stroke size and color. The pkg directory is organized
// into three areas:
//
//  1. Pipeline - [feature], [trajectory], [stroke], [scene], tied together by [session]
//  2. Evolve - [evolve] and its wire helpers in [httputil]
//  3. Infrastructure - [config], [cache], [errors], [observability], [buildinfo]
//
// # Architecture
//
// One frame flows through the packages like this:
//
//	camera + hand tracker        microphone
//	         ↓                       ↓
//	  [feature] Sample        [feature] AudioFeatures
//	         ↓                       │
//	[trajectory] anchor + drawing    │
//	         ↓                       ↓
//	      [stroke] segment, color and size
//	                   ↓
//	     [scene] canvas (ribbons, strips, particles)
//	                   ↓
//	        PNG snapshot → [evolve]
//
// # Quick Start
//
// Replay a recording headlessly and write the final frame:
//
//	rec, _ := feature.LoadRecording("session.jsonl")
//	pb := feature.NewPlayback(rec)
//
//	canvas, _ := scene.New(scene.WithSize(800, 600))
//	ctrl := session.New(canvas, pb.Gesture(), pb.Audio(), session.DefaultConfig())
//	defer ctrl.Close()
//	_ = ctrl.EnableGesture(ctx)
//	_ = ctrl.EnableAudio(ctx)
//
//	base := time.Now()
//	for i := 0; i < pb.Len(); i++ {
//	    pb.Seek(i)
//	    ctrl.Frame(ctx, base.Add(rec.At(i)))
//	}
//	png, _ := ctrl.Snapshot(ctx)
//
// # Main Packages
//
// [feature] - Gesture and audio sources. Camera frames run through a hand
// tracker on a background goroutine; microphone blocks run through the
// spectrum [feature.Analyzer]. Both publish only their latest value.
//
// [trajectory] - Smooths the raw fingertip into a stable anchor and decides
// whether the brush is down.
//
// [stroke] - The three brushes (ink, smoke, string) and the synthesizer that
// turns anchor motion into geometry.
//
// [scene] - The canvas: retained geometry, a software renderer, delayed
// particle removal and PNG snapshots.
//
// [session] - The frame loop, source toggles, brush switching, clearing,
// snapshots and evolve.
//
// [evolve] - Client and proxy for the image generation endpoint, with Gemini
// and plain HTTP backends behind a response cache.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...              # All tests
//	go test ./pkg/stroke/...       # Specific package
//	go test -run Example ./pkg/... # Examples only
//
// [feature]: https://pkg.go.dev/github.com/matzehuels/chromascribe/pkg/feature
// [trajectory]: https://pkg.go.dev/github.com/matzehuels/chromascribe/pkg/trajectory
// [stroke]: https://pkg.go.dev/github.com/matzehuels/chromascribe/pkg/stroke
// [scene]: https://pkg.go.dev/github.com/matzehuels/chromascribe/pkg/scene
// [session]: https://pkg.go.dev/github.com/matzehuels/chromascribe/pkg/session
// [evolve]: https://pkg.go.dev/github.com/matzehuels/chromascribe/pkg/evolve
// [httputil]: https://pkg.go.dev/github.com/matzehuels/chromascribe/pkg/httputil
// [config]: https://pkg.go.dev/github.com/matzehuels/chromascribe/pkg/config
// [cache]: https://pkg.go.dev/github.com/matzehuels/chromascribe/pkg/cache
// [errors]: https://pkg.go.dev/github.com/matzehuels/chromascribe/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/chromascribe/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/chromascribe/pkg/buildinfo
// [feature.Analyzer]: https://pkg.go.dev/github.com/matzehuels/chromascribe/pkg/feature#Analyzer
package pkg
