// Package observability provides event hooks for metrics and debug logging.
//
// Libraries never depend on a particular observability backend. They call the
// registered hooks at interesting points (a frame finished, the canvas was
// cleared, the evolve service answered) and the binary decides what to do
// with the events. The defaults are no-ops.
//
// # Usage
//
// Register hooks at application startup:
//
//	observability.SetFrameHooks(&myFrameHooks{})
//
// or route every event to a logger at debug level:
//
//	observability.UseLogger(logger)
//
// Libraries call hooks to emit events:
//
//	start := time.Now()
//	// ... sample, filter, synthesize, render ...
//	observability.Frame().OnFrame(ctx, state, time.Since(start))
package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// =============================================================================
// Frame Hooks
// =============================================================================

// FrameHooks receives events from the session frame loop.
type FrameHooks interface {
	// OnFrame records one completed frame and the controller state it ended in.
	OnFrame(ctx context.Context, state string, duration time.Duration)

	// OnSegment records one stroke segment committed to the canvas.
	OnSegment(ctx context.Context, kind string)
}

// =============================================================================
// Canvas Hooks
// =============================================================================

// CanvasHooks receives events from the scene canvas.
type CanvasHooks interface {
	// OnClear records a clear and how many resources it released.
	OnClear(ctx context.Context, generation uint64, disposed, failures int)

	// OnSnapshot records a snapshot capture.
	OnSnapshot(ctx context.Context, bytes int, duration time.Duration, err error)

	// OnExpire records transient primitives removed by the scheduler.
	OnExpire(ctx context.Context, removed int)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from the evolve response cache.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopFrameHooks is a no-op implementation of FrameHooks.
type NoopFrameHooks struct{}

func (NoopFrameHooks) OnFrame(context.Context, string, time.Duration) {}
func (NoopFrameHooks) OnSegment(context.Context, string)              {}

// NoopCanvasHooks is a no-op implementation of CanvasHooks.
type NoopCanvasHooks struct{}

func (NoopCanvasHooks) OnClear(context.Context, uint64, int, int)             {}
func (NoopCanvasHooks) OnSnapshot(context.Context, int, time.Duration, error) {}
func (NoopCanvasHooks) OnExpire(context.Context, int)                         {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Registry
// =============================================================================

// slot holds one registered hook set. The zero slot reports def.
type slot[T any] struct {
	p   atomic.Pointer[T]
	def T
}

func (s *slot[T]) get() T {
	if p := s.p.Load(); p != nil {
		return *p
	}
	return s.def
}

func (s *slot[T]) set(h T) { s.p.Store(&h) }

var (
	frameHooks  = slot[FrameHooks]{def: NoopFrameHooks{}}
	canvasHooks = slot[CanvasHooks]{def: NoopCanvasHooks{}}
	cacheHooks  = slot[CacheHooks]{def: NoopCacheHooks{}}
	httpHooks   = slot[HTTPHooks]{def: NoopHTTPHooks{}}
)

// SetFrameHooks registers frame hooks. A nil h is ignored.
func SetFrameHooks(h FrameHooks) {
	if h != nil {
		frameHooks.set(h)
	}
}

// SetCanvasHooks registers canvas hooks. A nil h is ignored.
func SetCanvasHooks(h CanvasHooks) {
	if h != nil {
		canvasHooks.set(h)
	}
}

// SetCacheHooks registers cache hooks. A nil h is ignored.
func SetCacheHooks(h CacheHooks) {
	if h != nil {
		cacheHooks.set(h)
	}
}

// SetHTTPHooks registers HTTP hooks. A nil h is ignored.
func SetHTTPHooks(h HTTPHooks) {
	if h != nil {
		httpHooks.set(h)
	}
}

func Frame() FrameHooks   { return frameHooks.get() }
func Canvas() CanvasHooks { return canvasHooks.get() }
func Cache() CacheHooks   { return cacheHooks.get() }
func HTTP() HTTPHooks     { return httpHooks.get() }

// Reset restores the no-op hooks.
func Reset() {
	frameHooks.p.Store(nil)
	canvasHooks.p.Store(nil)
	cacheHooks.p.Store(nil)
	httpHooks.p.Store(nil)
}
