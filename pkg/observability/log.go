package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// SlowFrame is the frame duration above which LogHooks reports a frame.
const SlowFrame = 50 * time.Millisecond

// LogHooks writes events to a logger at debug level. Frames are reported
// only when slower than SlowFrame.
type LogHooks struct {
	L *log.Logger
}

// UseLogger registers LogHooks for every hook set.
func UseLogger(l *log.Logger) {
	h := LogHooks{L: l.WithPrefix("events")}
	SetFrameHooks(h)
	SetCanvasHooks(h)
	SetCacheHooks(h)
	SetHTTPHooks(h)
}

func (h LogHooks) OnFrame(_ context.Context, state string, d time.Duration) {
	if d > SlowFrame {
		h.L.Debug("slow frame", "state", state, "took", d.Round(time.Millisecond))
	}
}

func (h LogHooks) OnSegment(context.Context, string) {}

func (h LogHooks) OnClear(_ context.Context, generation uint64, disposed, failures int) {
	h.L.Debug("canvas cleared", "generation", generation, "disposed", disposed, "failures", failures)
}

func (h LogHooks) OnSnapshot(_ context.Context, bytes int, d time.Duration, err error) {
	if err != nil {
		h.L.Debug("snapshot failed", "err", err)
		return
	}
	h.L.Debug("snapshot", "bytes", bytes, "took", d.Round(time.Millisecond))
}

func (h LogHooks) OnExpire(_ context.Context, removed int) {
	h.L.Debug("particles expired", "n", removed)
}

func (h LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.L.Debug("cache hit", "key", keyType)
}

func (h LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.L.Debug("cache miss", "key", keyType)
}

func (h LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.L.Debug("cache set", "key", keyType, "bytes", size)
}

func (h LogHooks) OnRequest(_ context.Context, method, host, path string) {
	h.L.Debug("http request", "method", method, "host", host, "path", path)
}

func (h LogHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.L.Debug("http response", "method", method, "host", host, "path", path, "status", status, "took", d.Round(time.Millisecond))
}

func (h LogHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.L.Debug("http error", "method", method, "host", host, "path", path, "err", err)
}
