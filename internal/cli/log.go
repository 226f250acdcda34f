// Package cli implements the chromascribe command-line interface.
//
// The commands drive a drawing session headlessly from a recording, open a
// live window, run the evolve proxy, and call it. The CLI is built using
// cobra and supports verbose logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - draw: Render a recorded gesture session to PNG
//   - view: Open a live window driven by the mouse or a recording
//   - serve: Run the evolve proxy in front of an image model
//   - evolve: Send a snapshot and a prompt to the evolve endpoint
//   - snapshots: List saved snapshots
//   - cache: Manage the evolve response cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context; library packages derive prefixed loggers
// from it.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger returns the CLI logger. Timestamps read like "14:32:01.45".
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress times one operation for the completion log line.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time, e.g. "Evolved (2.315s)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, p.elapsed())
}

// doneFrames logs msg with the elapsed time and the frame rate achieved,
// e.g. "Rendered 240 frames (1.2s, 200 fps)".
func (p *progress) doneFrames(msg string, frames int) {
	d := p.elapsed()
	if d <= 0 {
		p.done(msg)
		return
	}
	p.logger.Infof("%s (%s, %.0f fps)", msg, d, float64(frames)/d.Seconds())
}

func (p *progress) elapsed() time.Duration {
	return time.Since(p.start).Round(time.Millisecond)
}

type ctxKey struct{}

// withLogger attaches l to ctx.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// loggerFromContext returns the attached logger, or log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
