// Package viewer shows a live session in a desktop window.
//
// The window runs the session one frame per tick, blits the canvas and maps
// the keyboard onto the session controls:
//
//	B  cycle brush     C  clear           S  save snapshot
//	M  toggle audio    G  toggle gesture  E  evolve with the prompt
//	Esc quit
//
// With a pointer feed the mouse stands in for the hand: move to steer, hold
// the left button to draw, scroll to change depth.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/matzehuels/chromascribe/pkg/buildinfo"
	errs "github.com/matzehuels/chromascribe/pkg/errors"
	"github.com/matzehuels/chromascribe/pkg/feature"
	"github.com/matzehuels/chromascribe/pkg/scene"
	"github.com/matzehuels/chromascribe/pkg/session"
)

// Options configures the window.
type Options struct {
	Title  string
	Prompt string                 // used by the E key, evolve is disabled when empty
	Store  *session.SnapshotStore // used by the S key, saving is disabled when nil
	// Pointer, when set, is fed from the mouse every tick.
	Pointer *feature.PointerTracker
	FPS     int
	Logger  *log.Logger
}

// game implements ebiten.Game over a session.
type game struct {
	ctx    context.Context
	ctrl   *session.Controller
	canvas *scene.Canvas
	opts   Options
	logger *log.Logger

	img  *ebiten.Image
	pix  []byte
	w, h int

	mu       sync.Mutex
	notice   string
	evolving bool
}

// Run opens the window and blocks until it is closed or ctx is done.
func Run(ctx context.Context, ctrl *session.Controller, opts Options) error {
	if opts.FPS <= 0 {
		opts.FPS = 60
	}
	if opts.Title == "" {
		opts.Title = "Chroma Scribe (" + buildinfo.Short() + ")"
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	g := &game{
		ctx:    ctx,
		ctrl:   ctrl,
		canvas: ctrl.Canvas(),
		opts:   opts,
		logger: opts.Logger.WithPrefix("viewer"),
	}

	w, h := g.canvas.Size()
	ebiten.SetWindowTitle(opts.Title)
	ebiten.SetWindowSize(w, h)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(opts.FPS)

	err := ebiten.RunGame(g)
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

func (g *game) Update() error {
	if g.ctx.Err() != nil {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	if p := g.opts.Pointer; p != nil {
		x, y := ebiten.CursorPosition()
		p.Move(x, y, g.w, g.h, ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft))
		if _, dy := ebiten.Wheel(); dy != 0 {
			p.Scroll(dy)
		}
	}
	g.handleKeys()

	g.ctrl.Frame(g.ctx, time.Now())
	return nil
}

func (g *game) handleKeys() {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyB):
		g.setNotice("brush: " + g.ctrl.CycleBrush().String())
	case inpututil.IsKeyJustPressed(ebiten.KeyC):
		st := g.ctrl.Clear(g.ctx)
		g.setNotice(fmt.Sprintf("cleared %d primitives", st.Disposed))
	case inpututil.IsKeyJustPressed(ebiten.KeyM):
		if err := g.ctrl.ToggleAudio(g.ctx); err != nil {
			g.setNotice("audio: " + errs.UserMessage(err))
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyG):
		if err := g.ctrl.ToggleGesture(g.ctx); err != nil {
			g.setNotice("gesture: " + errs.UserMessage(err))
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyS):
		g.save()
	case inpututil.IsKeyJustPressed(ebiten.KeyE):
		g.evolve()
	}
}

func (g *game) save() {
	if g.opts.Store == nil {
		g.setNotice("no snapshot directory")
		return
	}
	path, err := g.ctrl.SaveSnapshot(g.ctx, g.opts.Store)
	if err != nil {
		g.logger.Warn("save failed", "err", err)
		g.setNotice("save failed: " + errs.UserMessage(err))
		return
	}
	g.logger.Info("snapshot saved", "path", path)
	g.setNotice("saved " + path)
}

// evolve runs in the background so the window keeps drawing.
func (g *game) evolve() {
	if strings.TrimSpace(g.opts.Prompt) == "" {
		g.setNotice("no evolve prompt, start with --prompt")
		return
	}
	g.mu.Lock()
	if g.evolving {
		g.mu.Unlock()
		return
	}
	g.evolving = true
	g.notice = "evolving..."
	g.mu.Unlock()

	go func() {
		_, err := g.ctrl.Evolve(g.ctx, g.opts.Prompt)
		g.mu.Lock()
		defer g.mu.Unlock()
		g.evolving = false
		if err != nil {
			g.logger.Warn("evolve failed", "err", err)
			g.notice = "evolve failed: " + errs.UserMessage(err)
			return
		}
		g.notice = "evolved: " + g.opts.Prompt
	}()
}

func (g *game) setNotice(s string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.notice = s
}

func (g *game) Draw(screen *ebiten.Image) {
	w, h := g.canvas.Size()
	if g.img == nil || g.img.Bounds().Dx() != w || g.img.Bounds().Dy() != h {
		if g.img != nil {
			g.img.Deallocate()
		}
		g.img = ebiten.NewImage(w, h)
		g.pix = make([]byte, w*h*4)
	}
	if g.canvas.CopyPixels(g.pix) {
		g.img.WritePixels(g.pix)
	}
	screen.DrawImage(g.img, nil)

	st := g.ctrl.Status()
	g.mu.Lock()
	notice := g.notice
	g.mu.Unlock()
	ebitenutil.DebugPrint(screen, fmt.Sprintf("%s  %s  vol %.2f  pitch %.2f  %.0f fps\n%s",
		st.State, strings.ToUpper(st.Brush.String()), st.Levels.Volume, st.Levels.Pitch, ebiten.ActualFPS(), notice))
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth != g.w || outsideHeight != g.h {
		if err := g.canvas.Resize(outsideWidth, outsideHeight); err != nil {
			g.logger.Debug("resize ignored", "err", err)
		} else {
			g.w, g.h = outsideWidth, outsideHeight
		}
	}
	return outsideWidth, outsideHeight
}
