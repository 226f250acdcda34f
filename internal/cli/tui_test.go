package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/chromascribe/pkg/session"
	"github.com/matzehuels/chromascribe/pkg/stroke"
)

func TestHUDModel(t *testing.T) {
	m := newHUDModel(100)

	next, cmd := m.Update(statusMsg(session.Status{State: session.Drawing, Brush: stroke.Smoke, Frames: 50}))
	if cmd != nil {
		t.Error("status update should not return a command")
	}
	m = next.(hudModel)
	view := m.View()
	if !strings.Contains(view, "DRAWING") || !strings.Contains(view, "SMOKE") {
		t.Errorf("view should show state and brush:\n%s", view)
	}

	next, cmd = m.Update(doneMsg{})
	if cmd == nil || !next.(hudModel).done {
		t.Error("done message should finish the HUD")
	}

	next, _ = newHUDModel(1).Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !next.(hudModel).quit {
		t.Error("q should quit")
	}
}

func TestFraction(t *testing.T) {
	if fraction(5, 0) != 0 || fraction(5, 10) != 0.5 || fraction(20, 10) != 1 {
		t.Error("fraction should be clamped to [0, 1]")
	}
}
