package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/chromascribe/pkg/session"
)

// HUD styles
var (
	hudLabelStyle = lipgloss.NewStyle().Foreground(colorGray).Width(8)
	hudDimStyle   = lipgloss.NewStyle().Foreground(colorDim)
)

// stateStyles colors the session state like the original status badge.
var stateStyles = map[session.State]lipgloss.Style{
	session.Idle:     lipgloss.NewStyle().Foreground(colorDim).Bold(true),
	session.Tracking: lipgloss.NewStyle().Foreground(colorYellow).Bold(true),
	session.Drawing:  lipgloss.NewStyle().Foreground(colorGreen).Bold(true),
}

// =============================================================================
// Messages
// =============================================================================

// statusMsg carries a session status snapshot into the HUD.
type statusMsg session.Status

// doneMsg ends the HUD when the work finishes.
type doneMsg struct{ err error }

// =============================================================================
// hudModel - live session display
// =============================================================================

// hudModel is the bubbletea model for the draw --tui status display.
type hudModel struct {
	total  int
	status session.Status
	volume progress.Model
	pitch  progress.Model
	frames progress.Model
	err    error
	done   bool
	quit   bool
}

// newHUDModel creates a HUD for a run of total frames.
func newHUDModel(total int) hudModel {
	bar := func(from, to string) progress.Model {
		return progress.New(progress.WithGradient(from, to), progress.WithWidth(30), progress.WithoutPercentage())
	}
	return hudModel{
		total:  total,
		volume: bar("#598280", "#C7A250"),
		pitch:  bar("#C7A250", "#B86A4C"),
		frames: progress.New(progress.WithSolidFill("36"), progress.WithWidth(30)),
	}
}

func (m hudModel) Init() tea.Cmd {
	return nil
}

func (m hudModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quit = true
			return m, tea.Quit
		}
	case statusMsg:
		m.status = session.Status(msg)
	case doneMsg:
		m.done, m.err = true, msg.err
		return m, tea.Quit
	case tea.WindowSizeMsg:
		w := min(max(msg.Width-12, 10), 40)
		m.volume.Width, m.pitch.Width, m.frames.Width = w, w, w
	}
	return m, nil
}

func (m hudModel) View() string {
	var b strings.Builder
	st := m.status

	b.WriteString(StyleTitle.Render("Chroma Scribe"))
	b.WriteString("  ")
	b.WriteString(stateStyles[st.State].Render(st.State.String()))
	b.WriteString("  ")
	b.WriteString(brushStyle(st.Brush).Render(strings.ToUpper(st.Brush.String())))
	b.WriteString("\n\n")

	b.WriteString(hudLabelStyle.Render("volume") + m.volume.ViewAs(st.Levels.Volume) + "\n")
	b.WriteString(hudLabelStyle.Render("pitch") + m.pitch.ViewAs(st.Levels.Pitch) + "\n")
	b.WriteString(hudLabelStyle.Render("frames") + m.frames.ViewAs(fraction(st.Frames, m.total)) + "\n\n")

	cv := st.Canvas
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Ribbons", "Strips", "Particles", "Clears", "Anchor").
		Row(
			fmt.Sprint(cv.Ribbons),
			fmt.Sprintf("%d/%d", cv.Polylines, cv.PolylineSegments),
			fmt.Sprint(cv.Particles),
			fmt.Sprint(cv.Generation),
			fmt.Sprintf("%.2f %.2f %.2f", st.Anchor.X, st.Anchor.Y, st.Anchor.Z),
		).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return lipgloss.NewStyle().Foreground(colorGray).Bold(true).Padding(0, 1)
			}
			return lipgloss.NewStyle().Foreground(colorWhite).Padding(0, 1)
		})
	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(hudDimStyle.Render(fmt.Sprintf("  %s elapsed · q quit", st.Uptime.Round(time.Second))))
	b.WriteString("\n")
	return b.String()
}

func fraction(n, total int) float64 {
	if total <= 0 {
		return 0
	}
	return min(1, float64(n)/float64(total))
}
