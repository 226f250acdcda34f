package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/chromascribe/pkg/session"
	"github.com/matzehuels/chromascribe/pkg/stroke"
)

// =============================================================================
// Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorBlue   = lipgloss.Color("75")
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

// brushColors are the swatches of the three brushes.
var brushColors = map[stroke.Policy]lipgloss.Color{
	stroke.Ink:    lipgloss.Color("#598280"),
	stroke.Smoke:  lipgloss.Color("#C7A250"),
	stroke.String: lipgloss.Color("#B86A4C"),
}

// =============================================================================
// Styles
// =============================================================================

var (
	// StyleTitle for headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleHighlight for file names and addresses.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleDim for secondary text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	styleValue       = lipgloss.NewStyle().Foreground(colorWhite)
	styleKey         = lipgloss.NewStyle().Foreground(colorGray).Width(12)
	styleCommand     = lipgloss.NewStyle().Foreground(colorBlue)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
)

// badge is a status icon with its color.
type badge struct {
	icon  string
	style lipgloss.Style
	tint  bool // also color the message
}

var (
	badgeSuccess = badge{"✓", lipgloss.NewStyle().Foreground(colorGreen), false}
	badgeError   = badge{"✗", lipgloss.NewStyle().Foreground(colorRed), false}
	badgeWarning = badge{"!", lipgloss.NewStyle().Foreground(colorYellow), true}
	badgeInfo    = badge{"›", lipgloss.NewStyle().Foreground(colorGray), false}
)

// brushStyle renders a brush name in its swatch color.
func brushStyle(p stroke.Policy) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(brushColors[p]).Bold(true)
}

// =============================================================================
// Status Lines
// =============================================================================

func (b badge) print(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if b.tint {
		msg = b.style.Render(msg)
	}
	fmt.Println(b.style.Render(b.icon) + " " + msg)
}

func printSuccess(format string, args ...any) { badgeSuccess.print(format, args...) }
func printError(format string, args ...any)   { badgeError.print(format, args...) }
func printWarning(format string, args ...any) { badgeWarning.print(format, args...) }
func printInfo(format string, args ...any)    { badgeInfo.print(format, args...) }

// printDetail prints an indented secondary line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a written file.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render("→") + " " + styleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	fmt.Println(styleKey.Render(key) + " " + styleValue.Render(value))
}

// printNextStep prints a suggested follow-up command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

func printNewline() { fmt.Println() }

// =============================================================================
// Canvas Summary
// =============================================================================

// canvasSummary lists what a session left on the canvas, e.g.
// "12 ribbons · 3 strips (40 segments) · 1 clears".
func canvasSummary(st session.Status) []string {
	cv := st.Canvas
	var parts []string
	add := func(n int, format string, args ...any) {
		if n > 0 {
			parts = append(parts, fmt.Sprintf(format, args...))
		}
	}
	add(cv.Ribbons, "%d ribbons", cv.Ribbons)
	add(cv.Polylines, "%d strips (%d segments)", cv.Polylines, cv.PolylineSegments)
	add(cv.Particles, "%d particles", cv.Particles)
	add(int(cv.Generation), "%d clears", cv.Generation)
	if len(parts) == 0 {
		parts = append(parts, "empty canvas")
	}
	return parts
}

// printCanvasStats prints the canvas summary and the final brush.
func printCanvasStats(st session.Status) {
	sep := StyleDim.Render(" · ")
	fmt.Println("  " + StyleDim.Render(strings.Join(canvasSummary(st), " · ")) + sep + brushStyle(st.Brush).Render(st.Brush.String()))
}
