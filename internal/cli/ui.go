package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/leafshift/pkg/convert"
	"github.com/matzehuels/leafshift/pkg/mlc"
)

// Command output goes to stdout, progress to stderr.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// =============================================================================
// Palette
// =============================================================================

var (
	colorCyan  = lipgloss.Color("36")
	colorGreen = lipgloss.Color("35")
	colorAmber = lipgloss.Color("220")
	colorRed   = lipgloss.Color("167")
	colorWhite = lipgloss.Color("255")
	colorGray  = lipgloss.Color("245")
	colorDim   = lipgloss.Color("240")

	// Same leaf colours as the aperture drawings.
	colorMillennium = lipgloss.Color("#87ceeb")
	colorHD         = lipgloss.Color("#fa8072")
)

var (
	// StyleTitle for headings such as the plan label.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	StyleWarning = lipgloss.NewStyle().Foreground(colorAmber)
)

// =============================================================================
// Status lines
// =============================================================================

// status is the leading icon of a one-line message.
type status struct {
	icon  string
	style lipgloss.Style
}

var (
	statusOK   = status{"✓", lipgloss.NewStyle().Foreground(colorGreen)}
	statusFail = status{"✗", lipgloss.NewStyle().Foreground(colorRed)}
	statusWarn = status{"!", lipgloss.NewStyle().Foreground(colorAmber)}
	statusNote = status{"›", lipgloss.NewStyle().Foreground(colorGray)}
)

func (s status) println(msg string) {
	fmt.Fprintln(stdout, s.style.Render(s.icon)+" "+msg)
}

func printSuccess(format string, args ...any) { statusOK.println(fmt.Sprintf(format, args...)) }
func printError(format string, args ...any)   { statusFail.println(fmt.Sprintf(format, args...)) }
func printInfo(format string, args ...any)    { statusNote.println(fmt.Sprintf(format, args...)) }

func printWarning(format string, args ...any) {
	statusWarn.println(StyleWarning.Render(fmt.Sprintf(format, args...)))
}

// printDetail prints an indented dim line under a status line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a written output path.
func printFile(path string) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render("→")+" "+lipgloss.NewStyle().Foreground(colorWhite).Render(path))
}

// =============================================================================
// Plan details
// =============================================================================

// familyName renders f in the colour its leaves are drawn with.
func familyName(f mlc.Family) string {
	style := lipgloss.NewStyle().Bold(true)
	switch f {
	case mlc.Millennium:
		style = style.Foreground(colorMillennium)
	case mlc.HD:
		style = style.Foreground(colorHD)
	}
	return style.Render(f.String())
}

// directionName renders "Millennium → HD" with family colours.
func directionName(d convert.Direction) string {
	return familyName(d.Source) + StyleDim.Render(" → ") + familyName(d.Target)
}

func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Fprintln(stdout, keyStyle.Render(key)+" "+value)
}

// printStats prints the conversion counts on one line.
func printStats(beams, controlPoints, warnings int, cached bool) {
	parts := []string{
		plural(beams, "beam"),
		plural(controlPoints, "control point"),
	}
	if warnings > 0 {
		parts = append(parts, StyleWarning.Render(plural(warnings, "warning")))
	}
	if cached {
		parts = append(parts, StyleSuccess.Render("cached"))
	} else {
		parts = append(parts, "fresh")
	}
	fmt.Fprintln(stdout, "  "+StyleDim.Render(strings.Join(parts, " · ")))
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// printTable prints rows under a header in a rounded border.
func printTable(headers []string, rows [][]string) {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	fmt.Fprintln(stdout, t.Render())
}

// printNextStep suggests a follow-up command.
func printNextStep(description, cmd string) {
	fmt.Fprintln(stdout, StyleDim.Render(description+":")+" "+lipgloss.NewStyle().Foreground(colorCyan).Render(cmd))
}

func printNewline() {
	fmt.Fprintln(stdout)
}
