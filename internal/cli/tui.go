package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/leafshift/pkg/convert"
	"github.com/matzehuels/leafshift/pkg/rtplan"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// BeamListModel - Interactive beam selection
// =============================================================================

// BeamListModel is the bubbletea model for interactive beam selection.
type BeamListModel struct {
	Beams    []rtplan.Beam
	Cursor   int
	Selected *rtplan.Beam
	Height   int
	Offset   int
}

// NewBeamListModel creates a new beam list model.
func NewBeamListModel(beams []rtplan.Beam) BeamListModel {
	return BeamListModel{Beams: beams, Height: 15}
}

func (m BeamListModel) Init() tea.Cmd {
	return nil
}

func (m BeamListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Beams)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			b := m.Beams[m.Cursor]
			if !b.HasMLC() || len(b.ControlPoints) == 0 {
				return m, nil
			}
			m.Selected = &b
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m BeamListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Beam"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Beams) {
		end = len(m.Beams)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		beam := m.Beams[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		mlcCol := "✓"
		if !beam.HasMLC() {
			mlcCol = "-"
		}
		rows = append(rows, []string{
			cursor,
			strconv.Itoa(beam.Number),
			beam.Name,
			beam.TreatmentMachineName,
			strconv.Itoa(convert.EffectiveControlPoints(&beam)),
			mlcCol,
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Beam", "Name", "Machine", "CPs", "MLC").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(m.Beams) {
				return lipgloss.NewStyle()
			}
			usable := m.Beams[idx].HasMLC()
			switch {
			case idx == m.Cursor && usable:
				return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
			case idx == m.Cursor:
				return lipgloss.NewStyle().Foreground(colorDim).Bold(true)
			case usable:
				return lipgloss.NewStyle().Foreground(colorGreen)
			}
			return lipgloss.NewStyle().Foreground(colorDim)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Beams))))

	return b.String()
}

// =============================================================================
// ControlPointListModel - Interactive control point selection
// =============================================================================

// ControlPointListModel is the bubbletea model for control point selection.
type ControlPointListModel struct {
	Beam     *rtplan.Beam
	Cursor   int
	Selected int
	Chosen   bool
}

// NewControlPointListModel creates a new control point list model.
func NewControlPointListModel(b *rtplan.Beam) ControlPointListModel {
	return ControlPointListModel{Beam: b}
}

func (m ControlPointListModel) Init() tea.Cmd {
	return nil
}

func (m ControlPointListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < len(m.Beam.ControlPoints)-1 {
				m.Cursor++
			}
		case "enter":
			if !m.Beam.ControlPoints[m.Cursor].HasLeaves() {
				return m, nil
			}
			m.Selected, m.Chosen = m.Cursor, true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m ControlPointListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(fmt.Sprintf("Select Control Point of Beam %d", m.Beam.Number)))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("arrows: navigate  enter: select  q: quit"))
	b.WriteString("\n\n")

	for i, cp := range m.Beam.ControlPoints {
		cursor := "  "
		if i == m.Cursor {
			cursor = "> "
		}

		var status, detail string
		if !cp.HasLeaves() {
			status = StyleWarning.Render("!")
			detail = "no MLC positions"
		} else {
			status = StyleSuccess.Render("*")
			detail = fmt.Sprintf("%d open pairs", openPairs(cp.Leaves))
		}

		line := fmt.Sprintf("%s%s CP %-4d  %s", cursor, status, cp.Index, listDimStyle.Render(detail))
		switch {
		case i == m.Cursor:
			b.WriteString(listSelectedStyle.Render(line))
		case !cp.HasLeaves():
			b.WriteString(listDimStyle.Render(line))
		default:
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// openPairs counts leaf pairs whose banks are apart.
func openPairs(leaves []float64) int {
	half := len(leaves) / 2
	n := 0
	for i := 0; i < half; i++ {
		if leaves[i] != leaves[i+half] {
			n++
		}
	}
	return n
}
