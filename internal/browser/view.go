package browser

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dyluth/burrow/internal/render"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	columnStyle = lipgloss.NewStyle().Faint(true)
	groupStyle  = lipgloss.NewStyle().Bold(true)
	cursorStyle = lipgloss.NewStyle().Reverse(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	offStyle    = lipgloss.NewStyle().Faint(true).Strikethrough(true)
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	title := "Subsets"
	if asset := m.pipeline.Asset(); asset != nil {
		title = fmt.Sprintf("Subsets for asset '%s'", asset.Name)
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString(fmt.Sprintf("  grouped by %s\n", m.pipeline.Proxy.GroupBy()))
	b.WriteString(m.familyBar())
	b.WriteString("\n\n")

	if len(m.lines) == 0 {
		b.WriteString("No subsets to show\n")
	} else {
		titles := make([]string, len(m.headers))
		for i, h := range m.headers {
			titles[i] = render.HeaderTitle(h)
		}
		b.WriteString("    " + columnStyle.Render(render.FormatRow(titles, m.widths)) + "\n")

		for i, l := range m.lines {
			text := m.lineText(l)
			if i == m.cursor {
				text = cursorStyle.Render(text)
			}
			b.WriteString(text + "\n")
		}
	}

	b.WriteString("\n")
	switch {
	case m.editing != "":
		b.WriteString(fmt.Sprintf("Version for %s: %s\n", m.editing, m.input.View()))
	case m.err != nil:
		b.WriteString(errorStyle.Render("Error: "+m.err.Error()) + "\n")
	case m.status != "":
		b.WriteString(statusStyle.Render(m.status) + "\n")
	}
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

func (m *Model) lineText(l line) string {
	if l.header {
		marker := "▾"
		if m.collapsed[l.key] {
			marker = "▸"
		}
		return groupStyle.Render(fmt.Sprintf("%s %s", marker, l.label))
	}
	return "    " + render.FormatRow(l.cells, m.widths)
}

// familyBar shows the toggle number of each loaded family, struck through
// when hidden.
func (m *Model) familyBar() string {
	parts := make([]string, 0, len(m.families))
	for i, f := range m.families {
		if i >= 9 {
			break
		}
		label := fmt.Sprintf("%d:%s", i+1, f)
		if !m.pipeline.Filter.Accepts(f) {
			label = offStyle.Render(label)
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, "  ")
}
