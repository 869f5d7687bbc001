package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const borderPadding = 2

// View renders the current view (Bubble Tea interface).
func (m BrowserModel) View() string {
	switch m.state {
	case ViewStateQuitting:
		return ""
	case ViewStateDetail:
		return m.renderDetailView()
	case ViewStateList, ViewStateJump:
		return m.renderListView()
	default:
		return ""
	}
}

func (m BrowserModel) renderListView() string {
	sections := []string{m.renderHeader()}

	if len(m.ctrl.Results()) == 0 && !m.ctrl.Loading() {
		sections = append(sections, SubtleStyle.Render("No results."))
	} else {
		sections = append(sections, m.table.View())
	}

	if err := m.ctrl.Err(); err != nil {
		sections = append(sections, CriticalStyle.Render("Error: "+err.Error()))
	}
	if m.status != "" {
		sections = append(sections, InfoStyle.Render(m.status))
	}
	if m.state == ViewStateJump {
		sections = append(sections, LabelStyle.Render("Go to page: ")+m.jump.View())
	}

	sections = append(sections, m.renderPaginationFooter(), m.renderHelp())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m BrowserModel) renderHeader() string {
	title := HeaderStyle.Render(m.ctrl.Method()) +
		LabelStyle.Render("  subject: ") +
		ValueStyle.Render(m.ctrl.Subject())
	if m.ctrl.Loading() {
		title += "  " + m.spinner.View()
	}
	return title
}

// renderPaginationFooter displays page position and result count.
func (m BrowserModel) renderPaginationFooter() string {
	return SubtleStyle.Render(m.FooterText())
}

// FooterText is the unstyled footer, e.g. "Page 2/10 · 1,234 results · 10 per page".
func (m BrowserModel) FooterText() string {
	return m.printer.Sprintf("Page %d/%d · %d results · %d per page",
		m.ctrl.CurrPage(), m.ctrl.TotalPages(), m.ctrl.NumResults(), m.ctrl.PageSize())
}

func (m BrowserModel) renderHelp() string {
	return SubtleStyle.Render("←/→ page · +/- size · g jump · r reload · enter detail · q quit")
}

func (m BrowserModel) renderDetailView() string {
	var content strings.Builder
	content.WriteString(HeaderStyle.Render("RECORD DETAIL"))
	content.WriteString("\n\n")

	keys := make([]string, 0, len(m.selected))
	for k := range m.selected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		content.WriteString(LabelStyle.Render(fmt.Sprintf("%s: ", k)))
		content.WriteString(ValueStyle.Render(FormatValue(m.selected[k])))
		content.WriteString("\n")
	}

	content.WriteString(SubtleStyle.Render("\nPress ESC to return"))
	return BoxStyle.Width(m.width - borderPadding).Render(content.String())
}
