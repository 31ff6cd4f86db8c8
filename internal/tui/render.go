package tui

import (
	"fmt"
	"strings"

	"github.com/adamavenir/socialdash/internal/notify"
	"github.com/adamavenir/socialdash/internal/types"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("111"))
	badgeStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("161")).Padding(0, 1)
	liveStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	offlineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	tabStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Padding(0, 1)
	activeTabStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("62")).Padding(0, 1)
	cursorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("216"))
	unreadStyle    = lipgloss.NewStyle().Bold(true)
	readStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	excerptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Italic(true)
	premiumStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	spinnerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
)

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")
	b.WriteString(m.renderList())
	b.WriteString("\n")
	if line := m.renderStatus(); line != "" {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderHeader() string {
	parts := []string{titleStyle.Render(m.title)}
	if badge := notify.Badge(m.unread); badge != "" {
		parts = append(parts, badgeStyle.Render(badge))
	}
	state := m.connState()
	if state == types.StateConnected {
		parts = append(parts, liveStyle.Render("● live"))
	} else {
		parts = append(parts, offlineStyle.Render("○ "+state.String()))
	}
	return strings.Join(parts, " ")
}

func (m *Model) renderTabs() string {
	active := m.view.Filter()
	tabs := make([]string, 0, len(types.Filters))
	for _, f := range types.Filters {
		style := tabStyle
		if f == active {
			style = activeTabStyle
		}
		tabs = append(tabs, style.Render(f.Label()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m *Model) renderList() string {
	state := m.view.State()
	if len(m.items) == 0 {
		// Page 0 without an error means the first page has not landed yet.
		if state.Loading || (state.Page == 0 && state.Err == nil) {
			return m.spinner.View() + " loading notifications"
		}
		return readStyle.Render("  No notifications")
	}

	start, end := m.window()
	var b strings.Builder
	for i := start; i < end; i++ {
		b.WriteString(m.renderRow(i, m.items[i]))
		b.WriteString("\n")
	}
	switch {
	case state.Loading:
		b.WriteString(m.spinner.View() + " loading\n")
	case state.HasMore:
		b.WriteString(readStyle.Render("  n: load more") + "\n")
	}
	return b.String()
}

// window returns the visible slice of rows, keeping the cursor on screen.
func (m *Model) window() (int, int) {
	rows := len(m.items)
	// Header, tabs, spacing, status, help, and the load-more line.
	visible := m.height - 7
	if m.height == 0 || visible >= rows {
		return 0, rows
	}
	if visible < 1 {
		visible = 1
	}
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	return start, min(start+visible, rows)
}

func (m *Model) renderRow(idx int, rec types.Notification) string {
	pointer := "  "
	if idx == m.cursor {
		pointer = cursorStyle.Render("> ")
	}
	box := "[ ]"
	if m.view.IsSelected(rec.ID) {
		box = "[x]"
	}
	dot := " "
	style := readStyle
	if !rec.IsRead {
		dot = "•"
		style = unreadStyle
	}

	line := style.Render(notify.Message(rec))
	if rec.From.Premium() {
		line += " " + premiumStyle.Render("★")
	}
	if ago := notify.Ago(rec.CreatedAt); ago != "" {
		line += readStyle.Render(" · " + ago)
	}
	row := fmt.Sprintf("%s%s %s %s", pointer, box, dot, line)
	if excerpt := notify.Excerpt(rec); excerpt != "" {
		width := 60
		if m.width > 20 {
			width = m.width - 12
		}
		row += "\n" + strings.Repeat(" ", 8) + excerptStyle.Render(notify.Truncate(excerpt, width))
	}
	return row
}

func (m *Model) renderStatus() string {
	if m.status != "" {
		return statusStyle.Render(m.status)
	}
	if err := m.view.State().Err; err != nil {
		return statusStyle.Render("load failed: " + err.Error() + " (n to retry)")
	}
	if selected := len(m.view.Selected()); selected > 0 {
		return fmt.Sprintf("%d selected", selected)
	}
	return ""
}
