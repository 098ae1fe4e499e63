package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/hochfrequenz/booking-export/internal/domain"
)

var (
	headerStyle = lipgloss.NewStyle().
		Background(lipgloss.Color("236")).
		Foreground(lipgloss.Color("255")).
		Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205"))

	completedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	pendingStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("214"))

	failedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))

	dimmedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240"))

	selectedStyle = lipgloss.NewStyle().
		Background(lipgloss.Color("237"))

	statusBarStyle = lipgloss.NewStyle().
		Background(lipgloss.Color("236")).
		Foreground(lipgloss.Color("255"))

	tabActiveStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		Underline(true)

	tabInactiveStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("244"))
)

var tabNames = []string{"Batches", "Sheets"}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	// Header
	var pendingTotal int
	for _, n := range m.pending {
		pendingTotal += n
	}
	header := fmt.Sprintf(" Booking Export │ Pending rows: %d │ Last batch: %s ", pendingTotal, m.lastBatchSummary())
	b.WriteString(headerStyle.Width(m.width).Render(header))
	b.WriteString("\n")

	b.WriteString(m.renderTabs())
	b.WriteString("\n")

	b.WriteString(sectionStyle.Width(m.width - 2).Render(m.renderPending()))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Width(m.width - 2).Render(m.renderJobs()))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(failedStyle.Width(m.width).Render(" Error: " + m.err.Error() + " "))
		b.WriteString("\n")
	}

	refreshed := "never"
	if !m.lastRefresh.IsZero() {
		refreshed = m.lastRefresh.Format("15:04:05")
	}
	statusBar := fmt.Sprintf(" [tab]switch [j/k]select [r]efresh [q]uit │ refreshed %s ", refreshed)
	b.WriteString(statusBarStyle.Width(m.width).Render(statusBar))

	return b.String()
}

func (m Model) lastBatchSummary() string {
	if len(m.batches) == 0 {
		return "none"
	}
	j := m.batches[0]
	return fmt.Sprintf("%s, %d rows, %s", j.Status, j.RowsExported, j.CreatedAt.Local().Format("Jan 2 15:04"))
}

func (m Model) renderTabs() string {
	var tabs []string
	for i, name := range tabNames {
		style := tabInactiveStyle
		if i == m.activeTab {
			style = tabActiveStyle
		}
		tabs = append(tabs, style.Render(name))
	}
	return " " + strings.Join(tabs, "  ")
}

func (m Model) renderPending() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("PENDING"))
	b.WriteString("\n")
	for _, t := range domain.SourceTypes {
		n := m.pending[t]
		style := dimmedStyle
		if n > 0 {
			style = pendingStyle
		}
		b.WriteString(fmt.Sprintf("%-9s %s\n", t, style.Render(fmt.Sprintf("%d", n))))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// rows returns the jobs listed on the active tab
func (m Model) rows() []*domain.ExportJob {
	if m.activeTab == TabSheets {
		return m.sheets
	}
	return m.batches
}

func (m Model) renderJobs() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(strings.ToUpper(tabNames[m.activeTab])))
	b.WriteString("\n")

	rows := m.rows()
	if len(rows) == 0 {
		b.WriteString(dimmedStyle.Render("No export jobs recorded"))
		return b.String()
	}

	for i, j := range rows {
		line := formatJobLine(j)
		if i == m.selectedRow {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if sel := m.selected(); sel != nil && sel.Error != "" {
		b.WriteString("\n")
		b.WriteString(failedStyle.Render(truncate(sel.Error, max(m.width-8, 20))))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (m Model) selected() *domain.ExportJob {
	rows := m.rows()
	if m.selectedRow < 0 || m.selectedRow >= len(rows) {
		return nil
	}
	return rows[m.selectedRow]
}

func formatJobLine(j *domain.ExportJob) string {
	id := j.ID
	if len(id) > 8 {
		id = id[:8]
	}
	duration := "-"
	if j.CompletedAt != nil {
		duration = formatDuration(j.Duration())
	}
	return fmt.Sprintf("%s  %-8s  %-14s  %s  %6d rows  %s  %s",
		id, j.ExportType, truncate(j.SheetID, 14), renderStatus(j.Status),
		j.RowsExported, j.CreatedAt.Local().Format("2006-01-02 15:04:05"), duration)
}

func renderStatus(s domain.JobStatus) string {
	label := fmt.Sprintf("%-9s", s)
	switch s {
	case domain.JobCompleted:
		return completedStyle.Render(label)
	case domain.JobFailed:
		return failedStyle.Render(label)
	default:
		return pendingStyle.Render(label)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}
