package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, m.refreshCmd()
		case "j", "down":
			if m.selectedRow < len(m.rows())-1 {
				m.selectedRow++
			}
		case "k", "up":
			if m.selectedRow > 0 {
				m.selectedRow--
			}
		case "tab":
			m.activeTab = (m.activeTab + 1) % tabCount
			m.selectedRow = 0
		case "b":
			m.activeTab = TabBatches
			m.selectedRow = 0
		case "s":
			m.activeTab = TabSheets
			m.selectedRow = 0
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case TickMsg:
		return m, tea.Batch(m.refreshCmd(), m.tickCmd())

	case DataMsg:
		m.err = msg.Err
		m.lastRefresh = msg.At
		if msg.Err != nil {
			return m, nil
		}
		m.batches = msg.Batches
		m.sheets = msg.Sheets
		if msg.Pending != nil {
			m.pending = msg.Pending
		}
		if n := len(m.rows()); m.selectedRow >= n {
			m.selectedRow = max(n-1, 0)
		}
	}

	return m, nil
}
