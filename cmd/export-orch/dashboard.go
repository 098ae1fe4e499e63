package main

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/hochfrequenz/booking-export/tui"
)

var dashboardInterval time.Duration

func init() {
	dashboardCmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Launch TUI dashboard of export jobs",
		RunE:  runDashboard,
	}
	dashboardCmd.Flags().DurationVar(&dashboardInterval, "interval", 5*time.Second, "refresh interval")
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	_, store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	model := tui.NewModel(tui.ModelConfig{Source: store, Interval: dashboardInterval})
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
