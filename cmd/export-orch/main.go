package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "export-orch",
		Short: "Booking export orchestrator - scheduled spreadsheet exports",
		Long: `export-orch copies contact submissions, bookings, payments and class
registrations into their spreadsheet tabs. A batch runs all four exports
concurrently and records the outcome, either on its own schedule or when an
external scheduler calls GET /api/cron/export with the shared secret.`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
