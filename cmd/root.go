package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sla-engine",
	Short: "SLA compliance engine: deadlines, consistency sync, integrity repair",
	RunE:  runEngine,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(repairCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(sweepCmd)
}
