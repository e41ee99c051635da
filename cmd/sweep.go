package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete or null orphaned rows per the relationship matrix",
	RunE:  runSweep,
}

func runSweep(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	sweeps, err := app.manager.SweepOrphans(cmd.Context())
	if err != nil {
		return err
	}
	for _, sweep := range sweeps {
		if sweep.RowsAffected == 0 {
			continue
		}
		fmt.Printf("%-26s %-8s %d rows\n", sweep.Relationship, sweep.Rule, sweep.RowsAffected)
	}
	return nil
}
