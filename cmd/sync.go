package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run every consistency pass once and report per-pass results",
	RunE:  runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	reports := app.synchronizer.RunAll(cmd.Context())
	for _, report := range reports {
		if report.Err != nil {
			fmt.Printf("%-28s FAILED after %s: %v\n", report.Pass, report.Duration.Round(0), report.Err)
			continue
		}
		fmt.Printf("%-28s %6d rows in %s\n", report.Pass, report.RowsAffected, report.Duration.Round(0))
	}
	return nil
}
