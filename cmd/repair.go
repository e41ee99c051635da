package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var repairDryRun bool

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Validate and auto-repair integrity violations",
	RunE:  runRepair,
}

func init() {
	repairCmd.Flags().BoolVar(&repairDryRun, "dry-run", false, "count repairs without writing")
}

func runRepair(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.enforcer.Validate(cmd.Context())
	if err != nil {
		return err
	}
	report, err := app.enforcer.AutoRepair(cmd.Context(), result, repairDryRun)
	if err != nil {
		return err
	}

	fmt.Printf("checks run: %d, auto-fixed: %d, dry-run: %v\n",
		report.ChecksRun, report.AutoFixed, report.DryRun)
	for _, item := range report.ManualReviewItems {
		fmt.Println("manual review:", item)
	}
	return nil
}
