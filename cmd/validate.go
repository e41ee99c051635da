package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run every integrity check and report violations",
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.enforcer.Validate(cmd.Context())
	if err != nil {
		return err
	}
	for _, check := range result.Checks {
		if check.Valid {
			fmt.Printf("%-26s ok\n", check.Name)
			continue
		}
		fmt.Printf("%-26s %d invalid (%s)\n", check.Name, check.InvalidCount, check.Message)
	}
	return nil
}
