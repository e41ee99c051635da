package cmd

import (
	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install check constraints and foreign keys",
	RunE:  runInstall,
}

func runInstall(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.enforcer.InstallConstraints(cmd.Context()); err != nil {
		return err
	}
	return app.manager.InstallRelationships(cmd.Context())
}
