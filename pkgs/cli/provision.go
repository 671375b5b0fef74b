package cli

import (
	"github.com/lwnode/lwnode/pkgs/app"
	"github.com/spf13/cobra"
)

func NewProvisionCommand(app *app.NodeApp) *cobra.Command {
	command := &cobra.Command{
		Use:   "provision",
		Short: "Pushes the staged node.json profile's credentials and radio settings",
		RunE: func(command *cobra.Command, args []string) error {
			if err := app.Initialize(); err != nil {
				return err
			}
			defer app.CleanUp()
			return app.ProvisionAction()
		},
	}
	return command
}
