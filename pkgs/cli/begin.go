package cli

import (
	"github.com/lwnode/lwnode/pkgs/app"
	"github.com/spf13/cobra"
)

func NewBeginCommand(app *app.NodeApp) *cobra.Command {
	command := &cobra.Command{
		Use:   "begin",
		Short: "Runs the module bring-up sequence",
		RunE: func(command *cobra.Command, args []string) error {
			if err := app.Initialize(); err != nil {
				return err
			}
			defer app.CleanUp()
			return app.BeginAction()
		},
	}
	return command
}
