package cli

import (
	"github.com/lwnode/lwnode/pkgs/app"
	"github.com/spf13/cobra"
)

func NewJoinCommand(app *app.NodeApp) *cobra.Command {
	command := &cobra.Command{
		Use:   "join",
		Short: "Requests a network join",
		RunE: func(command *cobra.Command, args []string) error {
			if err := app.Initialize(); err != nil {
				return err
			}
			defer app.CleanUp()
			return app.JoinAction()
		},
	}
	return command
}

func NewStatusCommand(app *app.NodeApp) *cobra.Command {
	command := &cobra.Command{
		Use:   "status",
		Short: "Reports join state and last downlink metrics",
		RunE: func(command *cobra.Command, args []string) error {
			if err := app.Initialize(); err != nil {
				return err
			}
			defer app.CleanUp()
			return app.StatusAction()
		},
	}
	return command
}
