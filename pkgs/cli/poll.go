package cli

import (
	"time"

	"github.com/lwnode/lwnode/pkgs/app"
	"github.com/spf13/cobra"
)

func NewPollCommand(app *app.NodeApp) *cobra.Command {
	var windowMS uint32

	command := &cobra.Command{
		Use:   "poll",
		Short: "Opens a receive window and prints decoded downlinks as they arrive",
		RunE: func(command *cobra.Command, args []string) error {
			if err := app.Initialize(); err != nil {
				return err
			}
			defer app.CleanUp()
			return app.PollAction(time.Duration(windowMS) * time.Millisecond)
		},
	}

	command.Flags().Uint32VarP(&windowMS, "window", "w", 5000, "Receive window in milliseconds")
	return command
}
