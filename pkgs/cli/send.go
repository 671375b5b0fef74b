package cli

import (
	"errors"

	"github.com/lwnode/lwnode/pkgs/app"
	"github.com/spf13/cobra"
)

func NewSendCommand(app *app.NodeApp) *cobra.Command {
	command := &cobra.Command{
		Use:   "send <hex-payload>",
		Short: "Transmits a hex-encoded uplink payload",
		RunE: func(command *cobra.Command, args []string) error {
			if err := app.Initialize(); err != nil {
				return err
			}
			defer app.CleanUp()

			if len(args) == 0 {
				return errors.New("need a hex-encoded payload")
			}
			return app.SendAction(args[0])
		},
	}
	return command
}
