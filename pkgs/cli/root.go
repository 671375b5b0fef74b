package cli

import (
	"errors"

	"github.com/lwnode/lwnode/pkgs/app"
	"github.com/spf13/cobra"
)

func NewRootCommand(app *app.NodeApp) *cobra.Command {
	command := &cobra.Command{
		Use:   "lwnode",
		Short: "LoRaWAN AT-command node CLI",
		RunE: func(command *cobra.Command, args []string) error {
			return errors.New("please select a command")
		},
	}

	command.PersistentFlags().BoolVarP(&app.Debug, "debug", "v", false, "Increase verbosity to the debug level")
	command.PersistentFlags().BoolVarP(&app.Color, "color", "c", false, "Highlight success/failure output in the terminal")

	command.AddCommand(NewProvisionCommand(app))
	command.AddCommand(NewBeginCommand(app))
	command.AddCommand(NewJoinCommand(app))
	command.AddCommand(NewStatusCommand(app))
	command.AddCommand(NewSendCommand(app))
	command.AddCommand(NewPollCommand(app))
	command.AddCommand(NewProfileCommand(app))

	return command
}
