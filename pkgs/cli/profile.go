package cli

import (
	"errors"
	"os"

	"github.com/lwnode/lwnode/pkgs/app"
	"github.com/spf13/cobra"
)

func NewProfileCommand(app *app.NodeApp) *cobra.Command {
	command := &cobra.Command{
		Use:   "profile",
		Short: "Exports or imports a node's staged provisioning profile",
	}
	command.AddCommand(newProfileExportCommand(app))
	command.AddCommand(newProfileImportCommand(app))
	return command
}

func newProfileExportCommand(app *app.NodeApp) *cobra.Command {
	var keyPath, out string
	command := &cobra.Command{
		Use:   "export",
		Short: "Writes the current node.json profile as a sealed, version-control-friendly YAML blob",
		RunE: func(command *cobra.Command, args []string) error {
			if err := app.Initialize(); err != nil {
				return err
			}
			if out == "" {
				return errors.New("need --out")
			}
			return app.ExportProfileAction(keyPath, out)
		},
	}
	command.Flags().StringVar(&keyPath, "keyfile", ".lwnode.key", "Path to the keystore's static key file")
	command.Flags().StringVarP(&out, "out", "o", "", "Path to write the sealed profile")
	return command
}

func newProfileImportCommand(app *app.NodeApp) *cobra.Command {
	var keyPath string
	command := &cobra.Command{
		Use:   "import <sealed-file>",
		Short: "Reads a sealed profile and prints it as YAML",
		RunE: func(command *cobra.Command, args []string) error {
			if err := app.Initialize(); err != nil {
				return err
			}
			if len(args) == 0 {
				return errors.New("need a sealed profile path")
			}
			yamlBytes, err := app.ImportProfileAction(keyPath, args[0])
			if err != nil {
				return err
			}
			_, werr := os.Stdout.Write(yamlBytes)
			return werr
		},
	}
	command.Flags().StringVar(&keyPath, "keyfile", ".lwnode.key", "Path to the keystore's static key file")
	return command
}
