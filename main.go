package main

import (
	"os"

	"github.com/lwnode/lwnode/pkgs/app"
	"github.com/lwnode/lwnode/pkgs/cli"
	"github.com/lwnode/lwnode/pkgs/output"
)

func main() {
	nodeApp := app.NodeApp{P: output.ConsolePrinter{}}
	cmd := cli.NewRootCommand(&nodeApp)
	args := os.Args
	if args != nil {
		args = args[1:]
		cmd.SetArgs(args)
	}
	err := cmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
