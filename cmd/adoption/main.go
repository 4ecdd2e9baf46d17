package main

import (
	"os"

	"github.com/deppfellow/adoption-agency/internal/cli"
)

func main() {
	if err := cli.NewRootCommand(cli.DefaultOptions()).Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
