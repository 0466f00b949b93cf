// Command mediagrab-cli finds and downloads product videos from the command line.
package main

import (
	"os"

	"github.com/use-agent/mediagrab/cmd/mediagrab-cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
