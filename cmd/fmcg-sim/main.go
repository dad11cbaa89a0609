package main

import (
	"fmt"
	"os"

	"fmcg-sim/cmd/fmcg-sim/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(commands.ExitCode(err))
	}
}
