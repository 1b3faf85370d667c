package main

import (
	"github.com/gpupool/gatewayd/cmd"
)

func main() {
	// Execute the root command.
	cmd.Execute()
}
