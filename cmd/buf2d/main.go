package main

import (
	"os"

	"github.com/malei-pku/exposure-render/cmd/buf2d/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
