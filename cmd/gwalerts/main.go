package main

import (
	"os"

	"gwalerts/cmd/gwalerts/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
