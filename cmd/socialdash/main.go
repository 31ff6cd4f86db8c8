package main

import (
	"os"

	"github.com/adamavenir/socialdash/internal/command"
)

func main() {
	// Commands print their own errors.
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}
