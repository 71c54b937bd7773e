package main

import (
	"os"

	"github.com/platewire/platewire/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
