package main

import (
	"os"

	"psk-resumption/cmd/pskctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
