package main

import (
	"os"

	"cryptosocket/cmd/cryptosocket/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
