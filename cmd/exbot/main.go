package main

import (
	"os"

	"github.com/rustyeddy/exbot/cmd/exbot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
