package main

import (
	"os"

	"github.com/ethicalzeus07/ballsy-voice-assistant/cmd/ballsy/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
