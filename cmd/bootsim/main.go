package main

import (
	"os"

	"github.com/openfota/bootcore/cmd/bootsim/app"
)

func main() {
	if err := app.NewSimCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
