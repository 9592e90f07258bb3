package main

import (
	"os"

	"github.com/vrbridge-io/vrbridge/cmd/vrbridge-sim/app"
)

func main() {
	if err := app.NewSimCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
