package main

import (
	"os"

	"github.com/mwnode/basenode/app"
)

func main() {
	if err := app.StartApp(); err != nil {
		os.Exit(1)
	}
}
