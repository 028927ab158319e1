package main

import (
	"os"

	"github.com/cmc-edu/room-booking/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
