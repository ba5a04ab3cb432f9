package main

import (
	"os"

	"github.com/vzahanych/balloon-atlas/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
