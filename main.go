package main

import (
	"fmt"
	"os"

	"github.com/Copani/matRad/cmd"
	"github.com/Copani/matRad/internal/logger"
)

func main() {
	if err := cmd.Execute(cmd.Options{}, os.Args[1:]); err != nil {
		// Fatal errors were already printed by the dispatcher
		if _, ok := logger.AsFatal(err); !ok {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
