package main

import (
	"os"

	"github.com/reservas-dev/reservas/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
