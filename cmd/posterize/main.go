package main

import (
	"os"

	"github.com/ironsheep/posterize-mcp/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
