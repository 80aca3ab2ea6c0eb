// Package cli implements the posterize command line: batch rendering,
// preset listing and the MCP server.
package cli

import (
	"github.com/spf13/cobra"
)

var VERSION = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "posterize",
	Short:   "Posterize images with block filtering, dithering and palette reduction",
	Version: VERSION,
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(presetsCmd)
	rootCmd.AddCommand(serveCmd)
}
