package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ironsheep/posterize-mcp/internal/posterize"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the named presets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writePresets(cmd.OutOrStdout())
	},
}

func writePresets(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSUFFIX")
	for _, name := range posterize.PresetNames() {
		s, _ := posterize.Preset(name)
		fmt.Fprintf(tw, "%s\t%s\n", name, posterize.BuildFilenameSuffix(s))
	}
	return tw.Flush()
}
