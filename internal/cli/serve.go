package cli

import (
	"io"
	"log"

	"github.com/spf13/cobra"

	"github.com/ironsheep/posterize-mcp/internal/imaging"
	"github.com/ironsheep/posterize-mcp/internal/prefs"
	"github.com/ironsheep/posterize-mcp/internal/server"
	"github.com/ironsheep/posterize-mcp/internal/session"
)

var (
	serveExportDir string
	serveNoPrefs   bool
	previewWidth   int
	previewHeight  int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdin/stdout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := environ()
		ConfigureLogging(cfg, cmd.ErrOrStderr())
		return Serve(cfg, ServeOptions{
			ExportDir:     serveExportDir,
			NoPrefs:       serveNoPrefs,
			PreviewWidth:  previewWidth,
			PreviewHeight: previewHeight,
		}, cmd.InOrStdin(), cmd.OutOrStdout())
	},
	SilenceUsage: true,
}

func init() {
	f := serveCmd.Flags()
	f.StringVarP(&serveExportDir, "out-dir", "o", ".", "default export directory")
	f.BoolVar(&serveNoPrefs, "no-prefs", false, "do not open the preferences database")
	f.IntVar(&previewWidth, "preview-width", 800, "preview region width")
	f.IntVar(&previewHeight, "preview-height", 600, "preview region height")
}

// ServeOptions configures Serve.
type ServeOptions struct {
	ExportDir     string
	NoPrefs       bool
	PreviewWidth  int
	PreviewHeight int
}

// Serve wires a session, preview surface and preferences into an MCP
// server and runs it over r and w until r is exhausted.
//
// A preferences database that cannot be opened is logged and skipped.
func Serve(cfg Config, o ServeOptions, r io.Reader, w io.Writer) error {
	if o.PreviewWidth <= 0 {
		o.PreviewWidth = 800
	}
	if o.PreviewHeight <= 0 {
		o.PreviewHeight = 600
	}
	surface := imaging.NewImageSurface(o.PreviewWidth, o.PreviewHeight)

	opts := session.DefaultOptions()
	opts.Pipeline = pipelineOptions(cfg)

	var p session.Preferences
	var store *prefs.Store
	if !o.NoPrefs {
		var err error
		store, err = OpenPrefs(cfg)
		if err != nil {
			log.Printf("Preferences disabled: %v", err)
		} else {
			defer store.Close()
			p = store
		}
	}

	sess := session.New(opts, imaging.NewImageCache(), imaging.BlobEncoder{}, surface, p)
	defer sess.Close()

	srv := server.New(sess, surface, o.ExportDir)
	if store != nil {
		srv.SetHistory(store)
	}
	return srv.Serve(r, w)
}
