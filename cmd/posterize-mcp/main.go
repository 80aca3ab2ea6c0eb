package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/ironsheep/posterize-mcp/internal/cli"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("posterize-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("posterize-mcp - MCP server for image posterization")
			fmt.Println()
			fmt.Println("Usage: posterize-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  POSTERIZE_LOG_LEVEL=debug      Log level (debug, info, warn, error)")
			fmt.Println("  POSTERIZE_PREVIEW_CAP=1200000  Maximum preview pixels")
			fmt.Println("  POSTERIZE_PREFS_DB=path        Preferences database location")
			fmt.Println("  POSTERIZE_EXPORT_DIR=path      Default export directory")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg := cli.LoadConfig(os.Getenv)
	cli.ConfigureLogging(cfg, os.Stderr)
	if cfg.LogLevel <= slog.LevelDebug {
		log.Printf("Posterize MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	opts := cli.ServeOptions{ExportDir: os.Getenv("POSTERIZE_EXPORT_DIR")}
	if err := cli.Serve(cfg, opts, os.Stdin, os.Stdout); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
