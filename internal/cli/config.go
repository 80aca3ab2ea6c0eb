package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/ironsheep/posterize-mcp/internal/pipeline"
	"github.com/ironsheep/posterize-mcp/internal/prefs"
)

// Environment variables read by LoadConfig.
const (
	EnvLogLevel   = "POSTERIZE_LOG_LEVEL"
	EnvPreviewCap = "POSTERIZE_PREVIEW_CAP"
)

// Config is the process configuration taken from the environment.
type Config struct {
	LogLevel   slog.Level
	PreviewCap int
	// PrefsPath is the preferences database. Empty disables preferences.
	PrefsPath string
}

// LoadConfig reads the environment through getenv. Unset or unparsable
// values keep their defaults: warn logging and the stock preview cap.
func LoadConfig(getenv func(string) string) Config {
	cfg := Config{
		LogLevel:   slog.LevelWarn,
		PreviewCap: pipeline.DefaultPreviewCap,
	}

	switch strings.ToLower(strings.TrimSpace(getenv(EnvLogLevel))) {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "info":
		cfg.LogLevel = slog.LevelInfo
	case "error":
		cfg.LogLevel = slog.LevelError
	}

	if v := strings.TrimSpace(getenv(EnvPreviewCap)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PreviewCap = n
		}
	}

	cfg.PrefsPath = getenv(prefs.EnvPath)
	return cfg
}

// ConfigureLogging installs a text slog handler on w at cfg.LogLevel as the
// pipeline logger.
func ConfigureLogging(cfg Config, w io.Writer) {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel})
	pipeline.SetLogger(slog.New(h))
}

// OpenPrefs opens the preferences database at cfg.PrefsPath, or at the
// default location when it is empty.
func OpenPrefs(cfg Config) (*prefs.Store, error) {
	path := cfg.PrefsPath
	if path == "" {
		var err error
		path, err = prefs.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	store, err := prefs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open preferences: %w", err)
	}
	return store, nil
}

// pipelineOptions applies cfg over the stock pipeline tuning.
func pipelineOptions(cfg Config) pipeline.Options {
	opts := pipeline.DefaultOptions()
	if cfg.PreviewCap > 0 {
		opts.PreviewCap = cfg.PreviewCap
	}
	return opts
}

func environ() Config {
	return LoadConfig(os.Getenv)
}
