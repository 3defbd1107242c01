// Package logging configures the process-wide zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config selects level and output of the global logger
type Config struct {
	Level  string `koanf:"level"`  // trace, debug, info, warn, error (default: info)
	Pretty bool   `koanf:"pretty"` // human-readable console output instead of JSON
	// File additionally appends JSON lines to this path, the way the app log
	// is kept for bug reports
	File string `koanf:"file"`
}

// Setup installs the global logger and returns a func that releases the
// log file, if one was opened.
func Setup(cfg Config, stderr io.Writer) (func() error, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}
	zerolog.SetGlobalLevel(level)

	var console io.Writer = stderr
	if cfg.Pretty {
		console = zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.Kitchen}
	}

	closer := func() error { return nil }
	out := console
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = zerolog.MultiLevelWriter(console, f)
		closer = f.Close
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return closer, nil
}
