package logging

import (
	"log/slog"
	"path/filepath"

	"mealvault/internal/config"
)

// NewFromConfig builds a logger from the logging section of the config,
// writing to stderr and to mealvault.log under the configured log directory.
// Construction failures fall back to a stderr-only console logger rather
// than blocking the command.
func NewFromConfig(cfg *config.Config) *slog.Logger {
	opts := Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr"},
	}
	if cfg.Paths.LogDir != "" {
		opts.OutputPaths = append(opts.OutputPaths, filepath.Join(cfg.Paths.LogDir, "mealvault.log"))
	}
	logger, err := New(opts)
	if err != nil {
		fallback, fallbackErr := New(Options{OutputPaths: []string{"stderr"}})
		if fallbackErr != nil {
			return NewNop()
		}
		return fallback
	}
	return logger
}
