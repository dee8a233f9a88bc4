package testsupport

import (
	"path/filepath"
	"testing"

	"mealvault/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t   testing.TB
	cfg *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = base
	cfgVal.Paths.BlobDir = filepath.Join(base, "blobs")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Gemini.APIKey = "test"
	cfgVal.Sync.ProbeIntervalSeconds = 1

	builder := &configBuilder{t: t, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithGeminiKey sets the Gemini API key on the test config.
func WithGeminiKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Gemini.APIKey = key
	}
}

// WithRetryLimit bounds replay attempts on the test config.
func WithRetryLimit(limit int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sync.RetryLimit = limit
	}
}

// WithClarificationMode sets how clarified transcriptions are re-applied.
func WithClarificationMode(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Apply.ClarificationMode = mode
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return cfg.Paths.DataDir
}
