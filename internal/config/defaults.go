package config

const (
	defaultDataDir           = "~/.local/share/mealvault"
	defaultGeminiBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel       = "gemini-flash-latest"
	defaultGeminiTimeout     = 30
	defaultProbeURL          = "https://www.gstatic.com/generate_204"
	defaultProbeInterval     = 30
	defaultProbeTimeout      = 5
	defaultClarificationMode = "append"
	defaultBlobRetentionDays = 30
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
		},
		Gemini: Gemini{
			BaseURL:        defaultGeminiBaseURL,
			Model:          defaultGeminiModel,
			TimeoutSeconds: defaultGeminiTimeout,
		},
		Sync: Sync{
			ProbeURL:             defaultProbeURL,
			ProbeIntervalSeconds: defaultProbeInterval,
			ProbeTimeoutSeconds:  defaultProbeTimeout,
			RetryLimit:           0,
		},
		Apply: Apply{
			ClarificationMode: defaultClarificationMode,
		},
		Blobs: Blobs{
			RetentionDays: defaultBlobRetentionDays,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
