package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable. The Gemini API key is
// deliberately not required here; commands that never reach the service must
// work without one, and the client reports a specific error when it is
// missing.
func (c *Config) Validate() error {
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateApply(); err != nil {
		return err
	}
	if err := c.validateBlobs(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateSync() error {
	if c.Sync.ProbeURL == "" {
		return errors.New("sync.probe_url must be set")
	}
	if c.Sync.ProbeIntervalSeconds <= 0 {
		return errors.New("sync.probe_interval_seconds must be positive")
	}
	if c.Sync.ProbeTimeoutSeconds <= 0 {
		return errors.New("sync.probe_timeout_seconds must be positive")
	}
	if c.Sync.RetryLimit < 0 {
		return errors.New("sync.retry_limit must not be negative")
	}
	return nil
}

func (c *Config) validateApply() error {
	switch c.Apply.ClarificationMode {
	case "append", "replace":
		return nil
	default:
		return fmt.Errorf("apply.clarification_mode must be \"append\" or \"replace\", got %q", c.Apply.ClarificationMode)
	}
}

func (c *Config) validateBlobs() error {
	if c.Blobs.RetentionDays < 0 {
		return errors.New("blobs.retention_days must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}
