package config

import (
	"errors"
	"fmt"
	"os"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateContainer(); err != nil {
		return err
	}
	if err := c.validateSchema(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateContainer() error {
	switch c.Container.ByteOrder {
	case "little", "big":
	default:
		return fmt.Errorf("container.byte_order must be little or big, got %q", c.Container.ByteOrder)
	}
	if c.Container.BlobThreshold < 0 {
		return errors.New("container.blob_threshold must be zero or positive")
	}
	if c.Container.LockTimeoutMS < 0 {
		return errors.New("container.lock_timeout_ms must be zero or positive")
	}
	return nil
}

func (c *Config) validateSchema() error {
	for _, file := range c.Schema.ExtensionFiles {
		info, err := os.Stat(file)
		if err != nil {
			return fmt.Errorf("schema.extension_files: %w", err)
		}
		if info.IsDir() {
			return fmt.Errorf("schema.extension_files: %s is a directory", file)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
}
