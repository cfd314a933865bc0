package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// normalize expands paths and canonicalizes enumerations. Relative schema
// files resolve against baseDir, the directory holding the config file.
func (c *Config) normalize(baseDir string) error {
	if err := c.normalizeContainer(); err != nil {
		return err
	}
	if err := c.normalizeSchema(baseDir); err != nil {
		return err
	}
	if err := c.normalizeCatalog(); err != nil {
		return err
	}
	return c.normalizeLogging()
}

func (c *Config) normalizeContainer() error {
	c.Container.ByteOrder = strings.ToLower(strings.TrimSpace(c.Container.ByteOrder))
	switch c.Container.ByteOrder {
	case "", "little", "le", "little-endian":
		c.Container.ByteOrder = "little"
	case "big", "be", "big-endian":
		c.Container.ByteOrder = "big"
	}
	return nil
}

func (c *Config) normalizeSchema(baseDir string) error {
	files := make([]string, 0, len(c.Schema.ExtensionFiles))
	seen := make(map[string]struct{}, len(c.Schema.ExtensionFiles))
	for _, file := range c.Schema.ExtensionFiles {
		file = strings.TrimSpace(file)
		if file == "" {
			continue
		}
		if !strings.HasPrefix(file, "~") && !filepath.IsAbs(file) && baseDir != "" {
			file = filepath.Join(baseDir, file)
		}
		expanded, err := expandPath(file)
		if err != nil {
			return fmt.Errorf("schema.extension_files: %w", err)
		}
		if _, dup := seen[expanded]; dup {
			continue
		}
		seen[expanded] = struct{}{}
		files = append(files, expanded)
	}
	c.Schema.ExtensionFiles = files
	return nil
}

func (c *Config) normalizeCatalog() error {
	if strings.TrimSpace(c.Catalog.Path) == "" {
		c.Catalog.Path = defaultCatalogPath
	}
	var err error
	if c.Catalog.Path, err = expandPath(c.Catalog.Path); err != nil {
		return fmt.Errorf("catalog.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	if value, ok := os.LookupEnv("SPLICE_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.Dir) == "" {
		c.Logging.Dir = defaultLogDir
	}
	var err error
	if c.Logging.Dir, err = expandPath(c.Logging.Dir); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	return nil
}
