package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"splice/internal/aaf"
	"splice/internal/config"
	"splice/internal/logging"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// loggerValue returns the configured logger, or a no-op logger when the
// config could not be loaded or the logger could not be built.
func (c *commandContext) loggerValue() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger
}

// fileOptions translates the config into aaf options.
func (c *commandContext) fileOptions() ([]aaf.Option, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	opts, err := aaf.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return append(opts, aaf.WithLogger(c.loggerValue())), nil
}

// openFile opens path with the configured options. Callers close the file.
func (c *commandContext) openFile(cmd *cobra.Command, path string, mode aaf.Mode) (*aaf.File, error) {
	opts, err := c.fileOptions()
	if err != nil {
		return nil, err
	}
	return aaf.OpenContext(cmd.Context(), path, mode, opts...)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
