package main

import (
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"stitcher/internal/client"
	"stitcher/internal/config"
	"stitcher/internal/logging"
	"stitcher/internal/progress"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) buildLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})
}

func (c *commandContext) buildSession(cfg *config.Config) (*client.Session, error) {
	return client.New(client.Options{
		Proxy:             cfg.Download.Proxy,
		ProxyMetadataOnly: cfg.Download.ProxyMetadataOnly,
		MaxRetries:        cfg.Download.MaxRetries,
		RetryDelay:        time.Duration(cfg.Download.RetryDelaySeconds) * time.Second,
		BackoffFactor:     cfg.Download.BackoffFactor,
		Timeout:           time.Duration(cfg.Download.TimeoutSeconds) * time.Second,
	})
}

// buildReporter returns live progress bars on a terminal and a no-op
// reporter when output is piped.
func (c *commandContext) buildReporter() progress.Reporter {
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return progress.NewBars(os.Stderr)
	}
	return progress.NewNop()
}
