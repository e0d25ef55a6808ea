package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDownload(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.WorkDir == "" {
		return errors.New("paths.work_dir must be set")
	}
	return nil
}

func (c *Config) validateDownload() error {
	if c.Download.Proxy != "" {
		parsed, err := url.Parse(c.Download.Proxy)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("download.proxy %q is not a valid URL", c.Download.Proxy)
		}
	}
	if c.Download.ProxyMetadataOnly && c.Download.Proxy == "" {
		return errors.New("download.proxy_metadata_only requires download.proxy")
	}
	return nil
}

func (c *Config) validateOutput() error {
	switch c.Output.TargetStream {
	case "", "audio", "video":
	default:
		return fmt.Errorf("output.target_stream must be empty, \"audio\", or \"video\"; got %q", c.Output.TargetStream)
	}
	if c.Output.KeepSegments && c.Output.AggressiveClean {
		return errors.New("output.keep_segments and output.aggressive_clean are mutually exclusive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not recognized", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not recognized", c.Logging.Format)
	}
	return nil
}
