package config

import "strings"

func (c *Config) normalize() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return err
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}

	c.Download.Proxy = strings.TrimSpace(c.Download.Proxy)
	c.Output.TargetStream = strings.ToLower(strings.TrimSpace(c.Output.TargetStream))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))

	if c.Download.Threads <= 0 {
		c.Download.Threads = defaultThreads
	}
	if c.Download.BatchWorkers <= 0 {
		c.Download.BatchWorkers = defaultBatchWorkers
	}
	if c.Download.MaxRetries < 0 {
		c.Download.MaxRetries = defaultMaxRetries
	}
	if c.Download.RetryDelaySeconds <= 0 {
		c.Download.RetryDelaySeconds = defaultRetryDelaySeconds
	}
	if c.Download.BackoffFactor <= 1 {
		c.Download.BackoffFactor = defaultBackoffFactor
	}
	if c.Download.TimeoutSeconds <= 0 {
		c.Download.TimeoutSeconds = defaultTimeoutSeconds
	}
	return nil
}
