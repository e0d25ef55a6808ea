package config

const (
	defaultOutputDir         = "."
	defaultWorkDir           = "~/.local/share/stitcher/work"
	defaultLogDir            = "~/.local/share/stitcher/logs"
	defaultThreads           = 5
	defaultBatchWorkers      = 3
	defaultMaxRetries        = 3
	defaultRetryDelaySeconds = 1
	defaultBackoffFactor     = 2.0
	defaultTimeoutSeconds    = 30
	defaultLogLevel          = "info"
	defaultLogFormat         = "console"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			WorkDir:   defaultWorkDir,
			LogDir:    defaultLogDir,
		},
		Download: Download{
			Threads:           defaultThreads,
			BatchWorkers:      defaultBatchWorkers,
			MaxRetries:        defaultMaxRetries,
			RetryDelaySeconds: defaultRetryDelaySeconds,
			BackoffFactor:     defaultBackoffFactor,
			TimeoutSeconds:    defaultTimeoutSeconds,
		},
		Output: Output{
			WriteMetadata: true,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
