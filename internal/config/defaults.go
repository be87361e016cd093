package config

const (
	defaultDataDir        = "~/.local/share/consolidate"
	defaultLogDir         = "~/.local/share/consolidate/logs"
	defaultUploadDir      = "~/.local/share/consolidate/uploads"
	defaultIngestBaseURL  = "http://127.0.0.1:5000"
	defaultRequestTimeout = 60
	defaultServerBind     = "127.0.0.1:5000"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			UploadDir: defaultUploadDir,
		},
		Ingest: Ingest{
			BaseURL:        defaultIngestBaseURL,
			RequestTimeout: defaultRequestTimeout,
		},
		Server: Server{
			Bind: defaultServerBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
