package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/waghmarepb/consolidate/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.UploadDir = filepath.Join(base, "uploads")
	cfgVal.Server.Bind = "127.0.0.1:0"
	cfgVal.Server.DatabasePath = filepath.Join(base, "data", "ingest.db")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithBaseURL points the ingest client at a test server.
func WithBaseURL(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ingest.BaseURL = baseURL
	}
}

// WithBind overrides the server listen address on the test config.
func WithBind(bind string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.Bind = bind
	}
}
