package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValidAfterNormalize(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Server.DatabasePath == "" {
		t.Fatal("expected server database path to default under data_dir")
	}
	if !filepath.IsAbs(cfg.Paths.DataDir) {
		t.Fatalf("data_dir not expanded: %q", cfg.Paths.DataDir)
	}
}

func TestLoadParsesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + dir + `/data"
log_dir = "` + dir + `/logs"
upload_dir = "` + dir + `/uploads"

[ingest]
base_url = "https://ingest.example.com/"
request_timeout = 15

[logging]
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved = %q exists = %v", resolved, exists)
	}
	if cfg.Ingest.BaseURL != "https://ingest.example.com" {
		t.Fatalf("base URL not normalized: %q", cfg.Ingest.BaseURL)
	}
	if cfg.Ingest.RequestTimeout != 15 {
		t.Fatalf("request_timeout = %d", cfg.Ingest.RequestTimeout)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("logging level = %q", cfg.Logging.Level)
	}
	if cfg.QueueDatabasePath() != filepath.Join(cfg.Paths.DataDir, "queue.db") {
		t.Fatalf("queue database path = %q", cfg.QueueDatabasePath())
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.toml")
	cfg, _, exists, err := Load(missing)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if cfg.Ingest.BaseURL != defaultIngestBaseURL {
		t.Fatalf("base URL = %q", cfg.Ingest.BaseURL)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing base url", func(c *Config) { c.Ingest.BaseURL = "" }, "ingest.base_url"},
		{"non-http base url", func(c *Config) { c.Ingest.BaseURL = "ftp://x" }, "http(s)"},
		{"negative timeout", func(c *Config) { c.Ingest.RequestTimeout = -1 }, "request_timeout"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"missing bind", func(c *Config) { c.Server.Bind = " " }, "server.bind"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			if err := cfg.normalize(); err != nil {
				t.Fatalf("normalize: %v", err)
			}
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[ingest]") {
		t.Fatal("sample config missing [ingest] section")
	}
}
