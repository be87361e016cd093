package main

import (
	"bytes"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/waghmarepb/consolidate/internal/exceldata"
	"github.com/waghmarepb/consolidate/internal/logging"
	"github.com/waghmarepb/consolidate/internal/server"
	"github.com/waghmarepb/consolidate/internal/testsupport"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	serverURL  string
	dataStore  *exceldata.Store
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	base := filepath.Dir(cfg.Paths.DataDir)
	t.Setenv("HOME", base)

	dataStore, err := exceldata.Open(cfg.Server.DatabasePath)
	if err != nil {
		t.Fatalf("open data store: %v", err)
	}
	t.Cleanup(func() { _ = dataStore.Close() })

	srv := server.New(cfg, dataStore, logging.NewNop())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	cfg.Ingest.BaseURL = ts.URL

	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
upload_dir = %q

[ingest]
base_url = %q
request_timeout = 5

[server]
bind = %q
database_path = %q

[logging]
format = "console"
level = "warn"
`,
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Paths.UploadDir,
		cfg.Ingest.BaseURL,
		cfg.Server.Bind,
		cfg.Server.DatabasePath,
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return &cliTestEnv{
		baseDir:    base,
		configPath: configPath,
		serverURL:  ts.URL,
		dataStore:  dataStore,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = []string{"--config", configPath}
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestCLIAddUploadsSpreadsheet(t *testing.T) {
	env := setupCLITestEnv(t)

	path := filepath.Join(env.baseDir, "deeds.xlsx")
	testsupport.WriteSpreadsheet(t, path, "1001", "1002")

	out, _, err := runCLI(t, []string{"add", path}, env.configPath)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	requireContains(t, out, "Queued deeds.xlsx")
	requireContains(t, out, "Uploaded deeds.xlsx")

	out, _, err = runCLI(t, []string{"queue", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "deeds.xlsx")
	requireContains(t, out, "Completed")

	out, _, err = runCLI(t, []string{"data", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("data list: %v", err)
	}
	requireContains(t, out, "1001")
	requireContains(t, out, "2 records total")
}

func TestCLIAddNoUploadAndRemove(t *testing.T) {
	env := setupCLITestEnv(t)

	path := filepath.Join(env.baseDir, "later.xlsx")
	testsupport.WriteSpreadsheet(t, path, "2001")

	out, _, err := runCLI(t, []string{"add", "--no-upload", path}, env.configPath)
	if err != nil {
		t.Fatalf("add --no-upload: %v", err)
	}
	requireContains(t, out, "Queued later.xlsx")
	if strings.Contains(out, "Uploaded") {
		t.Fatalf("unexpected upload output: %q", out)
	}

	out, _, err = runCLI(t, []string{"queue", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "Pending")

	// Grab the printed short ID and remove by prefix.
	var id string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "later.xlsx") {
			fields := strings.Fields(line)
			// first field after the border rune is the ID column
			for _, field := range fields {
				if len(field) == 8 {
					id = field
					break
				}
			}
		}
	}
	if id == "" {
		t.Fatalf("could not find record ID in output: %q", out)
	}

	out, _, err = runCLI(t, []string{"queue", "remove", id}, env.configPath)
	if err != nil {
		t.Fatalf("queue remove: %v", err)
	}
	requireContains(t, out, "Removed")

	out, _, err = runCLI(t, []string{"queue", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "Queue is empty")
}

func TestCLIAddRejectsBadInput(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"add", filepath.Join(env.baseDir, "missing.xlsx")}, env.configPath); err == nil {
		t.Fatal("expected error for missing file")
	}

	notes := filepath.Join(env.baseDir, "notes.txt")
	if err := os.WriteFile(notes, []byte("text"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, _, err := runCLI(t, []string{"add", notes}, env.configPath); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestCLIAddReportsUploadFailure(t *testing.T) {
	env := setupCLITestEnv(t)

	path := filepath.Join(env.baseDir, "dup.xlsx")
	testsupport.WriteSpreadsheet(t, path, "3001")

	if _, _, err := runCLI(t, []string{"add", path}, env.configPath); err != nil {
		t.Fatalf("first add: %v", err)
	}

	// Same key columns again: the server rejects it and the failure message
	// lands on the record.
	second := filepath.Join(env.baseDir, "dup2.xlsx")
	testsupport.WriteSpreadsheet(t, second, "3001")

	out, _, err := runCLI(t, []string{"add", second}, env.configPath)
	if err == nil {
		t.Fatal("expected duplicate upload to fail")
	}
	requireContains(t, out, "Duplicate data found")

	out, _, err = runCLI(t, []string{"queue", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "Failed")

	out, _, err = runCLI(t, []string{"data", "clear", "--yes"}, env.configPath)
	if err != nil {
		t.Fatalf("data clear: %v", err)
	}
	requireContains(t, out, "Deleted 1 record(s)")

	out, _, err = runCLI(t, []string{"queue", "retry"}, env.configPath)
	if err != nil {
		t.Fatalf("queue retry: %v", err)
	}
	requireContains(t, out, "Uploaded dup2.xlsx")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	tmp := t.TempDir()
	target := filepath.Join(tmp, "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, env.configPath)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	out, _, err = runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, env.serverURL)
}
