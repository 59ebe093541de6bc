package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var allEnvVars = []string{
	"EVENTTRACE_DATABASE_URL", "EVENTTRACE_MODEL_PATH", "EVENTTRACE_MODEL_DOWNLOAD", "EVENTTRACE_GRPC_ADDR",
	"EVENTTRACE_HTTP_ADDR", "EVENTTRACE_NATS_URL", "EVENTTRACE_AUTH_TOKEN",
	"EVENTTRACE_CONFIG_FILE",
	"EVENTTRACE_THRESHOLD", "EVENTTRACE_WINDOW_DAYS", "EVENTTRACE_MAX_SEQ_LEN",
	"EVENTTRACE_PAGE_TEXT", "EVENTTRACE_WIKI_API_URL", "EVENTTRACE_WIKI_BASE_URL",
	"EVENTTRACE_USER_AGENT", "EVENTTRACE_WIKI_RATE", "EVENTTRACE_WIKI_TIMEOUT",
	"EVENTTRACE_SYNC_INTERVAL", "EVENTTRACE_SYNC_S3_BUCKET", "EVENTTRACE_SYNC_S3_ENDPOINT",
	"EVENTTRACE_SYNC_S3_REGION", "EVENTTRACE_SYNC_S3_KEY", "EVENTTRACE_SYNC_GIT_REPO",
	"EVENTTRACE_SYNC_GIT_FILE", "EVENTTRACE_SYNC_GIT_BRANCH",
}

func clearAllEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvVars {
		t.Setenv(key, "")
	}
}

// setRequired sets the two variables Load cannot do without.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("EVENTTRACE_DATABASE_URL", "postgres://localhost/eventtrace")
	t.Setenv("EVENTTRACE_MODEL_PATH", "/models/bert-base-uncased")
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "eventtrace.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	for _, tc := range []struct {
		name         string
		env          map[string]string
		wantErr      string
		wantGRPCAddr string
		wantHTTPAddr string
		wantNATSURL  string
	}{
		{
			name:    "MissingDatabaseURL",
			env:     map[string]string{"EVENTTRACE_MODEL_PATH": "/m"},
			wantErr: "EVENTTRACE_DATABASE_URL",
		},
		{
			name:    "MissingModelPath",
			env:     map[string]string{"EVENTTRACE_DATABASE_URL": "postgres://localhost/eventtrace"},
			wantErr: "EVENTTRACE_MODEL_PATH",
		},
		{
			name: "DefaultAddresses",
			env: map[string]string{
				"EVENTTRACE_DATABASE_URL": "postgres://localhost/eventtrace",
				"EVENTTRACE_MODEL_PATH":   "/m",
			},
			wantGRPCAddr: ":9090",
			wantHTTPAddr: ":8080",
		},
		{
			name: "CustomAddresses",
			env: map[string]string{
				"EVENTTRACE_DATABASE_URL": "postgres://db:5432/eventtrace",
				"EVENTTRACE_MODEL_PATH":   "/m",
				"EVENTTRACE_GRPC_ADDR":    ":5050",
				"EVENTTRACE_HTTP_ADDR":    ":3000",
				"EVENTTRACE_NATS_URL":     "nats://localhost:4222",
			},
			wantGRPCAddr: ":5050",
			wantHTTPAddr: ":3000",
			wantNATSURL:  "nats://localhost:4222",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clearAllEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected error mentioning %s, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.DatabaseURL != tc.env["EVENTTRACE_DATABASE_URL"] {
				t.Errorf("DatabaseURL = %q, want %q", cfg.DatabaseURL, tc.env["EVENTTRACE_DATABASE_URL"])
			}
			if cfg.GRPCAddr != tc.wantGRPCAddr {
				t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, tc.wantGRPCAddr)
			}
			if cfg.HTTPAddr != tc.wantHTTPAddr {
				t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, tc.wantHTTPAddr)
			}
			if cfg.NATSURL != tc.wantNATSURL {
				t.Errorf("NATSURL = %q, want %q", cfg.NATSURL, tc.wantNATSURL)
			}
		})
	}
}

func TestLoadModelDownload(t *testing.T) {
	for _, tc := range []struct {
		value   string
		want    bool
		wantErr bool
	}{
		{"", false, false},
		{"true", true, false},
		{"0", false, false},
		{"sometimes", false, true},
	} {
		t.Run(tc.value, func(t *testing.T) {
			clearAllEnv(t)
			setRequired(t)
			t.Setenv("EVENTTRACE_MODEL_DOWNLOAD", tc.value)

			cfg, err := Load()
			if tc.wantErr {
				if err == nil || !strings.Contains(err.Error(), "EVENTTRACE_MODEL_DOWNLOAD") {
					t.Fatalf("expected EVENTTRACE_MODEL_DOWNLOAD error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.ModelFetch != tc.want {
				t.Errorf("ModelFetch = %v, want %v", cfg.ModelFetch, tc.want)
			}
		})
	}
}

func TestLoadPipelineDefaults(t *testing.T) {
	clearAllEnv(t)
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Pipeline != DefaultPipeline() {
		t.Errorf("Pipeline = %+v, want defaults %+v", cfg.Pipeline, DefaultPipeline())
	}
	if cfg.Pipeline.Threshold != 0.8 || cfg.Pipeline.Window != 90*24*time.Hour {
		t.Errorf("threshold=%v window=%v", cfg.Pipeline.Threshold, cfg.Pipeline.Window)
	}
}

func TestLoadPipelineEnv(t *testing.T) {
	clearAllEnv(t)
	setRequired(t)
	t.Setenv("EVENTTRACE_THRESHOLD", "0.65")
	t.Setenv("EVENTTRACE_WINDOW_DAYS", "30")
	t.Setenv("EVENTTRACE_MAX_SEQ_LEN", "128")
	t.Setenv("EVENTTRACE_PAGE_TEXT", "placeholder")
	t.Setenv("EVENTTRACE_WIKI_API_URL", "http://wiki.local/w/api.php")
	t.Setenv("EVENTTRACE_WIKI_BASE_URL", "http://wiki.local")
	t.Setenv("EVENTTRACE_USER_AGENT", "test-agent")
	t.Setenv("EVENTTRACE_WIKI_RATE", "-1")
	t.Setenv("EVENTTRACE_WIKI_TIMEOUT", "5s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Pipeline{
		Threshold:   0.65,
		Window:      30 * 24 * time.Hour,
		MaxSeqLen:   128,
		PageText:    PageTextPlaceholder,
		WikiAPIURL:  "http://wiki.local/w/api.php",
		WikiBaseURL: "http://wiki.local",
		UserAgent:   "test-agent",
		WikiRate:    -1,
		WikiTimeout: 5 * time.Second,
	}
	if cfg.Pipeline != want {
		t.Errorf("Pipeline = %+v, want %+v", cfg.Pipeline, want)
	}
}

func TestLoadPipelineFile(t *testing.T) {
	clearAllEnv(t)
	setRequired(t)
	t.Setenv("EVENTTRACE_CONFIG_FILE", writeConfigFile(t, `
[pipeline]
threshold = 0.7
window_days = 14
page_text = "placeholder"

[wiki]
base_url = "https://de.wikipedia.org"
timeout = "12s"
`))
	// Env wins over the file.
	t.Setenv("EVENTTRACE_WINDOW_DAYS", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := cfg.Pipeline
	if p.Threshold != 0.7 {
		t.Errorf("Threshold = %v, want 0.7", p.Threshold)
	}
	if p.Window != 7*24*time.Hour {
		t.Errorf("Window = %v, want 7 days", p.Window)
	}
	if p.PageText != PageTextPlaceholder {
		t.Errorf("PageText = %q", p.PageText)
	}
	if p.WikiBaseURL != "https://de.wikipedia.org" || p.WikiTimeout != 12*time.Second {
		t.Errorf("wiki settings = %q %v", p.WikiBaseURL, p.WikiTimeout)
	}
	if p.MaxSeqLen != 512 {
		t.Errorf("MaxSeqLen = %d, want untouched default 512", p.MaxSeqLen)
	}
}

func TestLoadPipelineErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		env  map[string]string
		file string
	}{
		{name: "BadThreshold", env: map[string]string{"EVENTTRACE_THRESHOLD": "high"}},
		{name: "ThresholdOutOfRange", env: map[string]string{"EVENTTRACE_THRESHOLD": "1.5"}},
		{name: "ZeroWindow", env: map[string]string{"EVENTTRACE_WINDOW_DAYS": "0"}},
		{name: "TinySeqLen", env: map[string]string{"EVENTTRACE_MAX_SEQ_LEN": "2"}},
		{name: "UnknownPageText", env: map[string]string{"EVENTTRACE_PAGE_TEXT": "bert"}},
		{name: "BadTimeout", env: map[string]string{"EVENTTRACE_WIKI_TIMEOUT": "soon"}},
		{name: "MissingFile", env: map[string]string{"EVENTTRACE_CONFIG_FILE": "/nonexistent/eventtrace.toml"}},
		{name: "UnknownKey", file: "[pipeline]\nthreshhold = 0.5\n"},
		{name: "BadFileTimeout", file: "[wiki]\ntimeout = \"forever\"\n"},
		{name: "MalformedFile", file: "[pipeline\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clearAllEnv(t)
			setRequired(t)
			if tc.file != "" {
				t.Setenv("EVENTTRACE_CONFIG_FILE", writeConfigFile(t, tc.file))
			}
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadSyncDefaults(t *testing.T) {
	clearAllEnv(t)
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SyncInterval != 10*time.Minute {
		t.Errorf("SyncInterval = %v, want 10m", cfg.SyncInterval)
	}
	if cfg.SyncS3Region != "us-east-1" {
		t.Errorf("SyncS3Region = %q, want %q", cfg.SyncS3Region, "us-east-1")
	}
	if cfg.SyncS3Key != "eventtrace/export.jsonl" {
		t.Errorf("SyncS3Key = %q", cfg.SyncS3Key)
	}
	if cfg.SyncGitFile != "eventtrace.jsonl" {
		t.Errorf("SyncGitFile = %q", cfg.SyncGitFile)
	}
	if cfg.SyncGitBranch != "main" {
		t.Errorf("SyncGitBranch = %q, want %q", cfg.SyncGitBranch, "main")
	}
}

func TestLoadSyncCustom(t *testing.T) {
	clearAllEnv(t)
	setRequired(t)
	t.Setenv("EVENTTRACE_SYNC_INTERVAL", "1h")
	t.Setenv("EVENTTRACE_SYNC_S3_BUCKET", "my-bucket")
	t.Setenv("EVENTTRACE_SYNC_S3_ENDPOINT", "http://minio:9000")
	t.Setenv("EVENTTRACE_SYNC_GIT_REPO", "/tmp/repo")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SyncInterval != time.Hour {
		t.Errorf("SyncInterval = %v, want 1h", cfg.SyncInterval)
	}
	if cfg.SyncS3Bucket != "my-bucket" || cfg.SyncS3Endpoint != "http://minio:9000" {
		t.Errorf("S3 = %q %q", cfg.SyncS3Bucket, cfg.SyncS3Endpoint)
	}
	if cfg.SyncGitRepo != "/tmp/repo" {
		t.Errorf("SyncGitRepo = %q", cfg.SyncGitRepo)
	}
}

func TestLoadSyncInvalidInterval(t *testing.T) {
	clearAllEnv(t)
	setRequired(t)
	t.Setenv("EVENTTRACE_SYNC_INTERVAL", "not-a-duration")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid EVENTTRACE_SYNC_INTERVAL")
	}
}

func TestLoadSyncDisabled(t *testing.T) {
	clearAllEnv(t)
	setRequired(t)
	t.Setenv("EVENTTRACE_SYNC_INTERVAL", "0s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SyncInterval != 0 {
		t.Errorf("SyncInterval = %v, want 0 (disabled)", cfg.SyncInterval)
	}
}

func TestEnvOrDefault(t *testing.T) {
	for _, tc := range []struct {
		name     string
		key      string
		envVal   string
		fallback string
		want     string
	}{
		{"EmptyUsesDefault", "TEST_ENVDEFAULT_EMPTY", "", "default-val", "default-val"},
		{"SetUsesEnv", "TEST_ENVDEFAULT_SET", "custom", "default-val", "custom"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.envVal)
			got := envOrDefault(tc.key, tc.fallback)
			if got != tc.want {
				t.Errorf("envOrDefault(%q, %q) = %q, want %q", tc.key, tc.fallback, got, tc.want)
			}
		})
	}
}
