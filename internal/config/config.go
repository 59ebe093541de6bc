package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Page text sources for the relevance gate.
const (
	PageTextAPI         = "api"
	PageTextPlaceholder = "placeholder"
)

type Config struct {
	DatabaseURL string // EVENTTRACE_DATABASE_URL (required)
	ModelPath   string // EVENTTRACE_MODEL_PATH (required; BERT model directory, e.g. models/bert-base-uncased)
	ModelFetch  bool   // EVENTTRACE_MODEL_DOWNLOAD (fetch a missing model from the hub; default false)
	GRPCAddr    string // EVENTTRACE_GRPC_ADDR (default ":9090")
	HTTPAddr    string // EVENTTRACE_HTTP_ADDR (default ":8080")
	NATSURL     string // EVENTTRACE_NATS_URL (optional, empty = no events)
	AuthToken   string // EVENTTRACE_AUTH_TOKEN (optional, empty = auth disabled)
	ConfigFile  string // EVENTTRACE_CONFIG_FILE (optional TOML pipeline tuning)

	Pipeline Pipeline

	// Sync settings
	SyncInterval   time.Duration // EVENTTRACE_SYNC_INTERVAL (default 10m; 0 = disabled)
	SyncS3Bucket   string        // EVENTTRACE_SYNC_S3_BUCKET (enables S3 when set)
	SyncS3Endpoint string        // EVENTTRACE_SYNC_S3_ENDPOINT (custom endpoint for MinIO)
	SyncS3Region   string        // EVENTTRACE_SYNC_S3_REGION (default "us-east-1")
	SyncS3Key      string        // EVENTTRACE_SYNC_S3_KEY (default "eventtrace/export.jsonl")
	SyncGitRepo    string        // EVENTTRACE_SYNC_GIT_REPO (enables git when set; path to clone)
	SyncGitFile    string        // EVENTTRACE_SYNC_GIT_FILE (default "eventtrace.jsonl")
	SyncGitBranch  string        // EVENTTRACE_SYNC_GIT_BRANCH (default "main")
}

// Pipeline holds the correlation knobs. Each can be set in the TOML file and
// overridden by its environment variable.
type Pipeline struct {
	Threshold   float64       // EVENTTRACE_THRESHOLD (default 0.8; relevance needs score > threshold)
	Window      time.Duration // EVENTTRACE_WINDOW_DAYS (default 90)
	MaxSeqLen   int           // EVENTTRACE_MAX_SEQ_LEN (default 512)
	PageText    string        // EVENTTRACE_PAGE_TEXT ("api" or "placeholder"; default "api")
	WikiAPIURL  string        // EVENTTRACE_WIKI_API_URL (default English Wikipedia)
	WikiBaseURL string        // EVENTTRACE_WIKI_BASE_URL (default "https://en.wikipedia.org")
	UserAgent   string        // EVENTTRACE_USER_AGENT
	WikiRate    float64       // EVENTTRACE_WIKI_RATE (requests/second, default 10; negative = unlimited)
	WikiTimeout time.Duration // EVENTTRACE_WIKI_TIMEOUT (default 30s)
}

// DefaultPipeline returns the pipeline settings used when nothing is configured.
func DefaultPipeline() Pipeline {
	return Pipeline{
		Threshold:   0.8,
		Window:      90 * 24 * time.Hour,
		MaxSeqLen:   512,
		PageText:    PageTextAPI,
		WikiAPIURL:  "https://en.wikipedia.org/w/api.php",
		WikiBaseURL: "https://en.wikipedia.org",
		UserAgent:   "eventtrace/1.0 (+https://github.com/alfredjeanlab/eventtrace)",
		WikiRate:    10,
		WikiTimeout: 30 * time.Second,
	}
}

func Load() (*Config, error) {
	c := &Config{
		DatabaseURL:    os.Getenv("EVENTTRACE_DATABASE_URL"),
		ModelPath:      os.Getenv("EVENTTRACE_MODEL_PATH"),
		GRPCAddr:       envOrDefault("EVENTTRACE_GRPC_ADDR", ":9090"),
		HTTPAddr:       envOrDefault("EVENTTRACE_HTTP_ADDR", ":8080"),
		NATSURL:        os.Getenv("EVENTTRACE_NATS_URL"),
		AuthToken:      os.Getenv("EVENTTRACE_AUTH_TOKEN"),
		ConfigFile:     os.Getenv("EVENTTRACE_CONFIG_FILE"),
		Pipeline:       DefaultPipeline(),
		SyncS3Bucket:   os.Getenv("EVENTTRACE_SYNC_S3_BUCKET"),
		SyncS3Endpoint: os.Getenv("EVENTTRACE_SYNC_S3_ENDPOINT"),
		SyncS3Region:   envOrDefault("EVENTTRACE_SYNC_S3_REGION", "us-east-1"),
		SyncS3Key:      envOrDefault("EVENTTRACE_SYNC_S3_KEY", "eventtrace/export.jsonl"),
		SyncGitRepo:    os.Getenv("EVENTTRACE_SYNC_GIT_REPO"),
		SyncGitFile:    envOrDefault("EVENTTRACE_SYNC_GIT_FILE", "eventtrace.jsonl"),
		SyncGitBranch:  envOrDefault("EVENTTRACE_SYNC_GIT_BRANCH", "main"),
	}
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("EVENTTRACE_DATABASE_URL is required")
	}
	if c.ModelPath == "" {
		return nil, fmt.Errorf("EVENTTRACE_MODEL_PATH is required")
	}
	if v := os.Getenv("EVENTTRACE_MODEL_DOWNLOAD"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("EVENTTRACE_MODEL_DOWNLOAD: %w", err)
		}
		c.ModelFetch = b
	}

	intervalStr := envOrDefault("EVENTTRACE_SYNC_INTERVAL", "10m")
	d, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("EVENTTRACE_SYNC_INTERVAL: %w", err)
	}
	c.SyncInterval = d

	if c.ConfigFile != "" {
		if err := loadFile(c.ConfigFile, &c.Pipeline); err != nil {
			return nil, err
		}
	}
	if err := applyPipelineEnv(&c.Pipeline); err != nil {
		return nil, err
	}
	if err := c.Pipeline.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func applyPipelineEnv(p *Pipeline) error {
	if v := os.Getenv("EVENTTRACE_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("EVENTTRACE_THRESHOLD: %w", err)
		}
		p.Threshold = f
	}
	if v := os.Getenv("EVENTTRACE_WINDOW_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("EVENTTRACE_WINDOW_DAYS: %w", err)
		}
		p.Window = time.Duration(n) * 24 * time.Hour
	}
	if v := os.Getenv("EVENTTRACE_MAX_SEQ_LEN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("EVENTTRACE_MAX_SEQ_LEN: %w", err)
		}
		p.MaxSeqLen = n
	}
	if v := os.Getenv("EVENTTRACE_WIKI_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("EVENTTRACE_WIKI_RATE: %w", err)
		}
		p.WikiRate = f
	}
	if v := os.Getenv("EVENTTRACE_WIKI_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("EVENTTRACE_WIKI_TIMEOUT: %w", err)
		}
		p.WikiTimeout = d
	}
	p.PageText = envOrDefault("EVENTTRACE_PAGE_TEXT", p.PageText)
	p.WikiAPIURL = envOrDefault("EVENTTRACE_WIKI_API_URL", p.WikiAPIURL)
	p.WikiBaseURL = envOrDefault("EVENTTRACE_WIKI_BASE_URL", p.WikiBaseURL)
	p.UserAgent = envOrDefault("EVENTTRACE_USER_AGENT", p.UserAgent)
	return nil
}

// Validate rejects settings the pipeline cannot run with.
func (p Pipeline) Validate() error {
	if p.Threshold < -1 || p.Threshold >= 1 {
		return fmt.Errorf("threshold %v must be in [-1, 1)", p.Threshold)
	}
	if p.Window < 24*time.Hour {
		return fmt.Errorf("window %v must be at least one day", p.Window)
	}
	if p.MaxSeqLen < 3 {
		return fmt.Errorf("max_seq_len %d must be at least 3", p.MaxSeqLen)
	}
	if p.PageText != PageTextAPI && p.PageText != PageTextPlaceholder {
		return fmt.Errorf("page_text %q must be %q or %q", p.PageText, PageTextAPI, PageTextPlaceholder)
	}
	if p.WikiTimeout <= 0 {
		return fmt.Errorf("wiki timeout %v must be positive", p.WikiTimeout)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
