package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// fileConfig mirrors the TOML tuning file:
//
//	[pipeline]
//	threshold = 0.75
//	window_days = 30
//	max_seq_len = 256
//	page_text = "placeholder"
//
//	[wiki]
//	api_url = "https://de.wikipedia.org/w/api.php"
//	base_url = "https://de.wikipedia.org"
//	user_agent = "my-bot/1.0"
//	rate = 5.0
//	timeout = "10s"
type fileConfig struct {
	Pipeline struct {
		Threshold  *float64 `toml:"threshold"`
		WindowDays *int     `toml:"window_days"`
		MaxSeqLen  *int     `toml:"max_seq_len"`
		PageText   string   `toml:"page_text"`
	} `toml:"pipeline"`
	Wiki struct {
		APIURL    string   `toml:"api_url"`
		BaseURL   string   `toml:"base_url"`
		UserAgent string   `toml:"user_agent"`
		Rate      *float64 `toml:"rate"`
		Timeout   string   `toml:"timeout"`
	} `toml:"wiki"`
}

// loadFile overlays the settings present in the TOML file at path onto p.
func loadFile(path string, p *Pipeline) error {
	var fc fileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("config file %s: unknown key %q", path, undecoded[0].String())
	}

	if fc.Pipeline.Threshold != nil {
		p.Threshold = *fc.Pipeline.Threshold
	}
	if fc.Pipeline.WindowDays != nil {
		p.Window = time.Duration(*fc.Pipeline.WindowDays) * 24 * time.Hour
	}
	if fc.Pipeline.MaxSeqLen != nil {
		p.MaxSeqLen = *fc.Pipeline.MaxSeqLen
	}
	if fc.Pipeline.PageText != "" {
		p.PageText = fc.Pipeline.PageText
	}
	if fc.Wiki.APIURL != "" {
		p.WikiAPIURL = fc.Wiki.APIURL
	}
	if fc.Wiki.BaseURL != "" {
		p.WikiBaseURL = fc.Wiki.BaseURL
	}
	if fc.Wiki.UserAgent != "" {
		p.UserAgent = fc.Wiki.UserAgent
	}
	if fc.Wiki.Rate != nil {
		p.WikiRate = *fc.Wiki.Rate
	}
	if fc.Wiki.Timeout != "" {
		d, err := time.ParseDuration(fc.Wiki.Timeout)
		if err != nil {
			return fmt.Errorf("config file %s: wiki.timeout: %w", path, err)
		}
		p.WikiTimeout = d
	}
	return nil
}
