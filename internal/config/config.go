package config

import (
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

const appName = "jpmon"

// Source is a page or feed the scraper collects items from.
type Source struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	Type          string `yaml:"type"` // "html", "rss" or "atom"
	URL           string `yaml:"url"`
	Category      string `yaml:"category,omitempty"`
	ItemSelector  string `yaml:"item_selector,omitempty"`
	TitleSelector string `yaml:"title_selector,omitempty"`
	LinkSelector  string `yaml:"link_selector,omitempty"`
	Enabled       bool   `yaml:"enabled"`
}

// Label is the display name, falling back to the id.
func (s Source) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

type Config struct {
	Dataset         string   `yaml:"dataset"`
	RefreshDelay    string   `yaml:"refresh_delay"`
	StatusLabel     *string  `yaml:"status_label,omitempty"`
	Listen          string   `yaml:"listen"`
	Retention       string   `yaml:"retention"`
	RefreshInterval string   `yaml:"refresh_interval"`
	ScrapeSchedule  string   `yaml:"scrape_schedule"`
	RateLimit       string   `yaml:"rate_limit"`
	Sources         []Source `yaml:"sources"`
}

// RefreshDelayDuration is the artificial wait of the dashboard refresh action.
func (c *Config) RefreshDelayDuration() time.Duration {
	d, err := time.ParseDuration(c.RefreshDelay)
	if err != nil || d < 0 {
		return 600 * time.Millisecond
	}
	return d
}

// Label returns the status line suffix. An explicit empty value disables it.
func (c *Config) Label() string {
	if c.StatusLabel == nil {
		return "sample data"
	}
	return *c.StatusLabel
}

func (c *Config) ListenAddr() string {
	if c.Listen == "" {
		return ":8080"
	}
	return c.Listen
}

// RefreshDuration is how stale the item store may get before serve scrapes on startup.
func (c *Config) RefreshDuration() time.Duration {
	d, err := ParseDays(c.RefreshInterval)
	if err != nil {
		return 12 * time.Hour
	}
	return d
}

func (c *Config) RetentionDuration() time.Duration {
	if c.Retention == "" {
		return 90 * 24 * time.Hour
	}
	d, err := ParseDays(c.Retention)
	if err != nil {
		return 90 * 24 * time.Hour
	}
	return d
}

// RateLimitDuration is the pause between two source fetches.
func (c *Config) RateLimitDuration() time.Duration {
	d, err := time.ParseDuration(c.RateLimit)
	if err != nil || d < 0 {
		return 1200 * time.Millisecond
	}
	return d
}

// ParseDays extends time.ParseDuration with an "Nd" day syntax.
func ParseDays(s string) (time.Duration, error) {
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err == nil {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}

func (c *Config) EnabledSources() []Source {
	var out []Source
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

func CachePath() string {
	return filepath.Join(xdg.CacheHome, appName, "items.db")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

// Load reads the config at path (or the default location), writing the
// embedded defaults there on first run. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	defaults, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Non-fatal: the embedded defaults still apply.
			_ = writeDefaults(path)
			applyEnv(defaults)
			return defaults, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	applyEnv(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("JPMON_DATASET")); v != "" {
		cfg.Dataset = v
	}
	if v := strings.TrimSpace(os.Getenv("JPMON_LISTEN")); v != "" {
		cfg.Listen = v
	}
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}

func validate(cfg *Config) error {
	validTypes := map[string]bool{"html": true, "rss": true, "atom": true}
	seen := make(map[string]bool)
	for i, s := range cfg.Sources {
		if s.ID == "" {
			return fmt.Errorf("source %d: id is required", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("source %q: duplicate id", s.ID)
		}
		seen[s.ID] = true
		if s.URL == "" {
			return fmt.Errorf("source %q: url is required", s.ID)
		}
		u, err := url.Parse(s.URL)
		if err != nil {
			return fmt.Errorf("source %q: invalid url: %w", s.ID, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("source %q: url scheme must be http or https, got %q", s.ID, u.Scheme)
		}
		if !validTypes[s.Type] {
			return fmt.Errorf("source %q: unknown type %q (valid: html, rss, atom)", s.ID, s.Type)
		}
		if s.Type == "html" && s.ItemSelector == "" {
			return fmt.Errorf("source %q: item_selector is required for html sources", s.ID)
		}
	}
	if cfg.RefreshDelay != "" {
		if _, err := time.ParseDuration(cfg.RefreshDelay); err != nil {
			return fmt.Errorf("refresh_delay: %w", err)
		}
	}
	return nil
}
