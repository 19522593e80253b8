// Package config loads the tracker configuration from YAML with TRACKER_*
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment variables that override file values:
// TRACKER_DEFAULT_DATE -> default_date, TRACKER_LOKI_URL -> loki.url.
const EnvPrefix = "TRACKER_"

type HTTPConfig struct {
	Timeout    time.Duration `koanf:"timeout"`
	UserAgent  string        `koanf:"user_agent"`
	MaxRetries int           `koanf:"max_retries"`
	Backoff    time.Duration `koanf:"backoff"`
	MaxBackoff time.Duration `koanf:"max_backoff"`
}

type FilesConfig struct {
	Dir     string `koanf:"dir"`
	Pattern string `koanf:"pattern"` // glob, default *.txt
}

type GazetteConfig struct {
	BaseURL   string     `koanf:"base_url"`
	APIKey    string     `koanf:"api_key"`
	HTTP      HTTPConfig `koanf:"http"`
	Section   string     `koanf:"section"`
	OrganTerm string     `koanf:"organ_term"` // organ filter, default "tribunal regional do trabalho"
	ActTerms  []string   `koanf:"act_terms"`  // at least one must appear
	// Window: explicit dates win, then the state cursor, then the lookback.
	Start        string        `koanf:"start"`
	End          string        `koanf:"end"`
	LookbackDays int           `koanf:"lookback_days"`
	StatePath    string        `koanf:"state_path"`
	PageSize     int           `koanf:"page_size"`
	MaxPages     int           `koanf:"max_pages"`
	Delay        time.Duration `koanf:"delay"` // minimum gap between requests
	CachePath    string        `koanf:"cache_path"`
	CacheTTL     time.Duration `koanf:"cache_ttl"`
}

type SourceConfig struct {
	Type    string        `koanf:"type"` // files | gazette
	Name    string        `koanf:"name"`
	Files   FilesConfig   `koanf:"files"`
	Gazette GazetteConfig `koanf:"gazette"`
}

type DetectConfig struct {
	Proximity int `koanf:"proximity"`
}

type PostProcessConfig struct {
	DedupWindowDays int `koanf:"dedup_window_days"`
	MatchWindowDays int `koanf:"match_window_days"`
}

type EnrichConfig struct {
	Enable          bool          `koanf:"enable"`
	Source          string        `koanf:"source"` // name of a gazette source to query
	Delay           time.Duration `koanf:"delay"`
	ReasonDays      int           `koanf:"reason_days"`
	DestinationDays int           `koanf:"destination_days"`
}

type OutputConfig struct {
	Dir  string `koanf:"dir"`
	TopN int    `koanf:"top_n"`
}

type LokiConfig struct {
	URL       string        `koanf:"url"`       // http://loki:3100
	TenantID  string        `koanf:"tenant_id"` // optional multi-tenancy
	Job       string        `koanf:"job"`       // label value, default: movement-tracker
	Timeout   time.Duration `koanf:"timeout"`
	UserAgent string        `koanf:"user_agent"`
}

type VictoriaConfig struct {
	URL       string        `koanf:"url"` // http://victoria-metrics:8428
	Timeout   time.Duration `koanf:"timeout"`
	UserAgent string        `koanf:"user_agent"`
}

type MetricsConfig struct {
	Textfile string `koanf:"textfile"` // node-exporter textfile path; empty disables
	Listen   string `koanf:"listen"`   // serve /metrics while running with --interval, e.g. :9105
}

type DedupConfig struct {
	Enable  bool          `koanf:"enable"`
	TTL     time.Duration `koanf:"ttl"`
	MaxKeys int           `koanf:"max_keys"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json | console
}

type Config struct {
	Rules       string `koanf:"rules"`
	GroundTruth string `koanf:"ground_truth"`
	KnownNames  string `koanf:"known_names"` // optional file, one name per line
	DefaultDate string `koanf:"default_date"`

	Sources  []SourceConfig    `koanf:"sources"`
	Detect   DetectConfig      `koanf:"detect"`
	Post     PostProcessConfig `koanf:"postprocess"`
	Enrich   EnrichConfig      `koanf:"enrich"`
	Output   OutputConfig      `koanf:"output"`
	Loki     LokiConfig        `koanf:"loki"`
	Victoria VictoriaConfig    `koanf:"victoria"`
	Metrics  MetricsConfig     `koanf:"metrics"`
	Dedup    DedupConfig       `koanf:"dedup"`
	Logging  LoggingConfig     `koanf:"logging"`
}

// Load reads path, applies environment overrides and defaults, and validates.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse is Load without the file read.
func Parse(b []byte) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(b), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var c Config
	if err := k.Unmarshal("", &c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&c)
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// envKey maps TRACKER_SECTION_FIELD_NAME to section.field_name for known
// sections, and TRACKER_FIELD_NAME to field_name otherwise.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(s, "_", 2)
	if len(parts) == 2 && sections[parts[0]] {
		return parts[0] + "." + parts[1]
	}
	return s
}

var sections = map[string]bool{
	"detect": true, "postprocess": true, "enrich": true, "output": true, "loki": true,
	"victoria": true, "metrics": true, "dedup": true, "logging": true,
}

func applyDefaults(c *Config) {
	if c.Rules == "" {
		c.Rules = "configs/rules.yaml"
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "out"
	}
	if c.Output.TopN <= 0 {
		c.Output.TopN = 50
	}
	if c.Post.DedupWindowDays <= 0 {
		c.Post.DedupWindowDays = 30
	}
	if c.Post.MatchWindowDays <= 0 {
		c.Post.MatchWindowDays = 45
	}
	if c.Enrich.Delay <= 0 {
		c.Enrich.Delay = 100 * time.Millisecond
	}
	if c.Enrich.ReasonDays <= 0 {
		c.Enrich.ReasonDays = 3
	}
	if c.Enrich.DestinationDays <= 0 {
		c.Enrich.DestinationDays = 30
	}
	if c.Loki.Job == "" {
		c.Loki.Job = "movement-tracker"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	for i := range c.Sources {
		s := &c.Sources[i]
		if s.Name == "" {
			s.Name = s.Type
		}
		switch s.Type {
		case "files":
			if s.Files.Pattern == "" {
				s.Files.Pattern = "*.txt"
			}
		case "gazette":
			g := &s.Gazette
			if g.OrganTerm == "" {
				g.OrganTerm = "tribunal regional do trabalho"
			}
			if len(g.ActTerms) == 0 {
				g.ActTerms = []string{"vago", "exonera", "nomea", "posse", "vacância"}
			}
			if g.LookbackDays <= 0 {
				g.LookbackDays = 7
			}
			if g.PageSize <= 0 {
				g.PageSize = 100
			}
			if g.MaxPages <= 0 {
				g.MaxPages = 10
			}
			if g.Delay <= 0 {
				g.Delay = 100 * time.Millisecond
			}
			if g.HTTP.Timeout <= 0 {
				g.HTTP.Timeout = 30 * time.Second
			}
			if g.HTTP.MaxRetries <= 0 {
				g.HTTP.MaxRetries = 3
			}
			if g.HTTP.Backoff <= 0 {
				g.HTTP.Backoff = 500 * time.Millisecond
			}
			if g.HTTP.MaxBackoff <= 0 {
				g.HTTP.MaxBackoff = 5 * time.Second
			}
		}
	}
}

// Validate rejects configurations that cannot produce output.
func (c Config) Validate() error {
	if len(c.Sources) == 0 {
		return errors.New("config: need at least one source")
	}
	for _, s := range c.Sources {
		switch s.Type {
		case "files":
			if s.Files.Dir == "" {
				return fmt.Errorf("config: source %q: files.dir is required", s.Name)
			}
		case "gazette":
			if s.Gazette.BaseURL == "" {
				return fmt.Errorf("config: source %q: gazette.base_url is required", s.Name)
			}
		}
	}
	if c.DefaultDate != "" {
		if _, err := time.Parse("2006-01-02", c.DefaultDate); err != nil {
			return fmt.Errorf("config: default_date %q is not YYYY-MM-DD", c.DefaultDate)
		}
	}
	if c.Enrich.Enable && c.Enrich.Source == "" {
		return errors.New("config: enrich.source is required when enrich is enabled")
	}
	return nil
}

// Source returns the source configuration with the given name.
func (c Config) Source(name string) (SourceConfig, bool) {
	for _, s := range c.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return SourceConfig{}, false
}
