package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the full configuration required to run the extraction service.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Robots    RobotsConfig    `yaml:"robots"`
	Rendering RenderingConfig `yaml:"rendering"`
	Probe     ProbeConfig     `yaml:"probe"`
	Extract   ExtractConfig   `yaml:"extract"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig controls the HTTP listener and session limits.
type ServerConfig struct {
	Addr          string   `yaml:"addr"`
	StaticDir     string   `yaml:"static_dir"`
	MaxSessions   int      `yaml:"max_sessions"`
	ShutdownGrace Duration `yaml:"shutdown_grace"`
}

// FetchConfig controls outbound HTTP behaviour for page, image, and CSS fetches.
type FetchConfig struct {
	UserAgent      string            `yaml:"user_agent"`
	AcceptLanguage string            `yaml:"accept_language"`
	Headers        map[string]string `yaml:"headers"`
	RequestTimeout Duration          `yaml:"request_timeout"`
	MaxBodyBytes   int64             `yaml:"max_body_bytes"`
	MaxImageBytes  int64             `yaml:"max_image_bytes"`
	ProxyURL       string            `yaml:"proxy_url"`
}

// RobotsConfig configures robots.txt handling for page fetches.
type RobotsConfig struct {
	Respect   bool     `yaml:"respect"`
	Overrides []string `yaml:"overrides"`
	UserAgent string   `yaml:"user_agent"`
	CacheTTL  Duration `yaml:"cache_ttl"`
}

// RenderingConfig controls optional JavaScript rendering for script-heavy pages.
type RenderingConfig struct {
	Enabled            bool     `yaml:"enabled"`
	Engine             string   `yaml:"engine"`
	Timeout            Duration `yaml:"timeout"`
	WaitForSelector    string   `yaml:"wait_for_selector"`
	ConcurrentSessions int      `yaml:"concurrent_sessions"`
	DisableHeadless    bool     `yaml:"disable_headless"`
}

// ProbeConfig controls asynchronous image dimension discovery.
type ProbeConfig struct {
	Concurrency int      `yaml:"concurrency"`
	Timeout     Duration `yaml:"timeout"`
}

// ExtractConfig tunes extraction behaviour.
type ExtractConfig struct {
	ChunkSize      int `yaml:"chunk_size"`
	MaxStylesheets int `yaml:"max_stylesheets"`
}

// LoggingConfig selects log verbosity and format.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Structured bool   `yaml:"structured"`
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:          ":8080",
			StaticDir:     "web",
			MaxSessions:   16,
			ShutdownGrace: DurationFrom(15 * time.Second),
		},
		Fetch: FetchConfig{
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
			AcceptLanguage: "ja,en-US;q=0.7,en;q=0.3",
			Headers:        map[string]string{},
			RequestTimeout: DurationFrom(30 * time.Second),
			MaxBodyBytes:   50 * 1024 * 1024,
			MaxImageBytes:  50 * 1024 * 1024,
		},
		Robots: RobotsConfig{
			Respect:   false,
			Overrides: []string{},
			UserAgent: "img-ex/1.0",
			CacheTTL:  DurationFrom(6 * time.Hour),
		},
		Rendering: RenderingConfig{
			Enabled:            false,
			Engine:             "chromedp",
			Timeout:            DurationFrom(15 * time.Second),
			ConcurrentSessions: 2,
		},
		Probe: ProbeConfig{
			Concurrency: 8,
			Timeout:     DurationFrom(20 * time.Second),
		},
		Extract: ExtractConfig{
			ChunkSize:      20,
			MaxStylesheets: 30,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Structured: true,
		},
	}
}

// Load reads, merges, and validates configuration from a YAML file.
func Load(path string) (*Config, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer fh.Close()

	cfg := Default()
	if err := decodeYAML(fh, &cfg); err != nil {
		return nil, err
	}
	cfg.normalise()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromReader decodes configuration from an arbitrary reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := decodeYAML(r, &cfg); err != nil {
		return nil, err
	}
	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// Validate enforces required invariants for the service configuration.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server.addr must be set")
	}
	if c.Server.MaxSessions <= 0 {
		return fmt.Errorf("server.max_sessions must be > 0 (got %d)", c.Server.MaxSessions)
	}
	if strings.TrimSpace(c.Fetch.UserAgent) == "" {
		return errors.New("fetch.user_agent must be set")
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		return fmt.Errorf("fetch.max_body_bytes must be > 0 (got %d)", c.Fetch.MaxBodyBytes)
	}
	if c.Fetch.MaxImageBytes <= 0 {
		return fmt.Errorf("fetch.max_image_bytes must be > 0 (got %d)", c.Fetch.MaxImageBytes)
	}
	if c.Robots.Respect && strings.TrimSpace(c.Robots.UserAgent) == "" {
		return errors.New("robots.user_agent must be set when robots.respect is true")
	}
	if c.Probe.Concurrency <= 0 {
		return fmt.Errorf("probe.concurrency must be > 0 (got %d)", c.Probe.Concurrency)
	}
	if c.Extract.ChunkSize <= 0 {
		return fmt.Errorf("extract.chunk_size must be > 0 (got %d)", c.Extract.ChunkSize)
	}
	if c.Extract.MaxStylesheets < 0 {
		return fmt.Errorf("extract.max_stylesheets must be >= 0 (got %d)", c.Extract.MaxStylesheets)
	}
	if c.Rendering.Enabled && strings.TrimSpace(c.Rendering.Engine) == "" {
		return errors.New("rendering.engine must be set when rendering.enabled is true")
	}
	return nil
}

func (c *Config) normalise() {
	c.Server.Addr = strings.TrimSpace(c.Server.Addr)
	c.Server.StaticDir = strings.TrimSpace(c.Server.StaticDir)
	c.Fetch.UserAgent = strings.TrimSpace(c.Fetch.UserAgent)
	c.Fetch.ProxyURL = strings.TrimSpace(c.Fetch.ProxyURL)
	c.Robots.UserAgent = strings.TrimSpace(c.Robots.UserAgent)
	c.Rendering.Engine = strings.TrimSpace(c.Rendering.Engine)

	// Overrides are de-duplicated and normalised to lower case.
	if len(c.Robots.Overrides) > 0 {
		c.Robots.Overrides = dedupeLower(c.Robots.Overrides)
	}
}

func dedupeLower(values []string) []string {
	unique := make(map[string]struct{}, len(values))
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := unique[v]; ok {
			continue
		}
		unique[v] = struct{}{}
		cleaned = append(cleaned, v)
	}
	sort.Strings(cleaned)
	return cleaned
}
