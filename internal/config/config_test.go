package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadFromReader(t *testing.T) {
	yamlDoc := `
server:
  addr: ":9090"
  max_sessions: 4
  shutdown_grace: 45s
fetch:
  request_timeout: 10
robots:
  respect: true
  overrides: ["Example.com", " example.com ", "other.net"]
logging:
  level: debug
  structured: false
`
	cfg, err := LoadFromReader(strings.NewReader(yamlDoc))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Server.MaxSessions != 4 {
		t.Errorf("max_sessions = %d", cfg.Server.MaxSessions)
	}
	if cfg.Server.ShutdownGrace.Duration != 45*time.Second {
		t.Errorf("shutdown_grace = %v", cfg.Server.ShutdownGrace.Duration)
	}
	// Bare numbers are treated as seconds.
	if cfg.Fetch.RequestTimeout.Duration != 10*time.Second {
		t.Errorf("request_timeout = %v", cfg.Fetch.RequestTimeout.Duration)
	}
	// Defaults survive a partial document.
	if cfg.Fetch.UserAgent == "" {
		t.Error("user agent default should be preserved")
	}
	if cfg.Probe.Concurrency != 8 {
		t.Errorf("probe concurrency default lost: %d", cfg.Probe.Concurrency)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Structured {
		t.Errorf("logging config not applied: %+v", cfg.Logging)
	}

	want := []string{"example.com", "other.net"}
	if len(cfg.Robots.Overrides) != len(want) {
		t.Fatalf("overrides = %v", cfg.Robots.Overrides)
	}
	for i, v := range want {
		if cfg.Robots.Overrides[i] != v {
			t.Errorf("overrides[%d] = %q, want %q", i, cfg.Robots.Overrides[i], v)
		}
	}
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("server:\n  port: 8080\n"))
	if err == nil {
		t.Fatal("unknown field should be rejected")
	}
}

func TestValidateErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = " " }},
		{"zero max_sessions", func(c *Config) { c.Server.MaxSessions = 0 }},
		{"empty user agent", func(c *Config) { c.Fetch.UserAgent = "" }},
		{"zero body limit", func(c *Config) { c.Fetch.MaxBodyBytes = 0 }},
		{"zero image limit", func(c *Config) { c.Fetch.MaxImageBytes = 0 }},
		{"robots agent missing", func(c *Config) {
			c.Robots.Respect = true
			c.Robots.UserAgent = ""
		}},
		{"zero probe concurrency", func(c *Config) { c.Probe.Concurrency = 0 }},
		{"zero chunk size", func(c *Config) { c.Extract.ChunkSize = 0 }},
		{"negative stylesheet cap", func(c *Config) { c.Extract.MaxStylesheets = -1 }},
		{"rendering engine missing", func(c *Config) {
			c.Rendering.Enabled = true
			c.Rendering.Engine = ""
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestDurationJSONRoundTrip(t *testing.T) {
	d := DurationFrom(90 * time.Second)
	b, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"1m30s"` {
		t.Fatalf("marshal = %s", b)
	}

	var parsed Duration
	if err := parsed.UnmarshalJSON(b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.Duration != 90*time.Second {
		t.Fatalf("round trip = %v", parsed.Duration)
	}
}
