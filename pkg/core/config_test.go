package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// ─────────────────────────────────────────────
// Defaults
// ─────────────────────────────────────────────

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.HTTPAddr != ":7070" {
		t.Errorf("HTTPAddr: got %q, want %q", cfg.Server.HTTPAddr, ":7070")
	}
	if cfg.Lexicon.Filename != "lexicon.json" {
		t.Errorf("Lexicon.Filename: got %q", cfg.Lexicon.Filename)
	}
	if cfg.Lexicon.FetchTimeout != 5*time.Second {
		t.Errorf("Lexicon.FetchTimeout: got %v", cfg.Lexicon.FetchTimeout)
	}
	if !cfg.Lexicon.Compress {
		t.Error("Lexicon.Compress: expected true by default")
	}
	if cfg.Scoring.ContrastBoost != 1.6 {
		t.Errorf("Scoring.ContrastBoost: got %f", cfg.Scoring.ContrastBoost)
	}
	if cfg.Scoring.NegationFactor != -0.8 {
		t.Errorf("Scoring.NegationFactor: got %f", cfg.Scoring.NegationFactor)
	}
	if cfg.Signal.DecayInterval != 250*time.Millisecond {
		t.Errorf("Signal.DecayInterval: got %v", cfg.Signal.DecayInterval)
	}
	if !cfg.Admin.Enabled || cfg.Admin.User != "admin" {
		t.Errorf("Admin defaults: got enabled=%v user=%q", cfg.Admin.Enabled, cfg.Admin.User)
	}
	if cfg.MCP.Enabled {
		t.Error("MCP should be disabled by default")
	}
	if cfg.Security.MaxRequestBody != 1<<20 {
		t.Errorf("Security.MaxRequestBody: got %d", cfg.Security.MaxRequestBody)
	}
	if cfg.Security.MaxTextBytes != 64<<10 {
		t.Errorf("Security.MaxTextBytes: got %d", cfg.Security.MaxTextBytes)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

// ─────────────────────────────────────────────
// File overlay
// ─────────────────────────────────────────────

func TestConfigFromFile(t *testing.T) {
	yaml := `
server:
  httpAddr: ":9090"
lexicon:
  baseURL: "https://cdn.example.com/lex"
  path: "/tmp/lexicon.json"
scoring:
  contrastBoost: 2.0
admin:
  password: "hunter2"
`
	path := filepath.Join(t.TempDir(), "moodlens.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := ConfigFromFile(path)
	if err != nil {
		t.Fatalf("ConfigFromFile: %v", err)
	}

	// Overridden fields take the file values.
	if cfg.Server.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr: got %q", cfg.Server.HTTPAddr)
	}
	if cfg.Lexicon.BaseURL != "https://cdn.example.com/lex" {
		t.Errorf("Lexicon.BaseURL: got %q", cfg.Lexicon.BaseURL)
	}
	if cfg.Scoring.ContrastBoost != 2.0 {
		t.Errorf("ContrastBoost: got %f", cfg.Scoring.ContrastBoost)
	}
	if cfg.Admin.Password != "hunter2" {
		t.Errorf("Admin.Password: got %q", cfg.Admin.Password)
	}

	// Absent fields keep their defaults.
	if cfg.Scoring.NegationFactor != -0.8 {
		t.Errorf("NegationFactor should keep default: got %f", cfg.Scoring.NegationFactor)
	}
	if cfg.Lexicon.Filename != "lexicon.json" {
		t.Errorf("Lexicon.Filename should keep default: got %q", cfg.Lexicon.Filename)
	}
	if cfg.Signal.LerpRate != 0.15 {
		t.Errorf("Signal.LerpRate should keep default: got %f", cfg.Signal.LerpRate)
	}
}

func TestConfigFromFile_MissingFile(t *testing.T) {
	if _, err := ConfigFromFile("/nonexistent/moodlens.yaml"); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestConfigFromFile_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	if _, err := ConfigFromFile(path); err == nil {
		t.Fatal("expected error for invalid YAML, got nil")
	}
}

// ─────────────────────────────────────────────
// Environment overrides
// ─────────────────────────────────────────────

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("MOODLENS_HTTP_ADDR", ":8181")
	t.Setenv("MOODLENS_LEXICON_TIMEOUT", "10s")
	t.Setenv("MOODLENS_LEXICON_COMPRESS", "false")
	t.Setenv("MOODLENS_CONTRAST_BOOST", "1.2")
	t.Setenv("MOODLENS_NEGATION_FACTOR", "-0.5")
	t.Setenv("MOODLENS_ADMIN_ENABLED", "false")
	t.Setenv("MOODLENS_MCP_ALLOWED_TOOLS", "score_text, lexicon_stats")
	t.Setenv("MOODLENS_MAX_TEXT_BYTES", "1024")

	cfg := ConfigFromEnv(nil)

	if cfg.Server.HTTPAddr != ":8181" {
		t.Errorf("HTTPAddr: got %q", cfg.Server.HTTPAddr)
	}
	if cfg.Lexicon.FetchTimeout != 10*time.Second {
		t.Errorf("FetchTimeout: got %v", cfg.Lexicon.FetchTimeout)
	}
	if cfg.Lexicon.Compress {
		t.Error("Compress should be false")
	}
	if cfg.Scoring.ContrastBoost != 1.2 {
		t.Errorf("ContrastBoost: got %f", cfg.Scoring.ContrastBoost)
	}
	if cfg.Scoring.NegationFactor != -0.5 {
		t.Errorf("NegationFactor: got %f", cfg.Scoring.NegationFactor)
	}
	if cfg.Admin.Enabled {
		t.Error("Admin.Enabled should be false")
	}
	if len(cfg.MCP.AllowedTools) != 2 || cfg.MCP.AllowedTools[0] != "score_text" || cfg.MCP.AllowedTools[1] != "lexicon_stats" {
		t.Errorf("AllowedTools: got %v", cfg.MCP.AllowedTools)
	}
	if cfg.Security.MaxTextBytes != 1024 {
		t.Errorf("MaxTextBytes: got %d", cfg.Security.MaxTextBytes)
	}

	// Untouched fields keep their defaults.
	if cfg.Lexicon.Filename != "lexicon.json" {
		t.Errorf("Filename should keep default: got %q", cfg.Lexicon.Filename)
	}
}

func TestConfigFromEnv_InvalidValuesIgnored(t *testing.T) {
	t.Setenv("MOODLENS_CONTRAST_BOOST", "not-a-number")
	t.Setenv("MOODLENS_LEXICON_TIMEOUT", "forever")
	t.Setenv("MOODLENS_ADMIN_ENABLED", "maybe")

	cfg := ConfigFromEnv(nil)

	if cfg.Scoring.ContrastBoost != 1.6 {
		t.Errorf("unparseable float should keep default: got %f", cfg.Scoring.ContrastBoost)
	}
	if cfg.Lexicon.FetchTimeout != 5*time.Second {
		t.Errorf("unparseable duration should keep default: got %v", cfg.Lexicon.FetchTimeout)
	}
	if !cfg.Admin.Enabled {
		t.Error("unparseable bool should keep default true")
	}
}

func TestLoadConfig_Hierarchy(t *testing.T) {
	yaml := `
server:
  httpAddr: ":9090"
scoring:
  contrastBoost: 2.0
`
	path := filepath.Join(t.TempDir(), "moodlens.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	// Env overrides the file; file overrides defaults.
	t.Setenv("MOODLENS_HTTP_ADDR", ":8181")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.HTTPAddr != ":8181" {
		t.Errorf("env should win over file: got %q", cfg.Server.HTTPAddr)
	}
	if cfg.Scoring.ContrastBoost != 2.0 {
		t.Errorf("file should win over defaults: got %f", cfg.Scoring.ContrastBoost)
	}
	if cfg.Scoring.NegationFactor != -0.8 {
		t.Errorf("defaults survive for untouched fields: got %f", cfg.Scoring.NegationFactor)
	}
}

func TestLoadConfig_NoFile(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig without file: %v", err)
	}
	if cfg.Server.HTTPAddr != ":7070" {
		t.Errorf("expected defaults: got %q", cfg.Server.HTTPAddr)
	}
}

// ─────────────────────────────────────────────
// CLI overrides
// ─────────────────────────────────────────────

func TestApplyCLIOverrides(t *testing.T) {
	cfg := DefaultConfig()

	addr := ":6000"
	boost := 3.0
	adminOff := false
	cfg.ApplyCLIOverrides(&CLIOverrides{
		HTTPAddr:      &addr,
		ContrastBoost: &boost,
		AdminEnabled:  &adminOff,
	})

	if cfg.Server.HTTPAddr != ":6000" {
		t.Errorf("HTTPAddr: got %q", cfg.Server.HTTPAddr)
	}
	if cfg.Scoring.ContrastBoost != 3.0 {
		t.Errorf("ContrastBoost: got %f", cfg.Scoring.ContrastBoost)
	}
	if cfg.Admin.Enabled {
		t.Error("Admin.Enabled should be false after override")
	}

	// Nil fields leave the config untouched.
	if cfg.Scoring.NegationFactor != -0.8 {
		t.Errorf("NegationFactor should be untouched: got %f", cfg.Scoring.NegationFactor)
	}
	if cfg.Admin.User != "admin" {
		t.Errorf("Admin.User should be untouched: got %q", cfg.Admin.User)
	}
}

func TestApplyCLIOverrides_Nil(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplyCLIOverrides(nil)
	if cfg.Server.HTTPAddr != ":7070" {
		t.Errorf("nil overrides must not modify config: got %q", cfg.Server.HTTPAddr)
	}
}

// ─────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults pass",
			mutate: func(c *Config) {},
		},
		{
			name:    "empty http addr",
			mutate:  func(c *Config) { c.Server.HTTPAddr = "" },
			wantErr: "server.httpAddr",
		},
		{
			name: "baseURL without filename",
			mutate: func(c *Config) {
				c.Lexicon.BaseURL = "https://cdn.example.com"
				c.Lexicon.Filename = ""
			},
			wantErr: "lexicon.filename",
		},
		{
			name:    "zero fetch timeout",
			mutate:  func(c *Config) { c.Lexicon.FetchTimeout = 0 },
			wantErr: "lexicon.fetchTimeout",
		},
		{
			name:    "zero contrast boost",
			mutate:  func(c *Config) { c.Scoring.ContrastBoost = 0 },
			wantErr: "scoring.contrastBoost",
		},
		{
			name:    "positive negation factor",
			mutate:  func(c *Config) { c.Scoring.NegationFactor = 0.5 },
			wantErr: "scoring.negationFactor",
		},
		{
			name:    "zero negation factor",
			mutate:  func(c *Config) { c.Scoring.NegationFactor = 0 },
			wantErr: "scoring.negationFactor",
		},
		{
			name:    "zero decay interval",
			mutate:  func(c *Config) { c.Signal.DecayInterval = 0 },
			wantErr: "signal.decayInterval",
		},
		{
			name:    "decay rate above one",
			mutate:  func(c *Config) { c.Signal.DecayRate = 1.5 },
			wantErr: "signal.decayRate",
		},
		{
			name:    "zero lerp rate",
			mutate:  func(c *Config) { c.Signal.LerpRate = 0 },
			wantErr: "signal.lerpRate",
		},
		{
			name:    "admin enabled without credentials",
			mutate:  func(c *Config) { c.Admin.Password = "" },
			wantErr: "admin.user and admin.password",
		},
		{
			name:    "mcp path without slash",
			mutate:  func(c *Config) { c.MCP.Path = "mcp" },
			wantErr: "mcp.path",
		},
		{
			name:    "negative mcp rate",
			mutate:  func(c *Config) { c.MCP.RateLimitRPS = -1 },
			wantErr: "mcp.rateLimitRPS",
		},
		{
			name:    "negative max request body",
			mutate:  func(c *Config) { c.Security.MaxRequestBody = -1 },
			wantErr: "security.maxRequestBody",
		},
		{
			name:    "zero max text bytes",
			mutate:  func(c *Config) { c.Security.MaxTextBytes = 0 },
			wantErr: "security.maxTextBytes",
		},
		{
			name:    "zero read timeout",
			mutate:  func(c *Config) { c.Security.ReadTimeout = 0 },
			wantErr: "security.readTimeout",
		},
		{
			name:    "wildcard origins with admin enabled",
			mutate:  func(c *Config) { c.Security.AllowedOrigins = "*" },
			wantErr: "security.allowedOrigins",
		},
		{
			name: "wildcard origins allowed with admin disabled",
			mutate: func(c *Config) {
				c.Admin.Enabled = false
				c.Security.AllowedOrigins = "*"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidate_DefaultPasswordInProduction(t *testing.T) {
	t.Setenv("MOODLENS_ENV", "production")

	cfg := DefaultConfig()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("default admin password must be rejected in production")
	}
	if !strings.Contains(err.Error(), "admin.password") {
		t.Errorf("error %q does not mention admin.password", err.Error())
	}

	cfg.Admin.Password = "s3cret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("non-default password should pass: %v", err)
	}
}

func TestValidate_NormalizesMCPPath(t *testing.T) {
	cfg := DefaultConfig()

	cfg.MCP.Path = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MCP.Path != "/mcp" {
		t.Errorf("empty path should normalize to /mcp: got %q", cfg.MCP.Path)
	}

	cfg.MCP.Path = "/tools/"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MCP.Path != "/tools" {
		t.Errorf("trailing slash should be trimmed: got %q", cfg.MCP.Path)
	}
}
