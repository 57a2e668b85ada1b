package core

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration sections
// ---------------------------------------------------------------------------

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// HTTPAddr is the listen address, e.g. ":7070".
	HTTPAddr string `yaml:"httpAddr"`
}

// LexiconConfig controls where the emotion lexicon is loaded from.
type LexiconConfig struct {
	// BaseURL is the remote base the lexicon document is fetched from.
	// The full URL is BaseURL + "/" + Filename. Leave empty to skip the
	// remote fetch entirely.
	BaseURL string `yaml:"baseURL"`

	// Filename is the fixed document name appended to BaseURL.
	Filename string `yaml:"filename"`

	// Path points at a local lexicon document. When set it takes
	// precedence over the remote fetch.
	Path string `yaml:"path"`

	// FetchTimeout bounds the remote fetch.
	FetchTimeout time.Duration `yaml:"fetchTimeout"`

	// CachePath is the on-disk cache file for the last successful fetch.
	// Empty disables caching.
	CachePath string `yaml:"cachePath"`

	// Compress enables gzip compression of the cache file.
	Compress bool `yaml:"compress"`
}

// ScoringConfig exposes the scorer's tuning knobs. These are presentation
// tuning values, not correctness contracts; the defaults are documented and
// stable for identical input.
type ScoringConfig struct {
	// ContrastBoost multiplies matches after a contrast pivot (but/however/though).
	ContrastBoost float64 `yaml:"contrastBoost"`

	// NegationFactor multiplies a negated contribution, turning the signal
	// into a counter-signal. Must be strictly negative; zero is rejected
	// because the scorer treats an unset factor as the default.
	NegationFactor float64 `yaml:"negationFactor"`
}

// SignalConfig tunes the signal mapper and the typing-activity tracker.
type SignalConfig struct {
	// DecayInterval is the tick period of the activity decay loop.
	DecayInterval time.Duration `yaml:"decayInterval"`

	// DecayRate is the fraction of activity removed per tick (0..1).
	DecayRate float64 `yaml:"decayRate"`

	// LerpRate is the smoothing rate for visual parameters (0..1 per update).
	LerpRate float64 `yaml:"lerpRate"`
}

// AdminConfig gates the administrative endpoints.
type AdminConfig struct {
	Enabled  bool   `yaml:"enabled"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// MCPConfig controls the optional MCP endpoint.
type MCPConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Path           string   `yaml:"path"`
	APIKey         string   `yaml:"apiKey"`
	Stateless      bool     `yaml:"stateless"`
	RateLimitRPS   float64  `yaml:"rateLimitRPS"`
	RateLimitBurst int      `yaml:"rateLimitBurst"`
	AllowedTools   []string `yaml:"allowedTools"`
}

// SecurityConfig holds request handling limits and CORS settings.
type SecurityConfig struct {
	// AllowedOrigins is a comma-separated CORS origin list; "*" allows all.
	AllowedOrigins string `yaml:"allowedOrigins"`

	// MaxRequestBody caps request body size in bytes (0 = unlimited).
	MaxRequestBody int64 `yaml:"maxRequestBody"`

	// MaxTextBytes caps the text payload accepted for scoring.
	MaxTextBytes int64 `yaml:"maxTextBytes"`

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration `yaml:"readTimeout"`

	// WriteTimeout is the maximum duration before timing out responses.
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

// Config is the root configuration object for a MoodLens server.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Lexicon  LexiconConfig  `yaml:"lexicon"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Signal   SignalConfig   `yaml:"signal"`
	Admin    AdminConfig    `yaml:"admin"`
	MCP      MCPConfig      `yaml:"mcp"`
	Security SecurityConfig `yaml:"security"`
}

// ---------------------------------------------------------------------------
// Factory functions
// ---------------------------------------------------------------------------

// DefaultConfig returns a Config populated with production-safe defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr: ":7070",
		},
		Lexicon: LexiconConfig{
			BaseURL:      "",
			Filename:     "lexicon.json",
			Path:         "",
			FetchTimeout: 5 * time.Second,
			CachePath:    "./data/lexicon.mlex",
			Compress:     true,
		},
		Scoring: ScoringConfig{
			ContrastBoost:  1.6,
			NegationFactor: -0.8,
		},
		Signal: SignalConfig{
			DecayInterval: 250 * time.Millisecond,
			DecayRate:     0.08,
			LerpRate:      0.15,
		},
		Admin: AdminConfig{
			Enabled:  true,
			User:     "admin",
			Password: "moodlens",
		},
		MCP: MCPConfig{
			Enabled:        false,
			Path:           "/mcp",
			APIKey:         "",
			Stateless:      true,
			RateLimitRPS:   30,
			RateLimitBurst: 60,
			AllowedTools:   nil,
		},
		Security: SecurityConfig{
			AllowedOrigins: "http://localhost:7070",
			MaxRequestBody: 1 << 20, // 1 MB
			MaxTextBytes:   64 << 10,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
		},
	}
}

// ConfigFromFile reads a YAML configuration file and merges it on top of the
// built-in defaults. Fields absent from the file retain their defaults.
func ConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return cfg, nil
}

// ConfigFromEnv applies environment variable overrides to the given Config.
// If cfg is nil a new default Config is created first.
//
// Environment variable mapping (all optional, prefix MOODLENS_):
//
//	MOODLENS_HTTP_ADDR            → Server.HTTPAddr
//	MOODLENS_LEXICON_BASE_URL     → Lexicon.BaseURL
//	MOODLENS_LEXICON_FILENAME     → Lexicon.Filename
//	MOODLENS_LEXICON_PATH         → Lexicon.Path
//	MOODLENS_LEXICON_TIMEOUT      → Lexicon.FetchTimeout   (duration string)
//	MOODLENS_LEXICON_CACHE_PATH   → Lexicon.CachePath
//	MOODLENS_LEXICON_COMPRESS     → Lexicon.Compress       ("true"/"false")
//	MOODLENS_CONTRAST_BOOST       → Scoring.ContrastBoost  (float)
//	MOODLENS_NEGATION_FACTOR      → Scoring.NegationFactor (float)
//	MOODLENS_SIGNAL_DECAY_INTERVAL→ Signal.DecayInterval   (duration string)
//	MOODLENS_SIGNAL_DECAY_RATE    → Signal.DecayRate       (float)
//	MOODLENS_SIGNAL_LERP_RATE     → Signal.LerpRate        (float)
//	MOODLENS_ADMIN_ENABLED        → Admin.Enabled          ("true"/"false")
//	MOODLENS_ADMIN_USER           → Admin.User
//	MOODLENS_ADMIN_PASSWORD       → Admin.Password
//	MOODLENS_MCP_ENABLED          → MCP.Enabled            ("true"/"false")
//	MOODLENS_MCP_PATH             → MCP.Path
//	MOODLENS_MCP_API_KEY          → MCP.APIKey
//	MOODLENS_MCP_STATELESS        → MCP.Stateless          ("true"/"false")
//	MOODLENS_MCP_RATE_LIMIT_RPS   → MCP.RateLimitRPS       (float)
//	MOODLENS_MCP_RATE_LIMIT_BURST → MCP.RateLimitBurst     (integer)
//	MOODLENS_MCP_ALLOWED_TOOLS    → MCP.AllowedTools       (comma-separated)
//	MOODLENS_ALLOWED_ORIGINS      → Security.AllowedOrigins
//	MOODLENS_MAX_REQUEST_BODY     → Security.MaxRequestBody (bytes, integer)
//	MOODLENS_MAX_TEXT_BYTES       → Security.MaxTextBytes   (bytes, integer)
//	MOODLENS_READ_TIMEOUT         → Security.ReadTimeout    (duration string)
//	MOODLENS_WRITE_TIMEOUT        → Security.WriteTimeout   (duration string)
func ConfigFromEnv(cfg *Config) *Config {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	// -- Server --
	setEnvStr("MOODLENS_HTTP_ADDR", &cfg.Server.HTTPAddr)

	// -- Lexicon --
	setEnvStr("MOODLENS_LEXICON_BASE_URL", &cfg.Lexicon.BaseURL)
	setEnvStr("MOODLENS_LEXICON_FILENAME", &cfg.Lexicon.Filename)
	setEnvStr("MOODLENS_LEXICON_PATH", &cfg.Lexicon.Path)
	setEnvDuration("MOODLENS_LEXICON_TIMEOUT", &cfg.Lexicon.FetchTimeout)
	setEnvStr("MOODLENS_LEXICON_CACHE_PATH", &cfg.Lexicon.CachePath)
	setEnvBool("MOODLENS_LEXICON_COMPRESS", &cfg.Lexicon.Compress)

	// -- Scoring --
	setEnvFloat("MOODLENS_CONTRAST_BOOST", &cfg.Scoring.ContrastBoost)
	setEnvFloat("MOODLENS_NEGATION_FACTOR", &cfg.Scoring.NegationFactor)

	// -- Signal --
	setEnvDuration("MOODLENS_SIGNAL_DECAY_INTERVAL", &cfg.Signal.DecayInterval)
	setEnvFloat("MOODLENS_SIGNAL_DECAY_RATE", &cfg.Signal.DecayRate)
	setEnvFloat("MOODLENS_SIGNAL_LERP_RATE", &cfg.Signal.LerpRate)

	// -- Admin --
	setEnvBool("MOODLENS_ADMIN_ENABLED", &cfg.Admin.Enabled)
	setEnvStr("MOODLENS_ADMIN_USER", &cfg.Admin.User)
	setEnvStr("MOODLENS_ADMIN_PASSWORD", &cfg.Admin.Password)

	// -- MCP --
	setEnvBool("MOODLENS_MCP_ENABLED", &cfg.MCP.Enabled)
	setEnvStr("MOODLENS_MCP_PATH", &cfg.MCP.Path)
	setEnvStr("MOODLENS_MCP_API_KEY", &cfg.MCP.APIKey)
	setEnvBool("MOODLENS_MCP_STATELESS", &cfg.MCP.Stateless)
	setEnvFloat("MOODLENS_MCP_RATE_LIMIT_RPS", &cfg.MCP.RateLimitRPS)
	setEnvInt("MOODLENS_MCP_RATE_LIMIT_BURST", &cfg.MCP.RateLimitBurst)
	setEnvCSV("MOODLENS_MCP_ALLOWED_TOOLS", &cfg.MCP.AllowedTools)

	// -- Security --
	setEnvStr("MOODLENS_ALLOWED_ORIGINS", &cfg.Security.AllowedOrigins)
	setEnvInt64("MOODLENS_MAX_REQUEST_BODY", &cfg.Security.MaxRequestBody)
	setEnvInt64("MOODLENS_MAX_TEXT_BYTES", &cfg.Security.MaxTextBytes)
	setEnvDuration("MOODLENS_READ_TIMEOUT", &cfg.Security.ReadTimeout)
	setEnvDuration("MOODLENS_WRITE_TIMEOUT", &cfg.Security.WriteTimeout)

	return cfg
}

// LoadConfig implements the full four-level configuration hierarchy:
//
//  1. Start with built-in defaults.
//  2. If configPath is non-empty, overlay the YAML file.
//  3. Apply environment variable overrides.
//  4. The caller may then apply programmatic overrides (e.g. CLI flags).
//
// Returns the merged Config or an error if the file cannot be read/parsed.
func LoadConfig(configPath string) (*Config, error) {
	var cfg *Config

	if configPath != "" {
		var err error
		cfg, err = ConfigFromFile(configPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = DefaultConfig()
	}

	cfg = ConfigFromEnv(cfg)
	return cfg, nil
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// Validate performs structural validation of the entire configuration.
// Returns a descriptive error for the first invalid field encountered.
func (c *Config) Validate() error {
	// Server
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.httpAddr must not be empty")
	}

	// Lexicon
	if c.Lexicon.BaseURL != "" && c.Lexicon.Filename == "" {
		return fmt.Errorf("lexicon.filename must not be empty when lexicon.baseURL is set")
	}
	if c.Lexicon.FetchTimeout <= 0 {
		return fmt.Errorf("lexicon.fetchTimeout must be > 0")
	}
	if c.Lexicon.BaseURL == "" && c.Lexicon.Path == "" {
		log.Printf("⚠ WARNING: no lexicon source configured — the built-in fallback lexicon will be used")
	}

	// Scoring
	if c.Scoring.ContrastBoost <= 0 {
		return fmt.Errorf("scoring.contrastBoost must be > 0, got %f", c.Scoring.ContrastBoost)
	}
	if c.Scoring.NegationFactor >= 0 {
		return fmt.Errorf("scoring.negationFactor must be < 0, got %f", c.Scoring.NegationFactor)
	}

	// Signal
	if c.Signal.DecayInterval <= 0 {
		return fmt.Errorf("signal.decayInterval must be > 0")
	}
	if c.Signal.DecayRate <= 0 || c.Signal.DecayRate > 1 {
		return fmt.Errorf("signal.decayRate must be in (0, 1], got %f", c.Signal.DecayRate)
	}
	if c.Signal.LerpRate <= 0 || c.Signal.LerpRate > 1 {
		return fmt.Errorf("signal.lerpRate must be in (0, 1], got %f", c.Signal.LerpRate)
	}
	if c.Signal.DecayInterval < 50*time.Millisecond {
		log.Printf("⚠ WARNING: signal.decayInterval=%v is very aggressive — this will increase CPU usage", c.Signal.DecayInterval)
	}

	// Admin
	if c.Admin.Enabled {
		if c.Admin.User == "" || c.Admin.Password == "" {
			return fmt.Errorf("admin.user and admin.password must not be empty when admin is enabled")
		}
		if c.Admin.Password == "moodlens" {
			if isProductionMode() {
				return fmt.Errorf("admin.password must not use default value in production")
			}
			log.Printf("⚠ WARNING: admin.password is set to the default value — change it before deploying to production")
		}
	}

	// MCP
	mcpPath := strings.TrimSpace(c.MCP.Path)
	if mcpPath == "" {
		mcpPath = "/mcp"
	}
	if !strings.HasPrefix(mcpPath, "/") {
		return fmt.Errorf("mcp.path must start with '/'")
	}
	if len(mcpPath) > 1 {
		mcpPath = strings.TrimRight(mcpPath, "/")
	}
	c.MCP.Path = mcpPath
	if c.MCP.RateLimitRPS < 0 {
		return fmt.Errorf("mcp.rateLimitRPS must be >= 0")
	}
	if c.MCP.RateLimitBurst < 0 {
		return fmt.Errorf("mcp.rateLimitBurst must be >= 0")
	}

	// Security
	if c.Security.MaxRequestBody < 0 {
		return fmt.Errorf("security.maxRequestBody must be >= 0 (0 = unlimited, not recommended)")
	}
	if c.Security.MaxTextBytes <= 0 {
		return fmt.Errorf("security.maxTextBytes must be > 0")
	}
	if c.Security.ReadTimeout <= 0 {
		return fmt.Errorf("security.readTimeout must be > 0")
	}
	if c.Security.WriteTimeout <= 0 {
		return fmt.Errorf("security.writeTimeout must be > 0")
	}
	if c.Admin.Enabled && c.Security.AllowedOrigins == "*" {
		return fmt.Errorf("security.allowedOrigins must not be '*' when admin is enabled")
	}
	if c.Security.AllowedOrigins == "*" {
		log.Printf("⚠ WARNING: security.allowedOrigins is set to \"*\" (allow all) — restrict for production use")
	}

	return nil
}

func isProductionMode() bool {
	for _, key := range []string{"MOODLENS_ENV", "GO_ENV", "APP_ENV"} {
		v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
		if v == "production" || v == "prod" {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Environment variable helpers
// ---------------------------------------------------------------------------

// setEnvStr sets *target to the value of the named env var if it is non-empty.
func setEnvStr(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// setEnvBool sets *target to the parsed boolean value of the named env var.
func setEnvBool(key string, target *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}

// setEnvInt sets *target to the parsed integer value of the named env var.
func setEnvInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

// setEnvInt64 sets *target to the parsed int64 value of the named env var.
func setEnvInt64(key string, target *int64) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*target = n
		}
	}
}

// setEnvDuration sets *target to the parsed duration of the named env var.
// Uses time.ParseDuration, so accepts "30s", "5m", "1h30m", etc.
func setEnvDuration(key string, target *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*target = d
		}
	}
}

// setEnvFloat sets *target to the parsed float64 value of the named env var.
func setEnvFloat(key string, target *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*target = f
		}
	}
}

// setEnvCSV sets *target to a comma-separated env var list.
func setEnvCSV(key string, target *[]string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		*target = out
	}
}

// ---------------------------------------------------------------------------
// CLI flag overrides — final layer of the configuration hierarchy.
// ---------------------------------------------------------------------------

// CLIOverrides carries optional values set via command-line flags.
// Pointer fields are nil when the flag was not explicitly provided,
// allowing the caller to distinguish "not set" from the zero value.
type CLIOverrides struct {
	ConfigPath     *string
	HTTPAddr       *string
	LexiconBaseURL *string
	LexiconPath    *string
	LexiconCache   *string
	ContrastBoost  *float64
	NegationFactor *float64
	AdminEnabled   *bool
	AdminUser      *string
	AdminPassword  *string
	AllowedOrigins *string
	MaxTextBytes   *int64
	MCPEnabled     *bool
}

// ApplyCLIOverrides patches the Config with any explicitly-set CLI flags.
// Only non-nil fields are applied, preserving all values resolved from
// earlier hierarchy layers.
func (c *Config) ApplyCLIOverrides(o *CLIOverrides) {
	if o == nil {
		return
	}
	if o.HTTPAddr != nil {
		c.Server.HTTPAddr = *o.HTTPAddr
	}
	if o.LexiconBaseURL != nil {
		c.Lexicon.BaseURL = *o.LexiconBaseURL
	}
	if o.LexiconPath != nil {
		c.Lexicon.Path = *o.LexiconPath
	}
	if o.LexiconCache != nil {
		c.Lexicon.CachePath = *o.LexiconCache
	}
	if o.ContrastBoost != nil {
		c.Scoring.ContrastBoost = *o.ContrastBoost
	}
	if o.NegationFactor != nil {
		c.Scoring.NegationFactor = *o.NegationFactor
	}
	if o.AdminEnabled != nil {
		c.Admin.Enabled = *o.AdminEnabled
	}
	if o.AdminUser != nil {
		c.Admin.User = *o.AdminUser
	}
	if o.AdminPassword != nil {
		c.Admin.Password = *o.AdminPassword
	}
	if o.AllowedOrigins != nil {
		c.Security.AllowedOrigins = *o.AllowedOrigins
	}
	if o.MaxTextBytes != nil {
		c.Security.MaxTextBytes = *o.MaxTextBytes
	}
	if o.MCPEnabled != nil {
		c.MCP.Enabled = *o.MCPEnabled
	}
}
