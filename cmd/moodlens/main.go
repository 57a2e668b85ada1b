package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/moodlens/moodlens/pkg/api"
	"github.com/moodlens/moodlens/pkg/core"
	"github.com/moodlens/moodlens/pkg/lexicon"
	"github.com/moodlens/moodlens/pkg/signal"
)

func main() {
	var cliOverrides core.CLIOverrides

	rootCmd := &cobra.Command{
		Use:   "moodlens",
		Short: "MoodLens - Rule-based emotion scoring for live text",
		Long:  "A lexical sentiment service that scores free text into anger/joy/sad intensities and maps them onto smoothed visual parameters.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Flags(), &cliOverrides)
		},
		SilenceUsage: true,
	}

	// CLI flags - highest priority in the config hierarchy.
	f := rootCmd.Flags()

	cliOverrides.ConfigPath = f.StringP("config", "f", "", "Path to YAML config file (overrides MOODLENS_CONFIG env)")
	cliOverrides.HTTPAddr = f.String("http-addr", "", "HTTP listen address")

	// Lexicon flags
	cliOverrides.LexiconBaseURL = f.String("lexicon-url", "", "Base URL for remote lexicon documents")
	cliOverrides.LexiconPath = f.String("lexicon-path", "", "Local lexicon JSON file (takes precedence over remote)")
	cliOverrides.LexiconCache = f.String("lexicon-cache", "", "On-disk cache path for fetched lexicons")

	// Scoring flags
	cliOverrides.ContrastBoost = f.Float64("contrast-boost", 1.6, "Weight multiplier for words after a contrast marker (>= 1.0)")
	cliOverrides.NegationFactor = f.Float64("negation-factor", -0.8, "Multiplier applied to negated matches (< 0)")

	// Admin flags
	cliOverrides.AdminEnabled = f.Bool("admin", false, "Enable admin endpoints")
	cliOverrides.AdminUser = f.String("admin-user", "", "Admin username")
	cliOverrides.AdminPassword = f.String("admin-password", "", "Admin password")

	// Security flags
	cliOverrides.AllowedOrigins = f.String("allowed-origins", "", "CORS allowed origins (comma-separated, \"*\" for all)")
	cliOverrides.MaxTextBytes = f.Int64("max-text-bytes", 0, "Maximum scoring text payload size in bytes")

	// MCP flag
	cliOverrides.MCPEnabled = f.Bool("mcp", false, "Enable the MCP endpoint")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// run implements the server startup sequence after CLI flags are parsed.
func run(flags *pflag.FlagSet, cliOverrides *core.CLIOverrides) error {
	core.PrintBanner()

	// Resolve config path: --config flag > MOODLENS_CONFIG env var
	configPath := ""
	if cliOverrides.ConfigPath != nil && *cliOverrides.ConfigPath != "" {
		configPath = *cliOverrides.ConfigPath
	} else {
		configPath = os.Getenv("MOODLENS_CONFIG")
	}

	// Load config through hierarchy: defaults -> YAML -> env vars
	cfg, err := core.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Apply CLI flag overrides (only flags that were explicitly set)
	applyExplicitFlags(flags, cfg, cliOverrides)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log.Printf("HTTP: %s", cfg.Server.HTTPAddr)
	if cfg.Lexicon.Path != "" {
		log.Printf("Lexicon file: %s", cfg.Lexicon.Path)
	} else if cfg.Lexicon.BaseURL != "" {
		log.Printf("Lexicon remote: %s/%s", cfg.Lexicon.BaseURL, cfg.Lexicon.Filename)
	} else {
		log.Println("No lexicon source configured, built-in word lists will be used")
	}

	// Lexicon loader with on-disk cache
	loader := lexicon.NewLoader(lexicon.LoaderConfig{
		BaseURL:   cfg.Lexicon.BaseURL,
		Filename:  cfg.Lexicon.Filename,
		Path:      cfg.Lexicon.Path,
		Timeout:   cfg.Lexicon.FetchTimeout,
		CachePath: cfg.Lexicon.CachePath,
		Compress:  cfg.Lexicon.Compress,
	})

	// Typing-activity tracker with background decay
	tracker := signal.NewTracker(cfg.Signal.DecayInterval, cfg.Signal.DecayRate)
	tracker.Start()
	log.Println("Activity tracker started")

	mapper := signal.NewMapper(cfg.Signal.LerpRate)

	// HTTP server starts immediately; the lexicon resolves in the background
	// so a slow or unreachable remote never delays startup.
	httpServer := api.NewServer(cfg.Server.HTTPAddr, cfg, loader, tracker, mapper)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		lex := loader.Load(ctx)
		httpServer.SetLexicon(lex)
		st := lex.Stats()
		log.Printf("Lexicon ready (source=%s, anger=%d, joy=%d, sad=%d, phrases=%d)",
			st.Source, st.Entries["anger"], st.Entries["joy"], st.Entries["sad"], st.Phrases)
	}()

	go func() {
		if err := httpServer.Start(); err != nil {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	log.Println("MoodLens is ready!")
	log.Println("--------------------------------------------")

	// Wait for shutdown signal
	core.WaitForShutdown(ctx, cancel)

	log.Println("Initiating graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	tracker.Stop()

	log.Println("MoodLens shutdown complete")
	return nil
}

// applyExplicitFlags applies only the CLI flags that were explicitly set
// by the user on the command line. Unset flags are ignored so they do not
// override values resolved from YAML or environment variables.
func applyExplicitFlags(flags *pflag.FlagSet, cfg *core.Config, o *core.CLIOverrides) {
	overrides := core.CLIOverrides{}

	if flags.Changed("http-addr") {
		overrides.HTTPAddr = o.HTTPAddr
	}
	if flags.Changed("lexicon-url") {
		overrides.LexiconBaseURL = o.LexiconBaseURL
	}
	if flags.Changed("lexicon-path") {
		overrides.LexiconPath = o.LexiconPath
	}
	if flags.Changed("lexicon-cache") {
		overrides.LexiconCache = o.LexiconCache
	}
	if flags.Changed("contrast-boost") {
		overrides.ContrastBoost = o.ContrastBoost
	}
	if flags.Changed("negation-factor") {
		overrides.NegationFactor = o.NegationFactor
	}
	if flags.Changed("admin") {
		overrides.AdminEnabled = o.AdminEnabled
	}
	if flags.Changed("admin-user") {
		overrides.AdminUser = o.AdminUser
	}
	if flags.Changed("admin-password") {
		overrides.AdminPassword = o.AdminPassword
	}
	if flags.Changed("allowed-origins") {
		overrides.AllowedOrigins = o.AllowedOrigins
	}
	if flags.Changed("max-text-bytes") {
		overrides.MaxTextBytes = o.MaxTextBytes
	}
	if flags.Changed("mcp") {
		overrides.MCPEnabled = o.MCPEnabled
	}

	cfg.ApplyCLIOverrides(&overrides)
}
