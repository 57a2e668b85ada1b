package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/moodlens/moodlens/pkg/core"
	"github.com/spf13/cobra"
)

// cli holds the shared state for all subcommands.
type cli struct {
	conn       *core.ConnInfo
	httpClient *http.Client
}

func main() {
	var connectStr string
	var interactive bool

	c := &cli{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	rootCmd := &cobra.Command{
		Use:   "moodlens-cli",
		Short: "MoodLens CLI — client for MoodLens servers",
		Long:  "A command-line client for scoring text against and administering MoodLens instances, similar to redis-cli or psql.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if connectStr == "" {
				connectStr = os.Getenv("MOODLENS_URL")
			}
			if connectStr == "" {
				connectStr = "moodlens://localhost:7070"
			}
			info, err := core.ParseConnString(connectStr)
			if err != nil {
				return fmt.Errorf("invalid connection string: %w", err)
			}
			c.conn = info
			return nil
		},
		// When called with no subcommand, drop into interactive shell.
		RunE: func(cmd *cobra.Command, args []string) error {
			runREPL(c)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&connectStr, "connect", "", "Connection string (moodlens://[user:pass@]host[:port])")
	rootCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Start interactive shell (default when no subcommand given)")

	// ── Health ──────────────────────────────────────────────
	rootCmd.AddCommand(&cobra.Command{
		Use:   "ping",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.getJSON("/health")
		},
	})

	// ── Score ───────────────────────────────────────────────
	scoreCmd := &cobra.Command{
		Use:   "score [text]",
		Short: "Score a text into anger/joy/sad intensities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			perSentence, _ := cmd.Flags().GetBool("sentences")
			body, err := json.Marshal(map[string]any{"text": args[0]})
			if err != nil {
				return err
			}
			path := "/v1/score"
			if perSentence {
				path = "/v1/score/sentences"
			}
			return c.postJSON(path, string(body))
		},
	}
	scoreCmd.Flags().Bool("sentences", false, "Score each sentence independently")
	rootCmd.AddCommand(scoreCmd)

	// ── Lexicon stats ───────────────────────────────────────
	rootCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show active lexicon statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.getJSON("/v1/lexicon/stats")
		},
	})

	// ── Visual signal ───────────────────────────────────────
	rootCmd.AddCommand(&cobra.Command{
		Use:   "signal",
		Short: "Show the current visual parameters and typing activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.getJSON("/v1/signal")
		},
	})

	// ── Config commands ─────────────────────────────────────
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Runtime configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show active server configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.adminGet("/v1/config")
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "get [section]",
		Short: "Show a specific config section (server, lexicon, scoring, signal, admin, security)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.configGetSection(args[0])
		},
	})

	configSetCmd := &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Set a runtime config parameter",
		Long: `Set a runtime config parameter. Supported keys:
  scoring.contrastBoost        (float >= 1.0)
  scoring.negationFactor       (float < 0)
  security.allowedOrigins      (string)
  security.maxRequestBody      (int64, bytes)
  security.maxTextBytes        (int64, bytes)`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.configSet(args[0], args[1])
		},
	}
	configCmd.AddCommand(configSetCmd)

	rootCmd.AddCommand(configCmd)

	// ── Admin commands ──────────────────────────────────────
	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "Server administration commands",
	}

	adminCmd.AddCommand(&cobra.Command{
		Use:   "reload",
		Short: "Re-run the lexicon load chain and install the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.adminPost("/admin/lexicon/reload", "")
		},
	})

	rootCmd.AddCommand(adminCmd)

	// --interactive flag explicitly requested
	rootCmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if interactive {
			runREPL(c)
			os.Exit(0)
		}
		return nil
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// ── HTTP helpers ────────────────────────────────────────────

func (c *cli) doRequest(method, path, body string, admin bool) error {
	url := c.conn.BaseURL() + path

	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	if admin && c.conn.User != "" {
		req.SetBasicAuth(c.conn.User, c.conn.Password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 400 {
		fmt.Fprintf(os.Stderr, "Error %d: %s\n", resp.StatusCode, string(data))
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	// Pretty-print JSON
	var prettyJSON map[string]any
	if err := json.Unmarshal(data, &prettyJSON); err == nil {
		out, _ := json.MarshalIndent(prettyJSON, "", "  ")
		fmt.Println(string(out))
	} else {
		// Try as array
		var arr []any
		if err := json.Unmarshal(data, &arr); err == nil {
			out, _ := json.MarshalIndent(arr, "", "  ")
			fmt.Println(string(out))
		} else {
			fmt.Println(string(data))
		}
	}

	return nil
}

func (c *cli) getJSON(path string) error {
	return c.doRequest("GET", path, "", false)
}

func (c *cli) postJSON(path, body string) error {
	return c.doRequest("POST", path, body, false)
}

func (c *cli) adminGet(path string) error {
	return c.doRequest("GET", path, "", true)
}

func (c *cli) adminPost(path, body string) error {
	return c.doRequest("POST", path, body, true)
}

// silentGet and silentAdminGet perform a request without printing output —
// used for connection/auth verification in the REPL startup.
func (c *cli) silentGet(path string) error {
	return c.doSilentRequest("GET", path, "", false)
}

func (c *cli) silentAdminGet(path string) error {
	return c.doSilentRequest("GET", path, "", true)
}

func (c *cli) doSilentRequest(method, path, body string, admin bool) error {
	url := c.conn.BaseURL() + path
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if admin && c.conn.User != "" {
		req.SetBasicAuth(c.conn.User, c.conn.Password)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}

// ── Config helpers ──────────────────────────────────────────

func (c *cli) configGetSection(section string) error {
	url := c.conn.BaseURL() + "/v1/config"
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.conn.User != "" {
		req.SetBasicAuth(c.conn.User, c.conn.Password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer resp.Body.Close()

	var full map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&full); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}

	val, ok := full[section]
	if !ok {
		valid := make([]string, 0, len(full))
		for k := range full {
			valid = append(valid, k)
		}
		return fmt.Errorf("unknown section %q, valid: %v", section, valid)
	}

	out, _ := json.MarshalIndent(val, "", "  ")
	fmt.Println(string(out))
	return nil
}

func (c *cli) configSet(key, value string) error {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) != 2 {
		return fmt.Errorf("key must be section.field (e.g. scoring.contrastBoost)")
	}
	section, field := parts[0], parts[1]

	// Build the JSON patch — type depends on the field
	var fieldJSON string
	switch field {
	case "contrastBoost", "negationFactor", "maxRequestBody", "maxTextBytes": // numeric
		fieldJSON = fmt.Sprintf(`%q:%s`, field, value)
	default: // string (origins, etc.)
		fieldJSON = fmt.Sprintf(`%q:%q`, field, value)
	}

	body := fmt.Sprintf(`{%q:{%s}}`, section, fieldJSON)
	return c.adminPost("/v1/config", body)
}
