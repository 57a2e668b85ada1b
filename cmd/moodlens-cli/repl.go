package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

const replHelp = `
MoodLens Interactive Shell — available commands:

  Scoring:
    ping                              Check server health
    score <text>                      Score a text (quote multi-word text)
      score <text> --sentences        Score each sentence independently
    stats                             Active lexicon statistics
    signal                            Current visual parameters + activity

  Config (requires credentials in connection string):
    config                            Show full runtime config
    config get <section>              Show one section
    config set <key> <value>          Set a runtime parameter
      e.g. config set scoring.contrastBoost 2.0

  Admin (requires credentials):
    reload                            Re-run the lexicon load chain

  Shell:
    \help                             Show this help
    \status                           Show connection info
    \quit  (or exit, quit, Ctrl-D)    Exit
`

// runREPL starts the interactive shell. conn and httpClient are already
// initialised by the cobra PersistentPreRunE.
func runREPL(c *cli) {
	// Step 1: verify server is reachable (silent — no output).
	if err := c.silentGet("/health"); err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot reach %s — %v\n", c.conn.BaseURL(), err)
		os.Exit(1)
	}

	// Step 2: if credentials provided, verify them (silent check).
	if c.conn.User != "" {
		if err := c.silentAdminGet("/v1/config"); err != nil {
			fmt.Fprintf(os.Stderr, "error: authentication failed for user %q — check your credentials\n", c.conn.User)
			os.Exit(1)
		}
	}

	fmt.Printf("Connected to MoodLens at %s\nType \\help for commands, \\quit to exit.\n\n",
		c.conn.BaseURL())

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("moodlens> ")

		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if done := dispatchREPL(c, line); done {
			fmt.Println("Bye.")
			break
		}
	}
}

// dispatchREPL parses and executes one REPL line.
// Returns true when the user wants to quit.
func dispatchREPL(c *cli, line string) bool {
	parts := tokenize(line)
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])

	switch cmd {
	// ── Quit ────────────────────────────────────────────────
	case `\quit`, `\q`, "exit", "quit":
		return true

	// ── Help ────────────────────────────────────────────────
	case `\help`, `\h`, "help":
		fmt.Print(replHelp)

	// ── Status ──────────────────────────────────────────────
	case `\status`:
		fmt.Printf("server:  %s\n", c.conn.BaseURL())
		if c.conn.User != "" {
			fmt.Printf("user:    %s\n", c.conn.User)
		}

	// ── Scoring ─────────────────────────────────────────────
	case "ping":
		if err := c.getJSON("/health"); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}

	case "score":
		replScore(c, parts[1:])

	case "stats":
		c.getJSON("/v1/lexicon/stats") //nolint:errcheck

	case "signal":
		c.getJSON("/v1/signal") //nolint:errcheck

	// ── Config ──────────────────────────────────────────────
	case "config":
		if len(parts) < 2 {
			c.adminGet("/v1/config") //nolint:errcheck
		} else {
			switch parts[1] {
			case "show":
				c.adminGet("/v1/config") //nolint:errcheck
			case "get":
				if len(parts) < 3 {
					fmt.Fprintln(os.Stderr, "usage: config get <section>")
				} else {
					c.configGetSection(parts[2]) //nolint:errcheck
				}
			case "set":
				if len(parts) < 4 {
					fmt.Fprintln(os.Stderr, "usage: config set <key> <value>")
				} else {
					c.configSet(parts[2], parts[3]) //nolint:errcheck
				}
			default:
				fmt.Fprintf(os.Stderr, "unknown config subcommand %q — use show/get/set\n", parts[1])
			}
		}

	// ── Admin ───────────────────────────────────────────────
	case "reload":
		c.adminPost("/admin/lexicon/reload", "") //nolint:errcheck

	default:
		fmt.Fprintf(os.Stderr, "unknown command %q — type \\help for available commands\n", cmd)
	}

	return false
}

// ── REPL command helpers ─────────────────────────────────────

func replScore(c *cli, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: score <text> [--sentences]")
		return
	}
	text := args[0]
	perSentence := false

	for i := 1; i < len(args); i++ {
		if args[i] == "--sentences" || args[i] == "-s" {
			perSentence = true
		}
	}

	body, _ := json.Marshal(map[string]any{"text": text})
	path := "/v1/score"
	if perSentence {
		path = "/v1/score/sentences"
	}
	c.postJSON(path, string(body)) //nolint:errcheck
}

// tokenize splits a line into tokens respecting quoted strings.
func tokenize(line string) []string {
	var tokens []string
	var cur strings.Builder
	inQuote := false
	quoteChar := rune(0)

	for _, ch := range line {
		switch {
		case inQuote:
			if ch == quoteChar {
				inQuote = false
			} else {
				cur.WriteRune(ch)
			}
		case ch == '"' || ch == '\'':
			inQuote = true
			quoteChar = ch
		case ch == ' ' || ch == '\t':
			if cur.Len() > 0 {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(ch)
		}
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}
