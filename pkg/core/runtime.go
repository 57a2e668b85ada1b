package core

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
)

// WaitForShutdown blocks until an OS interrupt or termination signal is
// received, then cancels the provided context to initiate graceful shutdown.
func WaitForShutdown(ctx context.Context, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Printf("Received signal %v, initiating shutdown...", sig)
		cancel()
	case <-ctx.Done():
	}
}

// PrintBanner prints the MoodLens ASCII art banner to stdout.
func PrintBanner() {
	banner := `
    __  ___                 ____
   /  |/  /___  ____  ____/ / /   ___  ____  _____
  / /|_/ / __ \/ __ \/ __  / /   / _ \/ __ \/ ___/
 / /  / / /_/ / /_/ / /_/ / /___/  __/ / / (__  )
/_/  /_/\____/\____/\__,_/_____/\___/_/ /_/____/

    Lexical Emotion Scoring for Reactive Visuals
    ────────────────────────────────────────────
`
	fmt.Print(banner)
}
