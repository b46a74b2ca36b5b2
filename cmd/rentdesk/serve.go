package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/michaelbrown/rentdesk/internal/config"
	"github.com/michaelbrown/rentdesk/internal/directory/sqlite"
	"github.com/michaelbrown/rentdesk/internal/llm"
	"github.com/michaelbrown/rentdesk/internal/presets"
	"github.com/michaelbrown/rentdesk/internal/server"
)

var portFlag int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the RentDesk session server",
	Long: `Start the HTTP server that bridges the back-office UI to the assistant.

API endpoints are under /api; each session streams over a WebSocket.

Examples:
  rentdesk serve
  rentdesk serve --port 9090`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := sqlite.Open(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("opening directory: %w", err)
	}
	defer store.Close()

	library := presets.Builtin()
	if cfg.Presets.Dir != "" {
		library, err = presets.Load(cfg.Presets.Dir)
		if err != nil {
			return fmt.Errorf("loading presets: %w", err)
		}
	}

	port := cfg.Server.Port
	if portFlag > 0 {
		port = portFlag
	}

	client := llm.NewClient(cfg.Chat.Endpoint, cfg.Chat.APIKey)
	srv := server.New(cfg, store, library, client)

	// Graceful shutdown on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		srv.Shutdown(context.Background())
	}()

	return srv.Start(port)
}
