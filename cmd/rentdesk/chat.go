package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/michaelbrown/rentdesk/internal/chat"
	"github.com/michaelbrown/rentdesk/internal/config"
	"github.com/michaelbrown/rentdesk/internal/directory/sqlite"
	"github.com/michaelbrown/rentdesk/internal/llm"
	"github.com/michaelbrown/rentdesk/internal/presets"
	"github.com/michaelbrown/rentdesk/internal/tools"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive assistant session in the terminal",
	Long: `Start an interactive conversation with the RentDesk assistant.
The assistant can search the customer directory and draft quick bookings.

Examples:
  rentdesk chat
  rentdesk chat --route /bookings/new`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
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

	route := routeFlag
	if route == "" {
		route = cfg.Chat.DefaultRoute
	}

	fmt.Printf("RentDesk - Back Office Assistant\n")
	fmt.Printf("Endpoint: %s | Route: %s\n", cfg.Chat.Endpoint, route)
	fmt.Printf("Type /help for commands, /quit to exit\n\n")

	session := tools.NewSession()
	registry := tools.NewRegistry()
	tools.RegisterBackOffice(registry, store, library, session,
		func(ctx context.Context, data presets.PartialBookingData) error {
			printBookingUpdate(data)
			return nil
		})

	client := llm.NewClient(cfg.Chat.Endpoint, cfg.Chat.APIKey)
	orch := chat.New(client, registry, route, cfg.Chat.MaxTurns)

	// Wire up callbacks for display
	orch.OnTextDelta = func(delta string) {
		fmt.Print(delta)
	}
	orch.OnToolCall = func(name, arguments string) {
		fmt.Printf("\n  \033[33m⚡ Tool: %s %s\033[0m\n", name, arguments)
	}
	orch.OnToolResult = func(result tools.Result) {
		lines := strings.Split(strings.TrimSpace(result.Content()), "\n")
		preview := lines
		if len(preview) > 8 {
			preview = preview[:8]
		}
		for _, line := range preview {
			fmt.Printf("  \033[90m│ %s\033[0m\n", line)
		}
		if len(lines) > 8 {
			fmt.Printf("  \033[90m│ ... (%d more lines)\033[0m\n", len(lines)-8)
		}
		fmt.Println()
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[36myou>\033[0m ",
		HistoryFile:     "/tmp/rentdesk_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	// Per-request cancellation: Ctrl+C cancels the active request, not the
	// whole app.
	var reqCancel context.CancelFunc
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for range sigCh {
			if reqCancel != nil {
				reqCancel()
			}
		}
	}()

	for {
		input, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nGoodbye!")
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if handleCommand(input, orch, session) {
				continue
			}
		}

		reqCtx, cancel := context.WithCancel(context.Background())
		reqCancel = cancel

		fmt.Printf("\n\033[32mdesk>\033[0m ")
		err = orch.SubmitUserTurn(reqCtx, input)
		wasInterrupted := reqCtx.Err() != nil
		cancel()
		reqCancel = nil

		if err != nil {
			switch {
			case wasInterrupted:
				fmt.Println("\n(interrupted, partial answer kept)")
			case errors.Is(err, llm.ErrRateLimited):
				fmt.Println("\nThe assistant is rate limited. Your message was not consumed; try again shortly.")
			case errors.Is(err, llm.ErrPaymentRequired):
				fmt.Println("\nThe assistant account is out of credit. Your message was not consumed.")
			case errors.Is(err, chat.ErrTurnLimit):
				fmt.Println("\nThe assistant got stuck calling tools. Use /reset to start over.")
			default:
				fmt.Printf("\n\033[31merror: %s\033[0m\n", err)
			}
			fmt.Println()
			continue
		}

		fmt.Printf("\n\n")
	}
}

func printBookingUpdate(data presets.PartialBookingData) {
	fmt.Printf("\n  \033[35m▸ booking draft: %s", data.BookingType)
	if data.CustomerName != "" {
		fmt.Printf(" for %s", data.CustomerName)
	}
	fmt.Printf(", %s, %s → %s\033[0m\n",
		data.VehicleCategory,
		data.PickupDate.Format("2006-01-02"),
		data.ReturnDate.Format("2006-01-02"))
}

func handleCommand(input string, orch *chat.Orchestrator, session *tools.Session) bool {
	switch strings.ToLower(strings.Fields(input)[0]) {
	case "/quit", "/exit", "/q":
		fmt.Println("Goodbye!")
		os.Exit(0)
	case "/reset":
		if err := orch.Reset(); err != nil {
			fmt.Printf("reset failed: %s\n\n", err)
			return true
		}
		session.Reset()
		fmt.Println("Conversation reset.")
		fmt.Println()
	case "/customer":
		if id := session.CurrentCustomerID(); id != "" {
			fmt.Printf("Current customer: %s\n\n", id)
		} else {
			fmt.Println("No customer selected.")
			fmt.Println()
		}
	case "/history":
		data, err := json.MarshalIndent(orch.Messages(), "", "  ")
		if err != nil {
			fmt.Printf("marshal: %s\n\n", err)
			return true
		}
		fmt.Println(string(data))
		fmt.Println()
	case "/help":
		fmt.Println("Commands:")
		fmt.Println("  /help      - Show this help")
		fmt.Println("  /reset     - Clear the conversation and customer selection")
		fmt.Println("  /customer  - Show the currently selected customer")
		fmt.Println("  /history   - Show raw conversation history (JSON)")
		fmt.Println("  /quit      - Exit")
		fmt.Println()
	default:
		fmt.Printf("Unknown command: %s (try /help)\n\n", input)
	}
	return true
}
