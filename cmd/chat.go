package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sagekit/sage/internal/agent"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ag, err := buildAgent(cfg, logger)
	if err != nil {
		return err
	}

	fmt.Printf("sage %s\n", AppVersion)
	if err := initializeAgent(ctx, ag, os.Stdout); err != nil {
		return err
	}
	if ag.IsVectorStoreEmpty() {
		fmt.Println("No provider data indexed; answers will not be grounded.")
	}
	fmt.Println("Type /help for commands, Ctrl+D to exit.")
	fmt.Println()

	// Stream tokens to the terminal as the model produces them.
	unsubscribe := ag.Subscribe(func(ev agent.TokenEvent) {
		if ev.Text != "" {
			fmt.Print(ev.Text)
		}
	})
	defer unsubscribe()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")

		if !scanner.Scan() {
			// EOF (Ctrl+D)
			fmt.Println("\nGoodbye!")
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if handleCommand(ctx, input, ag) {
				break
			}
			continue
		}

		if _, err := ag.GenerateResponse(ctx, input); err != nil {
			fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
			if errors.Is(err, agent.ErrNotReady) {
				return err
			}
			continue
		}
		fmt.Println()
		fmt.Println()
	}

	if err := scanner.Err(); err != nil && err != io.EOF {
		return fmt.Errorf("reading input: %w", err)
	}

	return nil
}

// handleCommand handles slash commands, returning true to exit the loop.
func handleCommand(ctx context.Context, input string, ag *agent.Agent) bool {
	cmd, rest, _ := strings.Cut(input, " ")

	switch cmd {
	case "/help":
		fmt.Println("Commands:")
		fmt.Println("  /help          Show this help")
		fmt.Println("  /status        Show knowledge index status")
		fmt.Println("  /note <text>   Add a note to the knowledge index")
		fmt.Println("  /exit, /quit   Exit sage")
		fmt.Println()

	case "/status":
		fmt.Printf("State: %s\n", ag.State())
		if ag.IsVectorStoreEmpty() {
			fmt.Println("Knowledge index: empty")
		} else {
			fmt.Println("Knowledge index: populated")
		}
		fmt.Println()

	case "/note":
		text := strings.TrimSpace(rest)
		if text == "" {
			fmt.Println("Usage: /note <text>")
			fmt.Println()
			break
		}
		n, err := ag.EmbedTexts(ctx, []string{text})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			break
		}
		fmt.Printf("Indexed %d chunk(s).\n\n", n)

	case "/exit", "/quit":
		fmt.Println("Goodbye!")
		return true

	default:
		fmt.Printf("Unknown command: %s\n", cmd)
		fmt.Println("Type /help to see available commands")
		fmt.Println()
	}

	return false
}
