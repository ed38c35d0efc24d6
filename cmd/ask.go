package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	askDirect bool
	askNotes  []string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askDirect, "direct", false, "skip retrieval and answer without context")
	askCmd.Flags().StringArrayVar(&askNotes, "note", nil, "extra text to index before asking (repeatable)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
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
	if err := initializeAgent(ctx, ag, os.Stderr); err != nil {
		return err
	}

	if len(askNotes) > 0 {
		n, err := ag.EmbedTexts(ctx, askNotes)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Indexed %d chunk(s) from notes.\n", n)
	}

	question := strings.Join(args, " ")

	var answer string
	if askDirect {
		answer, err = ag.GenerateDirectResponse(ctx, question)
	} else {
		answer, err = ag.GenerateResponse(ctx, question)
	}
	if err != nil {
		return err
	}

	fmt.Println(answer)
	return nil
}
