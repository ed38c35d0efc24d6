package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sage",
	Short: "sage is a terminal AI assistant grounded in your own data",
	Long: `sage answers questions using a language model grounded in data pulled
from your provider registry. On startup it fetches every provider's data,
chunks and embeds it into an in-memory vector index, and retrieves the
most relevant excerpts for each question.

Running sage with no arguments starts interactive chat mode.`,
	SilenceUsage: true,
	RunE:         runChat,
}

// Execute runs the root command.
func Execute() error {
	// A .env file is optional; real environment variables win.
	_ = godotenv.Load()
	return rootCmd.Execute()
}
