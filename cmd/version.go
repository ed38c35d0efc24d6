package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sagekit/sage/internal/config"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "0.1.0"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and configuration information",
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) error {
	fmt.Printf("sage %s\n", AppVersion)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Configuration: invalid (%v)\n", err)
		return nil
	}

	fmt.Println("Configuration:")
	fmt.Printf("  Provider: %s\n", cfg.Provider)
	fmt.Printf("  Model: %s\n", cfg.ModelName)
	fmt.Printf("  Embedder: %s (%d dimensions)\n", cfg.EmbedderModel, cfg.EmbeddingDim)
	fmt.Printf("  Registry: %s\n", cfg.RegistryURL)
	fmt.Printf("  Chunking: %d characters, %d overlap\n", cfg.ChunkSize, cfg.ChunkOverlap)
	fmt.Printf("  Retrieval: top %d\n", cfg.SearchTopK)

	if key := cfg.GeminiAPIKey; len(key) >= 8 {
		fmt.Printf("  SAGE_GEMINI_API_KEY: %s...%s (configured)\n", key[:4], key[len(key)-4:])
	} else if key != "" {
		fmt.Println("  SAGE_GEMINI_API_KEY: configured")
	} else {
		fmt.Println("  SAGE_GEMINI_API_KEY: not set")
	}

	return nil
}
