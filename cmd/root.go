package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/saneksa/code-rag-review/internal/config"
)

var (
	cfg          = config.Load()
	flagIndexDir string
)

var rootCmd = &cobra.Command{
	Use:   "code-rag-review",
	Short: "Semantic code index and retrieval-grounded change review",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagIndexDir, "index-dir", "", "index directory (default <project>/.ragindex)")
	pf.StringVar(&cfg.OllamaURL, "ollama", cfg.OllamaURL, "ollama base URL")
	pf.StringVar(&cfg.EmbedModel, "embed-model", cfg.EmbedModel, "embedding model")
	pf.StringVar(&cfg.ChatModel, "chat-model", cfg.ChatModel, "generative model for reviews")
	pf.StringVar(&cfg.ChunkMode, "chunk-mode", cfg.ChunkMode, "chunking mode: structural or windowed")
	pf.IntVar(&cfg.ChunkSize, "chunk-size", cfg.ChunkSize, "chunk size budget in characters")
	pf.IntVar(&cfg.OverlapLines, "overlap", cfg.OverlapLines, "overlap lines between windowed chunks")
	pf.IntVar(&cfg.TopK, "k", cfg.TopK, "number of chunks to retrieve")
}

// resolveIndexDir returns the index directory for a project root, honoring
// the --index-dir override.
func resolveIndexDir(root string) string {
	if flagIndexDir != "" {
		return flagIndexDir
	}
	return filepath.Join(root, ".ragindex")
}

// workingIndexDir resolves the index directory for commands that operate on
// the current working directory.
func workingIndexDir() (string, error) {
	if flagIndexDir != "" {
		return flagIndexDir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, ".ragindex"), nil
}
