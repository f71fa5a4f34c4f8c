package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/saneksa/code-rag-review/internal/index"
)

var indexCmd = &cobra.Command{
	Use:   "index <path>",
	Short: "Build the semantic index for a source tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		idx, err := index.New(cfg, resolveIndexDir(root))
		if err != nil {
			return err
		}
		defer idx.Close()

		fmt.Printf("Indexing %s...\n", root)
		start := time.Now()

		stats, err := idx.Build(cmd.Context(), root)
		elapsed := time.Since(start)

		if stats != nil {
			fmt.Printf("\nDone in %s\n", elapsed.Round(time.Millisecond))
			fmt.Printf("  Files:   %d total, %d indexed, %d skipped\n",
				stats.FilesTotal, stats.FilesIndexed, stats.FilesSkipped)
			fmt.Printf("  Chunks:  %d (%d reused, %d embedded)\n",
				stats.ChunksTotal, stats.ChunksReused, stats.ChunksEmbedded)
		}

		return err
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}
