package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/saneksa/code-rag-review/internal/index"
	"github.com/saneksa/code-rag-review/internal/llm"
	"github.com/saneksa/code-rag-review/internal/review"
)

// diffEmbedLimit caps how much of the diff text is embedded for retrieval;
// the full diff still goes into the review prompt.
const diffEmbedLimit = 8000

var (
	flagStaged bool
	flagRange  string
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review the current git diff grounded in the indexed codebase",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		wd, err := os.Getwd()
		if err != nil {
			return err
		}

		indexDir, err := workingIndexDir()
		if err != nil {
			return err
		}
		idx, err := index.Open(cfg, indexDir)
		if err != nil {
			return err
		}
		defer idx.Close()

		diff, err := review.CollectDiff(ctx, wd, review.DiffOptions{
			Staged: flagStaged,
			Range:  flagRange,
		})
		if err != nil {
			return err
		}

		fmt.Fprintln(os.Stderr, "Retrieving related code...")
		embedText := diff
		if len(embedText) > diffEmbedLimit {
			embedText = embedText[:diffEmbedLimit]
		}
		chunks, err := idx.Query(ctx, embedText, cfg.TopK)
		if err != nil {
			return err
		}

		fmt.Fprintln(os.Stderr, "Generating review...")
		reviewer := review.New(llm.NewOllamaChat(cfg.OllamaURL, cfg.ChatModel))
		text, err := reviewer.Review(ctx, diff, chunks)
		if err != nil {
			return err
		}

		rendered, err := glamour.Render(text, "dark")
		if err != nil {
			// Plain text still beats no review.
			fmt.Println(text)
			return nil
		}
		fmt.Print(rendered)
		return nil
	},
}

func init() {
	reviewCmd.Flags().BoolVar(&flagStaged, "staged", false, "review staged changes instead of the working tree")
	reviewCmd.Flags().StringVar(&flagRange, "range", "", "review an explicit revision range (e.g. main...HEAD)")
	rootCmd.AddCommand(reviewCmd)
}
