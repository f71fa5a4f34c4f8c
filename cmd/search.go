package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/saneksa/code-rag-review/internal/index"
	"github.com/saneksa/code-rag-review/internal/retrieve"
)

var (
	pathStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	scoreStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	metaStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the index for code relevant to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")

		indexDir, err := workingIndexDir()
		if err != nil {
			return err
		}
		idx, err := index.Open(cfg, indexDir)
		if err != nil {
			return err
		}
		defer idx.Close()

		results, err := idx.Query(cmd.Context(), query, cfg.TopK)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No results.")
			return nil
		}

		for i, r := range results {
			fmt.Println(formatResult(i+1, r))
		}
		return nil
	},
}

func formatResult(rank int, r retrieve.Result) string {
	c := r.Chunk
	var b strings.Builder
	fmt.Fprintf(&b, "%d. %s %s\n",
		rank,
		pathStyle.Render(fmt.Sprintf("%s:%d-%d", c.Path, c.StartLine, c.EndLine)),
		scoreStyle.Render(fmt.Sprintf("(%.3f)", r.Score)),
	)
	if c.Symbol != "" {
		fmt.Fprintf(&b, "   %s\n", metaStyle.Render(fmt.Sprintf("%s %s [%s]", c.NodeType, c.Symbol, c.Language)))
	} else {
		fmt.Fprintf(&b, "   %s\n", metaStyle.Render(fmt.Sprintf("%s chunk [%s]", c.Strategy, c.Language)))
	}
	content := c.Content
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		content = content[:idx]
	}
	if len(content) > 120 {
		content = content[:120] + "..."
	}
	fmt.Fprintf(&b, "   %s\n", content)
	return b.String()
}

func init() {
	rootCmd.AddCommand(searchCmd)
}
