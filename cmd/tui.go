package cmd

import (
	"github.com/spf13/cobra"

	"github.com/saneksa/code-rag-review/internal/index"
	"github.com/saneksa/code-rag-review/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactively search the index in a terminal UI",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		indexDir, err := workingIndexDir()
		if err != nil {
			return err
		}
		idx, err := index.Open(cfg, indexDir)
		if err != nil {
			return err
		}
		defer idx.Close()

		return tui.Run(idx, cfg.TopK)
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
