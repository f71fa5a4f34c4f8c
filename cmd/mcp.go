package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/saneksa/code-rag-review/internal/index"
	"github.com/saneksa/code-rag-review/internal/llm"
	"github.com/saneksa/code-rag-review/internal/retrieve"
	"github.com/saneksa/code-rag-review/internal/review"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing index search and review tools",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	indexDir, err := workingIndexDir()
	if err != nil {
		return err
	}
	idx, err := index.Open(cfg, indexDir)
	if err != nil {
		return err
	}
	defer idx.Close()

	s := mcpserver.NewMCPServer("code-rag-review", "1.0.0", mcpserver.WithToolCapabilities(false))

	s.AddTool(searchIndexTool(), makeSearchHandler(idx))
	s.AddTool(indexStatusTool(), makeStatusHandler(idx))
	s.AddTool(reviewDiffTool(), makeReviewHandler(idx))

	return mcpserver.ServeStdio(s)
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// --- Tool schema builders ---

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func searchIndexTool() mcp.Tool {
	return mcp.NewTool("search_index",
		mcp.WithDescription("Semantically search the indexed codebase. Returns the most similar code chunks with file paths, line numbers, and similarity scores."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language or code query to search for"),
		),
		mcp.WithNumber("k",
			mcp.Description("Maximum number of chunks to return (default 10)"),
		),
	)
}

func indexStatusTool() mcp.Tool {
	return mcp.NewTool("index_status",
		mcp.WithDescription("Report how the index was built: embedding model, chunking configuration, and record counts."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
	)
}

func reviewDiffTool() mcp.Tool {
	return mcp.NewTool("review_diff",
		mcp.WithDescription("Review a unified diff grounded in the indexed codebase. Retrieves related chunks and asks the review model for feedback."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("diff",
			mcp.Required(),
			mcp.Description("Unified diff text of the change to review"),
		),
		mcp.WithNumber("k",
			mcp.Description("Number of context chunks to retrieve (default 10)"),
		),
	)
}

// --- Handler factories ---

func makeSearchHandler(idx *index.Indexer) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		if query == "" {
			return mcp.NewToolResultError("query is required"), nil
		}
		k := req.GetInt("k", cfg.TopK)
		if k <= 0 {
			k = cfg.TopK
		}

		results, err := idx.Query(ctx, query, k)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}

		return mcp.NewToolResultText(formatSearchResults(query, results)), nil
	}
}

func makeStatusHandler(idx *index.Indexer) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		m, err := idx.Manifest()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("manifest unavailable: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf(
			"## Index status\n\n**Embedding model:** %s  \n**Chunk mode:** %s  \n**Chunk size:** %d chars  \n**Overlap:** %d lines  \n**Embedding dim:** %d  \n**Files:** %d  \n**Chunks:** %d  \n**Built:** %s\n",
			m.EmbeddingModel, m.ChunkMode, m.ChunkSize, m.OverlapLines,
			m.EmbeddingDim, m.FileCount, m.ChunkCount, m.BuiltAt.Format("2006-01-02 15:04:05 MST"),
		)), nil
	}
}

func makeReviewHandler(idx *index.Indexer) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		diff := req.GetString("diff", "")
		if strings.TrimSpace(diff) == "" {
			return mcp.NewToolResultError("diff is required"), nil
		}
		k := req.GetInt("k", cfg.TopK)
		if k <= 0 {
			k = cfg.TopK
		}

		embedText := diff
		if len(embedText) > diffEmbedLimit {
			embedText = embedText[:diffEmbedLimit]
		}
		chunks, err := idx.Query(ctx, embedText, k)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("retrieval failed: %v", err)), nil
		}

		reviewer := review.New(llm.NewOllamaChat(cfg.OllamaURL, cfg.ChatModel))
		text, err := reviewer.Review(ctx, diff, chunks)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("review failed: %v", err)), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}

// --- Formatting helpers ---

func formatSearchResults(query string, results []retrieve.Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for query: %q", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search results for %q (%d chunks)\n\n", query, len(results))

	for i, r := range results {
		c := r.Chunk
		fmt.Fprintf(&sb, "### Result %d: `%s` (score %.3f)\n\n", i+1, c.Path, r.Score)
		fmt.Fprintf(&sb, "**Lines:** %d-%d  \n**Language:** %s  \n**Strategy:** %s",
			c.StartLine, c.EndLine, c.Language, c.Strategy)
		if c.Symbol != "" {
			fmt.Fprintf(&sb, "  \n**Symbol:** %s %s", c.NodeType, c.Symbol)
		}
		fmt.Fprintf(&sb, "\n\n```%s\n%s\n```\n\n", strings.ToLower(c.Language), c.Content)
	}

	return sb.String()
}
