// Package review generates a code review for a change, grounded in the most
// relevant chunks of the indexed codebase.
package review

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/saneksa/code-rag-review/internal/llm"
	"github.com/saneksa/code-rag-review/internal/retrieve"
)

const systemPrompt = `You are a senior engineer reviewing a code change. You are given the diff and retrieved source code context from the same codebase.

Point out correctness problems, risky edge cases, and inconsistencies with the surrounding code. Reference file paths and line numbers from the provided context. Be concrete and concise; do not restate the diff. If the change looks sound, say so briefly.`

// DiffOptions selects which change to review.
type DiffOptions struct {
	// Staged reviews the staged changes instead of the working tree.
	Staged bool
	// Range is an explicit revision range (e.g. "main...HEAD"); it takes
	// precedence over Staged.
	Range string
}

// CollectDiff shells out to git for the requested diff. An empty diff is an
// error so the caller does not review nothing.
func CollectDiff(ctx context.Context, repoRoot string, opts DiffOptions) (string, error) {
	args := []string{"diff"}
	switch {
	case opts.Range != "":
		args = append(args, opts.Range)
	case opts.Staged:
		args = append(args, "--staged")
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = repoRoot
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, stderr.String())
	}
	diff := strings.TrimSpace(string(out))
	if diff == "" {
		return "", fmt.Errorf("git %s produced an empty diff, nothing to review", strings.Join(args, " "))
	}
	return diff, nil
}

// BuildPrompt assembles the review prompt from the diff and retrieved chunks.
func BuildPrompt(diff string, chunks []retrieve.Result) string {
	var b strings.Builder

	if len(chunks) > 0 {
		b.WriteString("Relevant source code context from the indexed codebase:\n\n")
		for i, r := range chunks {
			c := r.Chunk
			fmt.Fprintf(&b, "--- Context %d: %s (lines %d-%d", i+1, c.Path, c.StartLine, c.EndLine)
			if c.Symbol != "" {
				fmt.Fprintf(&b, ", %s %s", c.NodeType, c.Symbol)
			}
			b.WriteString(") ---\n")
			b.WriteString(c.Content)
			b.WriteString("\n\n")
		}
	}

	b.WriteString("The change under review:\n\n```diff\n")
	b.WriteString(diff)
	b.WriteString("\n```\n\nReview this change.")
	return b.String()
}

// Reviewer ties retrieval and generation together.
type Reviewer struct {
	generator llm.Generator
}

// New creates a Reviewer using the given generator.
func New(g llm.Generator) *Reviewer {
	return &Reviewer{generator: g}
}

// Review produces review text for the diff, grounding the model in the
// retrieved chunks.
func (r *Reviewer) Review(ctx context.Context, diff string, chunks []retrieve.Result) (string, error) {
	prompt := BuildPrompt(diff, chunks)
	text, err := r.generator.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("generate review: %w", err)
	}
	return text, nil
}
