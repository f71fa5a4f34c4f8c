package chunker

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// oversizeFactor is how far past the character budget a structural chunk may
// grow before it is re-split with windowed chunking.
const oversizeFactor = 1.35

// Strategy records how a chunk was produced.
type Strategy string

const (
	StrategyStructural Strategy = "structural"
	StrategyWindowed   Strategy = "windowed"
)

// Mode selects the chunking behavior for an indexing run.
type Mode string

const (
	ModeStructural Mode = "structural"
	ModeWindowed   Mode = "windowed"
)

// NodeKind is the closed set of syntactic constructs that produce structural
// chunks. Every supported grammar maps its node types into this set.
type NodeKind string

const (
	KindFunction      NodeKind = "function"
	KindMethod        NodeKind = "method"
	KindClass         NodeKind = "class"
	KindInterface     NodeKind = "interface"
	KindEnum          NodeKind = "enum"
	KindTypeAlias     NodeKind = "type_alias"
	KindConstructor   NodeKind = "constructor"
	KindVariableGroup NodeKind = "variable_group"
)

// Part is a chunk extracted from a source file before embedding.
// StartLine and EndLine are 1-based and inclusive. NodeType and Symbol are
// set only for structural chunks.
type Part struct {
	StartLine int
	EndLine   int
	Content   string
	Strategy  Strategy
	NodeType  NodeKind
	Symbol    string
}

// Options configures a single Chunk call.
type Options struct {
	Path         string
	Language     string
	Mode         Mode
	ChunkSize    int
	OverlapLines int
}

// Chunker splits source files into parts, preferring syntactic boundaries
// when a grammar is registered and falling back to line windows otherwise.
type Chunker struct {
	registry *Registry
}

// New creates a chunker backed by the given registry.
func New(r *Registry) *Chunker {
	return &Chunker{registry: r}
}

// Chunk splits src into an ordered sequence of parts. Structural chunking is
// used when the mode asks for it and a grammar is registered for the file;
// every other file gets windowed chunking.
func (c *Chunker) Chunk(src []byte, opts Options) ([]Part, error) {
	if opts.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", opts.ChunkSize)
	}
	if opts.OverlapLines < 0 {
		opts.OverlapLines = 0
	}

	if opts.Mode == ModeStructural {
		spec, _ := c.registry.Lookup(opts.Path)
		if spec != nil {
			parts, err := c.structural(src, spec, opts)
			if err != nil {
				return nil, err
			}
			if len(parts) > 0 {
				return parts, nil
			}
			// No chunkable declaration in the whole file.
		}
	}

	return Windowed(string(src), opts.ChunkSize, opts.OverlapLines), nil
}

// Windowed splits text into line windows against a character budget. Lines
// are accumulated greedily (one newline counted per join) until adding the
// next line would exceed chunkSize; a chunk always holds at least one line.
// Consecutive windows overlap by min(overlap, lineCount-1) lines, so the
// window always advances by at least one line and the sequence is finite.
func Windowed(text string, chunkSize, overlap int) []Part {
	lines := splitLines(text)
	if len(lines) == 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}

	var parts []Part
	for start := 0; start < len(lines); {
		size := len(lines[start])
		end := start + 1
		for end < len(lines) && size < chunkSize {
			next := size + 1 + len(lines[end])
			if next > chunkSize {
				break
			}
			size = next
			end++
		}

		parts = append(parts, Part{
			StartLine: start + 1,
			EndLine:   end,
			Content:   strings.Join(lines[start:end], "\n"),
			Strategy:  StrategyWindowed,
		})

		if end >= len(lines) {
			break
		}
		back := overlap
		if back > end-start-1 {
			back = end - start - 1
		}
		start = end - back
	}
	return parts
}

// structural parses src and emits one part per chunkable declaration.
// Oversized declarations are re-split with windowed chunking, translated back
// to absolute line numbers. Returns nil when the file has no chunkable node.
func (c *Chunker) structural(src []byte, spec *LanguageSpec, opts Options) ([]Part, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(spec.Language)
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", opts.Path, err)
	}
	defer tree.Close()

	q, err := sitter.NewQuery([]byte(spec.Query), spec.Language)
	if err != nil {
		return nil, fmt.Errorf("compile query for %s: %w", opts.Path, err)
	}
	defer q.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, tree.RootNode())

	var caps []capture
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		var node *sitter.Node
		var names []string
		for _, cap := range m.Captures {
			switch q.CaptureNameForId(cap.Index) {
			case "chunk":
				node = cap.Node
			case "name":
				names = append(names, cap.Node.Content(src))
			}
		}
		if node == nil {
			continue
		}
		kind, ok := spec.resolveKind(node)
		if !ok {
			continue
		}
		symbol := strings.Join(names, ", ")
		if kind == KindMethod && symbol == "constructor" {
			kind = KindConstructor
		}
		caps = append(caps, capture{
			symbol:    symbol,
			kind:      kind,
			startLine: int(node.StartPoint().Row) + 1,
			endLine:   int(node.EndPoint().Row) + 1,
			startByte: node.StartByte(),
			endByte:   node.EndByte(),
		})
	}

	// Multi-declarator statements match once per declarator; join their
	// names into a single capture before deduplication.
	caps = mergeSameRange(caps)

	// A declaration can be captured by more than one query pattern; collapse
	// overlaps and keep only the outermost node.
	caps = dedup(caps)
	if len(caps) == 0 {
		return nil, nil
	}

	lines := splitLines(string(src))
	budget := int(float64(opts.ChunkSize) * oversizeFactor)

	var parts []Part
	for _, cap := range caps {
		start, end := cap.startLine, cap.endLine
		if start < 1 {
			start = 1
		}
		if end > len(lines) {
			end = len(lines)
		}
		if start > end {
			continue
		}
		raw := strings.Join(lines[start-1:end], "\n")
		content := strings.TrimSpace(raw)

		if len(content) > budget {
			// Too large to embed as one unit; fall back to line windows
			// inside the declaration, keeping the structural tagging.
			for _, w := range Windowed(raw, opts.ChunkSize, opts.OverlapLines) {
				parts = append(parts, Part{
					StartLine: start + w.StartLine - 1,
					EndLine:   start + w.EndLine - 1,
					Content:   strings.TrimSpace(w.Content),
					Strategy:  StrategyStructural,
					NodeType:  cap.kind,
					Symbol:    cap.symbol,
				})
			}
			continue
		}

		parts = append(parts, Part{
			StartLine: start,
			EndLine:   end,
			Content:   content,
			Strategy:  StrategyStructural,
			NodeType:  cap.kind,
			Symbol:    cap.symbol,
		})
	}

	sort.SliceStable(parts, func(i, j int) bool {
		if parts[i].StartLine != parts[j].StartLine {
			return parts[i].StartLine < parts[j].StartLine
		}
		return parts[i].EndLine < parts[j].EndLine
	})
	return parts, nil
}

// splitLines splits text on newlines, dropping the phantom empty line a
// trailing newline would otherwise produce.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// mergeSameRange collapses captures that cover the same byte range into one,
// comma-joining the declared names (e.g. "var a, b = 1, 2" → "a, b").
func mergeSameRange(caps []capture) []capture {
	if len(caps) <= 1 {
		return caps
	}
	index := make(map[[2]uint32]int, len(caps))
	var out []capture
	for _, c := range caps {
		key := [2]uint32{c.startByte, c.endByte}
		if i, ok := index[key]; ok {
			if c.symbol != "" {
				if out[i].symbol == "" {
					out[i].symbol = c.symbol
				} else {
					out[i].symbol += ", " + c.symbol
				}
			}
			continue
		}
		index[key] = len(out)
		out = append(out, c)
	}
	return out
}

// dedup removes captures that are fully contained within a larger capture.
func dedup(caps []capture) []capture {
	if len(caps) <= 1 {
		return caps
	}
	// Sort by start byte ascending, then by size descending (larger first).
	sort.Slice(caps, func(i, j int) bool {
		if caps[i].startByte != caps[j].startByte {
			return caps[i].startByte < caps[j].startByte
		}
		return (caps[i].endByte - caps[i].startByte) > (caps[j].endByte - caps[j].startByte)
	})

	var result []capture
	var lastEnd uint32
	for _, c := range caps {
		if c.startByte >= lastEnd || lastEnd == 0 {
			result = append(result, c)
			if c.endByte > lastEnd {
				lastEnd = c.endByte
			}
		}
		// Skip captures contained within the previous one.
	}
	return result
}

type capture struct {
	symbol    string
	kind      NodeKind
	startLine int
	endLine   int
	startByte uint32
	endByte   uint32
}
