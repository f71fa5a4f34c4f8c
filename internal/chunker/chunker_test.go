package chunker_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saneksa/code-rag-review/internal/chunker"
	"github.com/saneksa/code-rag-review/internal/chunker/languages"
)

func newChunker() (*chunker.Chunker, *chunker.Registry) {
	reg := chunker.NewRegistry()
	languages.RegisterGo(reg)
	languages.RegisterJavaScript(reg)
	languages.RegisterTypeScript(reg)
	languages.RegisterPython(reg)
	return chunker.New(reg), reg
}

func TestWindowedSixShortLines(t *testing.T) {
	// Six one-character lines against a three-character budget hold two
	// lines per window; with one line of overlap the windows step forward
	// one line at a time.
	text := "a\nb\nc\nd\ne\nf\n"
	parts := chunker.Windowed(text, 3, 1)

	require.Len(t, parts, 5)
	assert.Equal(t, 1, parts[0].StartLine)
	assert.Equal(t, 2, parts[0].EndLine)
	assert.Equal(t, "a\nb", parts[0].Content)
	assert.Equal(t, 2, parts[1].StartLine)
	assert.Equal(t, 3, parts[1].EndLine)
	assert.Equal(t, "b\nc", parts[1].Content)
	assert.Equal(t, 6, parts[4].EndLine)
	assert.Equal(t, "e\nf", parts[4].Content)

	for _, p := range parts {
		assert.Equal(t, chunker.StrategyWindowed, p.Strategy)
	}
}

func TestWindowedSingleOversizedLine(t *testing.T) {
	// A single line larger than the budget still yields one chunk; the
	// minimum of one line per window beats the character budget.
	line := strings.Repeat("x", 500)
	parts := chunker.Windowed(line, 100, 5)

	require.Len(t, parts, 1)
	assert.Equal(t, 1, parts[0].StartLine)
	assert.Equal(t, 1, parts[0].EndLine)
	assert.Equal(t, line, parts[0].Content)
}

func TestWindowedEmptyInput(t *testing.T) {
	assert.Nil(t, chunker.Windowed("", 100, 5))
}

func TestWindowedCoversEveryLine(t *testing.T) {
	var lines []string
	for i := 0; i < 40; i++ {
		lines = append(lines, strings.Repeat("y", 7+i%13))
	}
	text := strings.Join(lines, "\n")

	parts := chunker.Windowed(text, 64, 3)
	require.NotEmpty(t, parts)

	assert.Equal(t, 1, parts[0].StartLine)
	assert.Equal(t, len(lines), parts[len(parts)-1].EndLine)

	for i, p := range parts {
		assert.LessOrEqual(t, p.StartLine, p.EndLine, "part %d", i)
		if i > 0 {
			// No gaps: each window starts at or before the line after the
			// previous window's end, and always advances.
			assert.LessOrEqual(t, p.StartLine, parts[i-1].EndLine+1, "part %d", i)
			assert.Greater(t, p.StartLine, parts[i-1].StartLine, "part %d", i)
		}
	}
}

func TestWindowedOverlapClamped(t *testing.T) {
	// Overlap larger than the window size must still advance the window.
	text := "aa\nbb\ncc\ndd"
	parts := chunker.Windowed(text, 5, 100)

	require.NotEmpty(t, parts)
	for i := 1; i < len(parts); i++ {
		assert.Greater(t, parts[i].StartLine, parts[i-1].StartLine)
	}
	assert.Equal(t, 4, parts[len(parts)-1].EndLine)
}

func TestChunkRejectsBadSize(t *testing.T) {
	c, _ := newChunker()
	_, err := c.Chunk([]byte("x"), chunker.Options{Path: "a.go", Mode: chunker.ModeWindowed, ChunkSize: 0})
	require.Error(t, err)
}

func TestChunkStructuralGo(t *testing.T) {
	src := `package demo

import "fmt"

const answer = 42

type Greeter struct {
	name string
}

func NewGreeter(name string) *Greeter {
	return &Greeter{name: name}
}

func (g *Greeter) Greet() string {
	return fmt.Sprintf("hello, %s", g.name)
}
`
	c, _ := newChunker()
	parts, err := c.Chunk([]byte(src), chunker.Options{
		Path:         "demo/greeter.go",
		Language:     "go",
		Mode:         chunker.ModeStructural,
		ChunkSize:    1500,
		OverlapLines: 10,
	})
	require.NoError(t, err)
	require.NotEmpty(t, parts)

	byKind := map[chunker.NodeKind][]chunker.Part{}
	for _, p := range parts {
		assert.Equal(t, chunker.StrategyStructural, p.Strategy)
		byKind[p.NodeType] = append(byKind[p.NodeType], p)
	}

	require.Len(t, byKind[chunker.KindFunction], 1)
	assert.Equal(t, "NewGreeter", byKind[chunker.KindFunction][0].Symbol)

	require.Len(t, byKind[chunker.KindMethod], 1)
	assert.Equal(t, "Greet", byKind[chunker.KindMethod][0].Symbol)

	require.Len(t, byKind[chunker.KindTypeAlias], 1)
	assert.Equal(t, "Greeter", byKind[chunker.KindTypeAlias][0].Symbol)

	require.Len(t, byKind[chunker.KindVariableGroup], 1)
	assert.Equal(t, "answer", byKind[chunker.KindVariableGroup][0].Symbol)

	// Parts come out ordered by position.
	for i := 1; i < len(parts); i++ {
		assert.GreaterOrEqual(t, parts[i].StartLine, parts[i-1].StartLine)
	}
}

func TestChunkStructuralGoMultiConst(t *testing.T) {
	src := `package demo

const a, b = 1, 2
`
	c, _ := newChunker()
	parts, err := c.Chunk([]byte(src), chunker.Options{
		Path: "demo/consts.go", Mode: chunker.ModeStructural, ChunkSize: 1500,
	})
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, chunker.KindVariableGroup, parts[0].NodeType)
	assert.Equal(t, "a, b", parts[0].Symbol)
}

func TestChunkStructuralTypeScript(t *testing.T) {
	src := `export interface Shape {
  area(): number;
}

export enum Color { Red, Green }

export type Point = { x: number; y: number };

export class Circle implements Shape {
  constructor(private r: number) {}

  area(): number {
    return Math.PI * this.r * this.r;
  }
}

export function describe(s: Shape): string {
  return "area " + s.area();
}
`
	c, _ := newChunker()
	parts, err := c.Chunk([]byte(src), chunker.Options{
		Path: "src/shapes.ts", Mode: chunker.ModeStructural, ChunkSize: 1500,
	})
	require.NoError(t, err)

	kinds := map[chunker.NodeKind]bool{}
	symbols := map[string]chunker.NodeKind{}
	for _, p := range parts {
		kinds[p.NodeType] = true
		symbols[p.Symbol] = p.NodeType
	}

	assert.True(t, kinds[chunker.KindInterface])
	assert.True(t, kinds[chunker.KindEnum])
	assert.True(t, kinds[chunker.KindTypeAlias])
	assert.True(t, kinds[chunker.KindClass])
	assert.True(t, kinds[chunker.KindFunction])
	assert.Equal(t, chunker.KindClass, symbols["Circle"])

	// Nested members of the class body stay inside the class chunk.
	for _, p := range parts {
		assert.NotEqual(t, "area", p.Symbol)
	}
}

func TestChunkStructuralPythonDecorated(t *testing.T) {
	src := `import functools

@functools.cache
def fib(n):
    if n < 2:
        return n
    return fib(n - 1) + fib(n - 2)

class Counter:
    def __init__(self):
        self.n = 0
`
	c, _ := newChunker()
	parts, err := c.Chunk([]byte(src), chunker.Options{
		Path: "lib/math_utils.py", Mode: chunker.ModeStructural, ChunkSize: 1500,
	})
	require.NoError(t, err)

	var fib, counter *chunker.Part
	for i := range parts {
		switch parts[i].Symbol {
		case "fib":
			fib = &parts[i]
		case "Counter":
			counter = &parts[i]
		}
	}
	require.NotNil(t, fib)
	require.NotNil(t, counter)

	assert.Equal(t, chunker.KindFunction, fib.NodeType)
	// The decorator belongs to the chunk.
	assert.Contains(t, fib.Content, "@functools.cache")
	assert.Equal(t, chunker.KindClass, counter.NodeType)
}

func TestChunkUnsupportedExtensionFallsBack(t *testing.T) {
	c, _ := newChunker()
	parts, err := c.Chunk([]byte("line one\nline two\n"), chunker.Options{
		Path: "notes/readme.txt", Mode: chunker.ModeStructural, ChunkSize: 1500,
	})
	require.NoError(t, err)
	require.NotEmpty(t, parts)
	for _, p := range parts {
		assert.Equal(t, chunker.StrategyWindowed, p.Strategy)
	}
}

func TestChunkWindowedModeIgnoresGrammar(t *testing.T) {
	src := "package demo\n\nfunc F() {}\n"
	c, _ := newChunker()
	parts, err := c.Chunk([]byte(src), chunker.Options{
		Path: "demo/f.go", Mode: chunker.ModeWindowed, ChunkSize: 1500,
	})
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, chunker.StrategyWindowed, parts[0].Strategy)
}

func TestChunkOversizedDeclarationResplit(t *testing.T) {
	var body strings.Builder
	body.WriteString("package demo\n\nfunc Big() {\n")
	for i := 0; i < 60; i++ {
		body.WriteString("\t_ = \"" + strings.Repeat("z", 40) + "\"\n")
	}
	body.WriteString("}\n")

	c, _ := newChunker()
	parts, err := c.Chunk([]byte(body.String()), chunker.Options{
		Path: "demo/big.go", Mode: chunker.ModeStructural, ChunkSize: 400, OverlapLines: 2,
	})
	require.NoError(t, err)
	require.Greater(t, len(parts), 1, "oversized function should re-split")

	for _, p := range parts {
		// Re-split pieces keep the structural tagging of the declaration.
		assert.Equal(t, chunker.StrategyStructural, p.Strategy)
		assert.Equal(t, chunker.KindFunction, p.NodeType)
		assert.Equal(t, "Big", p.Symbol)
	}
	assert.Equal(t, 3, parts[0].StartLine)
	assert.Equal(t, 64, parts[len(parts)-1].EndLine)
}

func TestRegistryLanguageName(t *testing.T) {
	_, reg := newChunker()
	assert.Equal(t, "go", reg.LanguageName("internal/store/store.go"))
	assert.Equal(t, "typescript", reg.LanguageName("src/app.tsx"))
	assert.Equal(t, "python", reg.LanguageName("scripts/run.py"))
	assert.Equal(t, "md", reg.LanguageName("README.md"))
}
