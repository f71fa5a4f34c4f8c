// Package tui provides an interactive terminal UI for searching the index.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/saneksa/code-rag-review/internal/index"
	"github.com/saneksa/code-rag-review/internal/retrieve"
)

// Model is the top-level Bubble Tea model: a query input above a scrollable
// result pane.
type Model struct {
	idx  *index.Indexer
	topK int

	input     textinput.Model
	spin      spinner.Model
	results   viewport.Model
	searching bool
	err       error
	lastQuery string
	hits      []retrieve.Result

	width  int
	height int
	ready  bool
}

type searchDoneMsg struct {
	query   string
	results []retrieve.Result
	err     error
}

// New creates a search TUI over an opened indexer.
func New(idx *index.Indexer, topK int) Model {
	input := textinput.New()
	input.Placeholder = "Search the codebase..."
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return Model{
		idx:   idx,
		topK:  topK,
		input: input,
		spin:  spin,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		resultHeight := msg.Height - 6
		if resultHeight < 3 {
			resultHeight = 3
		}
		if !m.ready {
			m.results = viewport.New(msg.Width, resultHeight)
			m.ready = true
		} else {
			m.results.Width = msg.Width
			m.results.Height = resultHeight
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			query := strings.TrimSpace(m.input.Value())
			if query == "" || m.searching {
				return m, nil
			}
			m.searching = true
			m.err = nil
			return m, tea.Batch(m.spin.Tick, m.runSearch(query))
		}

	case searchDoneMsg:
		m.searching = false
		m.lastQuery = msg.query
		m.err = msg.err
		m.hits = msg.results
		if m.ready {
			m.results.SetContent(m.renderResults())
			m.results.GotoTop()
		}
		return m, nil

	case spinner.TickMsg:
		if m.searching {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	if m.ready {
		m.results, cmd = m.results.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) runSearch(query string) tea.Cmd {
	return func() tea.Msg {
		results, err := m.idx.Query(context.Background(), query, m.topK)
		return searchDoneMsg{query: query, results: results, err: err}
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("code-rag-review search"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")

	switch {
	case m.searching:
		b.WriteString(dimStyle.Render(m.spin.View() + " searching..."))
		b.WriteString("\n")
	case m.err != nil:
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	case m.ready:
		b.WriteString(m.results.View())
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("enter: search · ↑/↓: scroll · esc: quit"))
	return b.String()
}

func (m Model) renderResults() string {
	if len(m.hits) == 0 {
		return dimStyle.Render(fmt.Sprintf("No results for %q.", m.lastQuery))
	}

	var b strings.Builder
	for i, r := range m.hits {
		c := r.Chunk
		fmt.Fprintf(&b, "%s %s\n",
			pathStyle.Render(fmt.Sprintf("%d. %s:%d-%d", i+1, c.Path, c.StartLine, c.EndLine)),
			scoreStyle.Render(fmt.Sprintf("%.3f", r.Score)),
		)
		if c.Symbol != "" {
			b.WriteString(dimStyle.Render(fmt.Sprintf("   %s %s", c.NodeType, c.Symbol)))
			b.WriteString("\n")
		}
		for _, line := range strings.SplitN(c.Content, "\n", 7) {
			b.WriteString("   " + line + "\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Run starts the TUI program.
func Run(idx *index.Indexer, topK int) error {
	p := tea.NewProgram(New(idx, topK), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
