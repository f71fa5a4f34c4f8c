package chunker

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// LanguageSpec defines the tree-sitter grammar, query, and kind mapping for
// a language.
type LanguageSpec struct {
	Language *sitter.Language
	// Query is a tree-sitter S-expression query that captures chunkable
	// declarations. It must use @chunk for the declaration node and @name
	// for each declared identifier (optional, may repeat per match).
	Query      string
	Extensions []string
	// Kinds maps grammar node types to the closed NodeKind set. Captured
	// nodes whose type is absent here are resolved through their named
	// children (covers wrappers like export statements and decorators).
	Kinds map[string]NodeKind
}

// resolveKind maps a captured node to its NodeKind, looking through one
// level of wrapper nodes when the outer type has no direct mapping.
func (s *LanguageSpec) resolveKind(node *sitter.Node) (NodeKind, bool) {
	if k, ok := s.Kinds[node.Type()]; ok {
		return k, true
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if k, ok := s.Kinds[node.NamedChild(i).Type()]; ok {
			return k, true
		}
	}
	return "", false
}

// Registry maps file extensions to language specs.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]*LanguageSpec // extension (without dot) → spec
	langs map[string]*LanguageSpec // language name → spec
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		specs: make(map[string]*LanguageSpec),
		langs: make(map[string]*LanguageSpec),
	}
}

// Register adds a language spec under the given name.
func (r *Registry) Register(name string, spec *LanguageSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.langs[name] = spec
	for _, ext := range spec.Extensions {
		r.specs[ext] = spec
	}
}

// Lookup returns the spec for a file path based on its extension, or nil.
func (r *Registry) Lookup(path string) (spec *LanguageSpec, lang string) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.specs[ext]
	if !ok {
		return nil, ""
	}
	// Find the language name for this spec.
	for name, sp := range r.langs {
		if sp == s {
			return s, name
		}
	}
	return s, ext
}

// LanguageName returns the language tag for a file path. Files without a
// registered grammar are tagged by their bare extension so windowed chunks
// still carry a usable language hint.
func (r *Registry) LanguageName(path string) string {
	if _, lang := r.Lookup(path); lang != "" {
		return lang
	}
	return strings.TrimPrefix(filepath.Ext(path), ".")
}

// Supported reports whether a grammar is registered for the file.
func (r *Registry) Supported(path string) bool {
	spec, _ := r.Lookup(path)
	return spec != nil
}
