package languages

import (
	"github.com/saneksa/code-rag-review/internal/chunker"

	"github.com/smacker/go-tree-sitter/golang"
)

func RegisterGo(r *chunker.Registry) {
	r.Register("go", &chunker.LanguageSpec{
		Language: golang.GetLanguage(),
		Query: `
			(function_declaration name: (identifier) @name) @chunk
			(method_declaration name: (field_identifier) @name) @chunk
			(type_declaration (type_spec name: (type_identifier) @name)) @chunk
			(source_file (const_declaration (const_spec name: (identifier) @name)) @chunk)
			(source_file (var_declaration (var_spec name: (identifier) @name)) @chunk)
		`,
		Extensions: []string{"go"},
		Kinds: map[string]chunker.NodeKind{
			"function_declaration": chunker.KindFunction,
			"method_declaration":   chunker.KindMethod,
			"type_declaration":     chunker.KindTypeAlias,
			"const_declaration":    chunker.KindVariableGroup,
			"var_declaration":      chunker.KindVariableGroup,
		},
	})
}
