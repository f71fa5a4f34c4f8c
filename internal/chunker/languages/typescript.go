package languages

import (
	"github.com/saneksa/code-rag-review/internal/chunker"

	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

func RegisterTypeScript(r *chunker.Registry) {
	r.Register("typescript", &chunker.LanguageSpec{
		Language: typescript.GetLanguage(),
		Query: `
			(function_declaration name: (identifier) @name) @chunk
			(class_declaration name: (type_identifier) @name) @chunk
			(method_definition name: (property_identifier) @name) @chunk
			(export_statement (function_declaration name: (identifier) @name)) @chunk
			(export_statement (class_declaration name: (type_identifier) @name)) @chunk
			(interface_declaration name: (type_identifier) @name) @chunk
			(type_alias_declaration name: (type_identifier) @name) @chunk
			(enum_declaration name: (identifier) @name) @chunk
			(program (lexical_declaration (variable_declarator name: (identifier) @name)) @chunk)
		`,
		Extensions: []string{"ts", "tsx"},
		Kinds: map[string]chunker.NodeKind{
			"function_declaration":   chunker.KindFunction,
			"class_declaration":      chunker.KindClass,
			"method_definition":      chunker.KindMethod,
			"interface_declaration":  chunker.KindInterface,
			"type_alias_declaration": chunker.KindTypeAlias,
			"enum_declaration":       chunker.KindEnum,
			"lexical_declaration":    chunker.KindVariableGroup,
		},
	})
}
