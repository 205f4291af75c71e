package syntax

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/css"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/html"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/yaml"
)

// grammar pairs a compiled tree-sitter language with the highlight query
// used to derive scopes. Queries stick to node names every grammar
// version ships so a grammar bump does not silently break compilation.
type grammar struct {
	language   *sitter.Language
	highlights string
}

var grammars = map[Language]grammar{
	LangGo: {
		language: golang.GetLanguage(),
		highlights: `
(comment) @comment
(interpreted_string_literal) @string
(raw_string_literal) @string
(rune_literal) @string
(int_literal) @number
(float_literal) @number
(type_identifier) @type
(field_identifier) @property
(package_identifier) @namespace
(function_declaration name: (identifier) @function)
(method_declaration name: (field_identifier) @function)
(call_expression function: (identifier) @function)
[ "break" "case" "chan" "const" "continue" "default" "defer" "else"
  "fallthrough" "for" "func" "go" "goto" "if" "import" "interface"
  "map" "package" "range" "return" "select" "struct" "switch" "type"
  "var" ] @keyword
[ (true) (false) (nil) (iota) ] @constant
`,
	},
	LangC: {
		language: c.GetLanguage(),
		highlights: `
(comment) @comment
(string_literal) @string
(char_literal) @string
(number_literal) @number
(type_identifier) @type
(primitive_type) @type
(field_identifier) @property
(call_expression function: (identifier) @function)
(function_declarator declarator: (identifier) @function)
(preproc_directive) @keyword
[ "break" "case" "const" "continue" "default" "do" "else" "enum"
  "extern" "for" "if" "return" "sizeof" "static" "struct" "switch"
  "typedef" "union" "while" ] @keyword
`,
	},
	LangCPP: {
		language: cpp.GetLanguage(),
		highlights: `
(comment) @comment
(string_literal) @string
(char_literal) @string
(number_literal) @number
(type_identifier) @type
(primitive_type) @type
(field_identifier) @property
(call_expression function: (identifier) @function)
(function_declarator declarator: (identifier) @function)
[ "break" "case" "catch" "class" "const" "continue" "delete" "else"
  "enum" "for" "if" "namespace" "new" "private" "public" "return"
  "static" "struct" "switch" "template" "throw" "try" "typedef"
  "using" "virtual" "while" ] @keyword
`,
	},
	LangRust: {
		language: rust.GetLanguage(),
		highlights: `
(line_comment) @comment
(block_comment) @comment
(string_literal) @string
(char_literal) @string
(integer_literal) @number
(float_literal) @number
(type_identifier) @type
(primitive_type) @type
(field_identifier) @property
(call_expression function: (identifier) @function)
(function_item name: (identifier) @function)
(macro_invocation macro: (identifier) @function)
[ "as" "break" "const" "continue" "else" "enum" "fn" "for" "if"
  "impl" "in" "let" "loop" "match" "mod" "move" "mut" "pub" "ref"
  "return" "static" "struct" "trait" "type" "unsafe" "use" "while" ] @keyword
(self) @keyword
`,
	},
	LangPython: {
		language: python.GetLanguage(),
		highlights: `
(comment) @comment
(string) @string
(integer) @number
(float) @number
(function_definition name: (identifier) @function)
(call function: (identifier) @function)
(class_definition name: (identifier) @type)
[ "and" "as" "assert" "async" "await" "break" "class" "continue"
  "def" "del" "elif" "else" "except" "finally" "for" "from" "global"
  "if" "import" "in" "is" "lambda" "not" "or" "pass" "raise"
  "return" "try" "while" "with" "yield" ] @keyword
[ (true) (false) (none) ] @constant
`,
	},
	LangJavaScript: {
		language: javascript.GetLanguage(),
		highlights: `
(comment) @comment
(string) @string
(template_string) @string
(number) @number
(regex) @string
(function_declaration name: (identifier) @function)
(method_definition name: (property_identifier) @function)
(call_expression function: (identifier) @function)
(property_identifier) @property
[ "async" "await" "break" "case" "catch" "class" "const" "continue"
  "default" "delete" "do" "else" "export" "extends" "finally" "for"
  "function" "if" "import" "in" "instanceof" "let" "new" "of"
  "return" "static" "switch" "throw" "try" "typeof" "var" "while"
  "yield" ] @keyword
[ (true) (false) (null) (undefined) ] @constant
`,
	},
	LangBash: {
		language: bash.GetLanguage(),
		highlights: `
(comment) @comment
(string) @string
(raw_string) @string
(variable_name) @property
(command_name) @function
[ "if" "then" "else" "elif" "fi" "for" "while" "do" "done" "case"
  "esac" "in" "function" ] @keyword
`,
	},
	LangHTML: {
		language: html.GetLanguage(),
		highlights: `
(comment) @comment
(tag_name) @type
(attribute_name) @property
(attribute_value) @string
(quoted_attribute_value) @string
(doctype) @keyword
`,
	},
	LangCSS: {
		language: css.GetLanguage(),
		highlights: `
(comment) @comment
(tag_name) @type
(class_name) @type
(id_name) @type
(property_name) @property
(string_value) @string
(integer_value) @number
(float_value) @number
(color_value) @constant
`,
	},
	LangYAML: {
		language: yaml.GetLanguage(),
		highlights: `
(comment) @comment
(string_scalar) @string
(double_quote_scalar) @string
(single_quote_scalar) @string
(integer_scalar) @number
(float_scalar) @number
(boolean_scalar) @constant
(null_scalar) @constant
(anchor_name) @property
(alias_name) @property
`,
	},
}

// Grammar reports whether a tree-sitter grammar is bundled for lang.
// Languages without one, JSON included, fall back to unhighlighted text.
func Grammar(lang Language) bool {
	_, ok := grammars[lang]
	return ok
}
