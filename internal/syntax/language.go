package syntax

import (
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
)

// Language identifies a supported grammar.
type Language string

// Supported languages. LangPlain is the fallback for anything without a
// grammar; plain buffers get no highlighting.
const (
	LangPlain      Language = "plaintext"
	LangGo         Language = "go"
	LangC          Language = "c"
	LangCPP        Language = "cpp"
	LangRust       Language = "rust"
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangJSON       Language = "json"
	LangYAML       Language = "yaml"
	LangBash       Language = "bash"
	LangHTML       Language = "html"
	LangCSS        Language = "css"
)

// extLanguages maps file extensions to languages. Checked before content
// sniffing since the extension is almost always right.
var extLanguages = map[string]Language{
	".go":   LangGo,
	".c":    LangC,
	".h":    LangC,
	".cc":   LangCPP,
	".cpp":  LangCPP,
	".cxx":  LangCPP,
	".hpp":  LangCPP,
	".rs":   LangRust,
	".py":   LangPython,
	".js":   LangJavaScript,
	".mjs":  LangJavaScript,
	".cjs":  LangJavaScript,
	".json": LangJSON,
	".yaml": LangYAML,
	".yml":  LangYAML,
	".sh":   LangBash,
	".bash": LangBash,
	".html": LangHTML,
	".htm":  LangHTML,
	".css":  LangCSS,
}

// chromaLanguages maps chroma lexer names to languages, for detection by
// filename pattern or content analysis when the extension map misses.
var chromaLanguages = map[string]Language{
	"Go":         LangGo,
	"C":          LangC,
	"C++":        LangCPP,
	"Rust":       LangRust,
	"Python":     LangPython,
	"JavaScript": LangJavaScript,
	"JSON":       LangJSON,
	"YAML":       LangYAML,
	"Bash":       LangBash,
	"HTML":       LangHTML,
	"CSS":        LangCSS,
}

// DetectLanguage maps a file path and its leading content bytes to a
// language. Pure function: extension first, then chroma's filename
// matcher, then content analysis (shebangs, markup). Falls back to
// LangPlain when nothing matches.
func DetectLanguage(path string, content []byte) Language {
	if ext := strings.ToLower(filepath.Ext(path)); ext != "" {
		if lang, ok := extLanguages[ext]; ok {
			return lang
		}
	}

	if path != "" {
		if lexer := lexers.Match(filepath.Base(path)); lexer != nil {
			if lang, ok := chromaLanguages[lexer.Config().Name]; ok {
				return lang
			}
		}
	}

	if len(content) > 0 {
		if lexer := lexers.Analyse(string(content)); lexer != nil {
			if lang, ok := chromaLanguages[lexer.Config().Name]; ok {
				return lang
			}
		}
	}

	return LangPlain
}
