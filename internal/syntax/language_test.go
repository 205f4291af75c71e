package syntax

import "testing"

func TestDetectLanguageByExtension(t *testing.T) {
	tests := []struct {
		path string
		want Language
	}{
		{"main.go", LangGo},
		{"lib/util.rs", LangRust},
		{"/abs/path/script.py", LangPython},
		{"index.mjs", LangJavaScript},
		{"config.yml", LangYAML},
		{"config.yaml", LangYAML},
		{"style.css", LangCSS},
		{"page.htm", LangHTML},
		{"run.sh", LangBash},
		{"data.json", LangJSON},
		{"vec.hpp", LangCPP},
		{"main.c", LangC},
	}
	for _, tt := range tests {
		if got := DetectLanguage(tt.path, nil); got != tt.want {
			t.Errorf("DetectLanguage(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestDetectLanguageByContent(t *testing.T) {
	content := []byte("#!/usr/bin/env bash\necho hi\n")
	if got := DetectLanguage("deploy", content); got != LangBash {
		t.Errorf("DetectLanguage = %q, want %q", got, LangBash)
	}
}

func TestDetectLanguageFallsBackToPlain(t *testing.T) {
	if got := DetectLanguage("notes.xyzzy", []byte("ordinary prose")); got != LangPlain {
		t.Errorf("DetectLanguage = %q, want %q", got, LangPlain)
	}
	if got := DetectLanguage("", nil); got != LangPlain {
		t.Errorf("DetectLanguage empty = %q, want %q", got, LangPlain)
	}
}

func TestGrammarCoverage(t *testing.T) {
	for _, lang := range []Language{
		LangGo, LangC, LangCPP, LangRust, LangPython,
		LangJavaScript, LangBash, LangHTML, LangCSS, LangYAML,
	} {
		if !Grammar(lang) {
			t.Errorf("no grammar for %q", lang)
		}
	}
	if Grammar(LangPlain) {
		t.Error("plain text should have no grammar")
	}
	if Grammar(LangJSON) {
		t.Error("json has no bundled grammar")
	}
}
