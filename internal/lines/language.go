// Package lines classifies individual source lines as code, comment or
// blank. Classification is line-local: every line is judged on its own, so
// the interior lines of a multi-line block comment that carry no comment
// marker of their own count as code.
package lines

import (
	"path"
	"strings"
)

// Language is one of the fixed set of languages the classifier knows.
type Language string

const (
	Unknown    Language = "unknown"
	Python     Language = "python"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	Java       Language = "java"
	CPP        Language = "cpp"
	C          Language = "c"
	CSharp     Language = "csharp"
	PHP        Language = "php"
	Ruby       Language = "ruby"
	Go         Language = "go"
	Rust       Language = "rust"
	Kotlin     Language = "kotlin"
	Swift      Language = "swift"
	Scala      Language = "scala"
	Shell      Language = "shell"
	HTML       Language = "html"
	CSS        Language = "css"
	SQL        Language = "sql"
	XML        Language = "xml"
	YAML       Language = "yaml"
	JSON       Language = "json"
	Markdown   Language = "markdown"
	Lua        Language = "lua"
	Haskell    Language = "haskell"
)

var extensions = map[Language][]string{
	Python:     {"py", "pyw"},
	JavaScript: {"js", "jsx", "mjs", "cjs"},
	TypeScript: {"ts", "tsx", "mts", "cts"},
	Java:       {"java"},
	CPP:        {"cpp", "cc", "cxx", "c++", "hpp", "hh", "hxx"},
	C:          {"c", "h"},
	CSharp:     {"cs"},
	PHP:        {"php", "phtml"},
	Ruby:       {"rb", "rbw"},
	Go:         {"go"},
	Rust:       {"rs"},
	Kotlin:     {"kt", "kts"},
	Swift:      {"swift"},
	Scala:      {"scala", "sc"},
	Shell:      {"sh", "bash", "zsh"},
	HTML:       {"html", "htm"},
	CSS:        {"css", "scss", "sass", "less"},
	SQL:        {"sql"},
	XML:        {"xml", "xsd", "xslt"},
	YAML:       {"yaml", "yml"},
	JSON:       {"json"},
	Markdown:   {"md", "markdown"},
	Lua:        {"lua"},
	Haskell:    {"hs"},
}

// byExtension is the inverse of extensions, built once.
var byExtension = func() map[string]Language {
	m := make(map[string]Language)
	for lang, exts := range extensions {
		for _, ext := range exts {
			m[ext] = lang
		}
	}
	return m
}()

// Languages returns every known language except Unknown.
func Languages() []Language {
	out := make([]Language, 0, len(extensions))
	for lang := range extensions {
		out = append(out, lang)
	}
	return out
}

// Extensions returns the lowercased extensions (without the dot) mapped to lang.
func Extensions(lang Language) []string {
	exts := extensions[lang]
	out := make([]string, len(exts))
	copy(out, exts)
	return out
}

// DetectLanguage maps a filename to a language using its last dot-delimited
// extension, compared case-insensitively. Names without an extension and
// unmapped extensions yield Unknown.
func DetectLanguage(filename string) Language {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	idx := strings.LastIndexByte(base, '.')
	if idx < 0 || idx == len(base)-1 {
		return Unknown
	}
	if lang, ok := byExtension[strings.ToLower(base[idx+1:])]; ok {
		return lang
	}
	return Unknown
}

// ParseLanguage converts a language key to a Language. Keys outside the
// known set map to Unknown.
func ParseLanguage(key string) Language {
	lang := Language(strings.ToLower(strings.TrimSpace(key)))
	if !lang.Known() {
		return Unknown
	}
	return lang
}

// Known reports whether lang is part of the enumerated set.
func (l Language) Known() bool {
	_, ok := extensions[l]
	return ok
}

func (l Language) String() string {
	if l == "" {
		return string(Unknown)
	}
	return string(l)
}
