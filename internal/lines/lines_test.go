package lines_test

import (
	"testing"

	"github.com/dsablic/devpulse/internal/lines"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		filename string
		expected lines.Language
	}{
		{"main.go", lines.Go},
		{"MAIN.GO", lines.Go},
		{"src/app/component.TSX", lines.TypeScript},
		{"script.py", lines.Python},
		{"lib/util.c++", lines.CPP},
		{"include/header.h", lines.C},
		{"deploy.yml", lines.YAML},
		{"archive.tar.gz", lines.Unknown},
		{"Makefile", lines.Unknown},
		{".gitignore", lines.Unknown},
		{"trailing.", lines.Unknown},
		{"", lines.Unknown},
		{"dir.v2/README", lines.Unknown},
		{`windows\path\Program.cs`, lines.CSharp},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := lines.DetectLanguage(tt.filename); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestDetectLanguageDependsOnlyOnExtension(t *testing.T) {
	for _, lang := range lines.Languages() {
		for _, ext := range lines.Extensions(lang) {
			for _, name := range []string{"a." + ext, "deep/dir/b." + ext, "x.y." + ext} {
				if got := lines.DetectLanguage(name); got != lang {
					t.Errorf("%s: expected %s, got %s", name, lang, got)
				}
			}
		}
	}
}

func TestParseLanguage(t *testing.T) {
	if got := lines.ParseLanguage("Python"); got != lines.Python {
		t.Errorf("expected python, got %s", got)
	}
	if got := lines.ParseLanguage("cobol"); got != lines.Unknown {
		t.Errorf("expected unknown, got %s", got)
	}
	if lines.IsComment("// not classified", lines.Language("brainfuck")) {
		t.Error("expected malformed language key to be treated as unknown")
	}
}

func TestIsComment(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		lang    lines.Language
		comment bool
	}{
		{"go line comment", "  // hello", lines.Go, true},
		{"go single-line block", "/* block */", lines.Go, true},
		{"go block start", "/* start of block", lines.Go, true},
		{"go block end", " end of block */", lines.Go, true},
		{"go block interior", " * interior line", lines.Go, false},
		{"go code", "fmt.Println(1)", lines.Go, false},
		{"go trailing comment is code", "x := 1 // note", lines.Go, false},
		{"python hash", "# comment", lines.Python, true},
		{"python docstring", `"""Docstring."""`, lines.Python, true},
		{"python code", "print('hi')", lines.Python, false},
		{"ruby begin", "=begin", lines.Ruby, true},
		{"php hash", "# legacy", lines.PHP, true},
		{"php slash", "// modern", lines.PHP, true},
		{"html comment", "<!-- note -->", lines.HTML, true},
		{"sql dashes", "-- select", lines.SQL, true},
		{"yaml hash", "  # key docs", lines.YAML, true},
		{"json slashes", "// jsonc", lines.JSON, true},
		{"shell hash", "#!/bin/sh", lines.Shell, true},
		{"haskell dashes", "-- | doc", lines.Haskell, true},
		{"unknown language", "// looks like a comment", lines.Unknown, false},
		{"blank is never comment", "   ", lines.Go, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lines.IsComment(tt.line, tt.lang); got != tt.comment {
				t.Errorf("IsComment(%q, %s) = %v, expected %v", tt.line, tt.lang, got, tt.comment)
			}
		})
	}
}

func TestClassificationIsExclusiveAndTotal(t *testing.T) {
	samples := []string{
		"", " ", "\t", "code()", "// c", "# h", "/* b */", "<!-- x -->",
		"-- d", "x = 1 # trailing", "*/", `"""`, "=end",
	}
	langs := append(lines.Languages(), lines.Unknown)

	for _, lang := range langs {
		for _, line := range samples {
			count := 0
			for _, b := range []bool{lines.IsBlank(line), lines.IsComment(line, lang), lines.IsCode(line, lang)} {
				if b {
					count++
				}
			}
			if count != 1 {
				t.Errorf("%s %q: expected exactly one category, got %d", lang, line, count)
			}
		}
	}
}

func TestClassify(t *testing.T) {
	if got := lines.Classify("", lines.Go); got != lines.KindBlank {
		t.Errorf("expected blank, got %s", got)
	}
	if got := lines.Classify("// x", lines.Go); got != lines.KindComment {
		t.Errorf("expected comment, got %s", got)
	}
	if got := lines.Classify("return nil", lines.Go); got != lines.KindCode {
		t.Errorf("expected code, got %s", got)
	}
}
