package lines

import (
	"regexp"
	"strings"
)

// Shared pattern sets. Order matters only for readability; a line is a
// comment as soon as any pattern matches.
var (
	cFamily = []string{
		`^\s*//`,
		`^\s*/\*.*?\*/\s*$`,
		`^\s*/\*`,
		`^.*?\*/\s*$`,
	}
	hashOnly   = []string{`^\s*#`}
	markupLike = []string{
		`^\s*<!--.*?-->\s*$`,
		`^\s*<!--`,
		`^.*?-->\s*$`,
	}
	blockOnly = []string{
		`^\s*/\*.*?\*/\s*$`,
		`^\s*/\*`,
		`^.*?\*/\s*$`,
	}
)

var commentPatterns = map[Language][]string{
	Python: {
		`^\s*#`,
		`^\s*""".*?"""\s*$`,
		`^\s*"""`,
		`^.*?"""\s*$`,
		`^\s*'''.*?'''\s*$`,
		`^\s*'''`,
		`^.*?'''\s*$`,
	},
	JavaScript: cFamily,
	TypeScript: cFamily,
	Java:       cFamily,
	CPP:        cFamily,
	C:          cFamily,
	CSharp:     cFamily,
	Go:         cFamily,
	Rust:       cFamily,
	Kotlin:     cFamily,
	Swift:      cFamily,
	Scala:      cFamily,
	PHP: {
		`^\s*//`,
		`^\s*#`,
		`^\s*/\*.*?\*/\s*$`,
		`^\s*/\*`,
		`^.*?\*/\s*$`,
	},
	Ruby: {
		`^\s*#`,
		`^\s*=begin`,
		`^.*=end\s*$`,
	},
	Shell:    hashOnly,
	YAML:     hashOnly,
	HTML:     markupLike,
	XML:      markupLike,
	Markdown: markupLike,
	CSS:      blockOnly,
	SQL:      append([]string{`^\s*--`}, blockOnly...),
	JSON:     {`^\s*//`},
	Lua: {
		`^\s*--`,
		`^.*?\]\]\s*$`,
	},
	Haskell: {
		`^\s*--`,
		`^\s*\{-.*?-\}\s*$`,
		`^\s*\{-`,
		`^.*?-\}\s*$`,
	},
}

var compiled = func() map[Language][]*regexp.Regexp {
	m := make(map[Language][]*regexp.Regexp, len(commentPatterns))
	for lang, patterns := range commentPatterns {
		res := make([]*regexp.Regexp, len(patterns))
		for i, p := range patterns {
			res[i] = regexp.MustCompile(p)
		}
		m[lang] = res
	}
	return m
}()

// IsBlank reports whether line is empty after trimming whitespace.
func IsBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// IsComment reports whether line is a comment in lang. Blank lines and
// lines of an unknown language are never comments.
func IsComment(line string, lang Language) bool {
	patterns, ok := compiled[lang]
	if !ok {
		return false
	}
	if IsBlank(line) {
		return false
	}
	for _, re := range patterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// IsCode reports whether line is neither blank nor a comment.
func IsCode(line string, lang Language) bool {
	return !IsBlank(line) && !IsComment(line, lang)
}

// Kind is the category a line falls into.
type Kind int

const (
	KindCode Kind = iota
	KindComment
	KindBlank
)

func (k Kind) String() string {
	switch k {
	case KindComment:
		return "comment"
	case KindBlank:
		return "blank"
	default:
		return "code"
	}
}

// Classify returns the single category line belongs to in lang.
func Classify(line string, lang Language) Kind {
	switch {
	case IsBlank(line):
		return KindBlank
	case IsComment(line, lang):
		return KindComment
	default:
		return KindCode
	}
}
