package cache

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Operation names double as TTL categories.
const (
	OpProjects   = "projects"
	OpProject    = "project"
	OpCommits    = "commits"
	OpCommitDiff = "commit_diff"
	OpStats      = "stats"
	OpBranches   = "branches"
)

// Key identifies one cached call: an operation plus the arguments that
// affect its result. Named arguments are rendered in lexicographic order, so
// the order they were supplied in never changes the key.
type Key struct {
	Op    string
	Args  []any
	Named map[string]any
}

// NewKey returns a key for op with positional args.
func NewKey(op string, args ...any) Key {
	return Key{Op: op, Args: args}
}

// With returns a copy of k with the named argument set.
func (k Key) With(name string, value any) Key {
	named := make(map[string]any, len(k.Named)+1)
	for n, v := range k.Named {
		named[n] = v
	}
	named[name] = value
	k.Named = named
	return k
}

// String renders the key as op_arg1_arg2_name1:v1_name2:v2. Named
// arguments with a nil value are omitted.
func (k Key) String() string {
	parts := make([]string, 0, 1+len(k.Args)+len(k.Named))
	parts = append(parts, k.Op)
	for _, a := range k.Args {
		parts = append(parts, formatValue(a))
	}

	names := make([]string, 0, len(k.Named))
	for n, v := range k.Named {
		if isNil(v) {
			continue
		}
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		parts = append(parts, n+":"+formatValue(k.Named[n]))
	}
	return strings.Join(parts, "_")
}

// Prefix returns the rendered op and positional args followed by the
// separator, matching every key that extends them.
func (k Key) Prefix() string {
	return NewKey(k.Op, k.Args...).String() + "_"
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "none"
	case time.Time:
		if x.IsZero() {
			return "none"
		}
		return x.UTC().Format(time.RFC3339)
	case *time.Time:
		if x == nil {
			return "none"
		}
		return formatValue(*x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}

func isNil(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case *time.Time:
		return x == nil
	case *int:
		return x == nil
	case *string:
		return x == nil
	}
	return false
}
