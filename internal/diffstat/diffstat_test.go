package diffstat_test

import (
	"strings"
	"testing"

	"github.com/dsablic/devpulse/internal/diffstat"
	"github.com/dsablic/devpulse/internal/model"
)

func TestAnalyzeDiffEmpty(t *testing.T) {
	got := diffstat.AnalyzeDiff("", "main.go")
	if !got.IsZero() {
		t.Errorf("expected zero stats, got %+v", got)
	}
}

func TestAnalyzeDiff(t *testing.T) {
	diff := strings.Join([]string{
		"@@ -1,4 +1,6 @@",
		" package main",
		"+// Greet says hello.",
		"+func Greet() string {",
		"+	return \"hi\"",
		"+}",
		"+",
		"-/* old */",
		"-var x = 1",
		"-",
		`\ No newline at end of file`,
	}, "\n")

	got := diffstat.AnalyzeDiff(diff, "main.go")

	if got.Additions != 5 {
		t.Errorf("expected 5 additions, got %d", got.Additions)
	}
	if got.AdditionsCode != 3 || got.AdditionsComments != 1 || got.AdditionsBlank != 1 {
		t.Errorf("unexpected addition split: %+v", got)
	}
	if got.Deletions != 3 {
		t.Errorf("expected 3 deletions, got %d", got.Deletions)
	}
	if got.DeletionsCode != 1 || got.DeletionsComments != 1 || got.DeletionsBlank != 1 {
		t.Errorf("unexpected deletion split: %+v", got)
	}
}

func TestAnalyzeDiffCategoriesSumExactly(t *testing.T) {
	diffs := map[string]string{
		"app.py":     "+# c\n+x = 1\n+\n-'''doc'''\n- \n-y()",
		"index.html": "+<!-- a -->\n+<div>\n-</div>\n-<!--",
		"query.sql":  "+-- note\n+SELECT 1;\n---- removed comment\n-",
		"README":     "+anything\n-// still code\n+",
	}

	for name, diff := range diffs {
		s := diffstat.AnalyzeDiff(diff, name)
		if s.Additions != s.AdditionsCode+s.AdditionsComments+s.AdditionsBlank {
			t.Errorf("%s: additions %d != split sum %+v", name, s.Additions, s)
		}
		if s.Deletions != s.DeletionsCode+s.DeletionsComments+s.DeletionsBlank {
			t.Errorf("%s: deletions %d != split sum %+v", name, s.Deletions, s)
		}
	}
}

func TestAnalyzeDiffUnknownLanguageIsAllCode(t *testing.T) {
	got := diffstat.AnalyzeDiff("+// x\n+# y\n-z", "Makefile")
	if got.AdditionsCode != 2 || got.AdditionsComments != 0 {
		t.Errorf("expected unknown language lines counted as code, got %+v", got)
	}
}

func TestAnalyzeFileContent(t *testing.T) {
	content := "#!/bin/sh\n\necho hi\n# done"
	got := diffstat.AnalyzeFileContent(content, "run.sh")

	if got.Total != 4 {
		t.Errorf("expected 4 lines, got %d", got.Total)
	}
	if got.Code != 1 || got.Comment != 2 || got.Blank != 1 {
		t.Errorf("unexpected split: %+v", got)
	}
	if empty := diffstat.AnalyzeFileContent("", "run.sh"); empty.Total != 0 {
		t.Errorf("expected empty content to count nothing, got %+v", empty)
	}
}

func TestAnalyzeCommit(t *testing.T) {
	diffs := []model.FileDiff{
		{NewPath: "cmd/main.go", Diff: "+package main\n+// doc"},
		{NewPath: "vendor/github.com/x/y.go", Diff: "+package y\n+var z = 1"},
		{OldPath: "old.py", DeletedFile: true, Diff: "-print(1)"},
		{NewPath: "empty.go"},
	}

	total, files := diffstat.AnalyzeCommit(diffs, diffstat.Options{SkipVendored: true})

	if total.Additions != 2 {
		t.Errorf("expected 2 additions with vendor skipped, got %d", total.Additions)
	}
	if total.Deletions != 1 {
		t.Errorf("expected 1 deletion, got %d", total.Deletions)
	}
	if len(files) != 4 {
		t.Fatalf("expected 4 file results, got %d", len(files))
	}
	if !files[1].Skipped {
		t.Error("expected vendored file to be skipped")
	}
	if files[0].Language != "Go" {
		t.Errorf("expected Go, got %q", files[0].Language)
	}
	if files[2].Path != "old.py" {
		t.Errorf("expected deleted file to keep its old path, got %q", files[2].Path)
	}

	all, _ := diffstat.AnalyzeCommit(diffs, diffstat.Options{})
	if all.Additions != 4 {
		t.Errorf("expected 4 additions without skipping, got %d", all.Additions)
	}
}
