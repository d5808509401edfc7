// internal/ui/progress_test.go
package ui_test

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dsablic/devpulse/internal/model"
	"github.com/dsablic/devpulse/internal/ui"
)

func TestPlainProgress(t *testing.T) {
	var messages []string
	p := ui.NewPlainProgress("Analyzed", "periods", func(msg string) {
		messages = append(messages, msg)
	})

	p.Update(1, 3, "2026-01")
	p.Update(2, 3, "2026-02")
	p.Done(3)

	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	if messages[0] != "[1/3] Analyzed 2026-01" {
		t.Errorf("unexpected message %q", messages[0])
	}
	if messages[2] != "Done! Analyzed 3 periods." {
		t.Errorf("unexpected message %q", messages[2])
	}
}

func TestTUIModelTracksProgress(t *testing.T) {
	m := ui.NewTUIModel("Analyzing periods", 4)

	m, _ = m.Update(ui.ProgressMsg{Completed: 2, Total: 4, Label: "2026-02"})
	view := m.View()
	if !strings.Contains(view, "2/4") || !strings.Contains(view, "2026-02") {
		t.Errorf("expected counter and label in view, got %q", view)
	}

	m, cmd := m.Update(ui.DoneMsg{})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected DoneMsg to quit")
	}
	if !strings.Contains(m.View(), "Done!") {
		t.Errorf("expected done view, got %q", m.View())
	}
}

func TestTUIModelZeroTotal(t *testing.T) {
	m := ui.NewTUIModel("Analyzing", 0)
	if _, cmd := m.Update(ui.ProgressMsg{}); cmd != nil {
		t.Error("expected no animation for an empty run")
	}
}

func TestProjectOptions(t *testing.T) {
	opts := ui.ProjectOptions([]model.ProjectSummary{
		{Project: model.Project{ID: 7, PathWithNamespace: "acme/api"}, Health: model.ProjectHealth{Category: model.HealthActive}},
		{Project: model.Project{ID: 9, Name: "tools"}, Health: model.ProjectHealth{Category: model.HealthUnknown}},
	})
	if len(opts) != 2 {
		t.Fatalf("expected 2 options, got %d", len(opts))
	}
	if opts[0].Key != "acme/api (active)" || opts[0].Value != 7 {
		t.Errorf("unexpected option %+v", opts[0])
	}
	if opts[1].Key != "tools (unknown)" {
		t.Errorf("expected name fallback, got %q", opts[1].Key)
	}
}

func TestPickProjectEmpty(t *testing.T) {
	if _, err := ui.PickProject(nil); err != ui.ErrNoProjects {
		t.Errorf("expected ErrNoProjects, got %v", err)
	}
}

func TestIsTTY(t *testing.T) {
	_ = ui.IsTTY()
	_ = ui.IsInteractive()
}
