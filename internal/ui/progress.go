// Package ui provides progress display and interactive prompts for the CLI.
package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
	xterm "golang.org/x/term"
)

// IsTTY returns true if stderr is a terminal.
func IsTTY() bool {
	return term.IsTerminal(os.Stderr.Fd())
}

// IsInteractive reports whether both stdin and stderr are terminals, which
// prompts need.
func IsInteractive() bool {
	return xterm.IsTerminal(int(os.Stdin.Fd())) && IsTTY()
}

// Reporter receives progress of a multi-step run.
type Reporter interface {
	Update(completed, total int, label string)
	Done(total int)
}

// --- Plain text fallback ---

// PlainProgress prints progress messages to a callback function.
// Used when stderr is not a TTY (e.g., piped output).
type PlainProgress struct {
	verb  string
	noun  string
	print func(string)
}

// NewPlainProgress creates a new PlainProgress with the given print callback.
// verb and noun describe the steps, e.g. "Analyzed" and "periods".
func NewPlainProgress(verb, noun string, print func(string)) *PlainProgress {
	return &PlainProgress{verb: verb, noun: noun, print: print}
}

// Update prints a progress message for a completed step.
func (p *PlainProgress) Update(completed, total int, label string) {
	p.print(fmt.Sprintf("[%d/%d] %s %s", completed, total, p.verb, label))
}

// Done prints a completion message.
func (p *PlainProgress) Done(total int) {
	p.print(fmt.Sprintf("Done! %s %d %s.", p.verb, total, p.noun))
}

// --- TUI progress ---

// ProgressMsg is sent to the bubbletea program when a step completes.
type ProgressMsg struct {
	Completed int
	Total     int
	Label     string
}

// DoneMsg is sent to the bubbletea program when all steps are complete.
type DoneMsg struct{}

type model struct {
	progress  progress.Model
	title     string
	completed int
	total     int
	label     string
	done      bool
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const maxBarWidth = 60

// NewTUIModel creates a new bubbletea model for the progress TUI.
func NewTUIModel(title string, total int) tea.Model {
	return model{
		progress: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(barWidth()),
			progress.WithoutPercentage(),
		),
		title: title,
		total: total,
	}
}

func barWidth() int {
	w, _, err := xterm.GetSize(int(os.Stderr.Fd()))
	if err != nil || w <= 10 {
		return 50
	}
	return min(w-10, maxBarWidth)
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.progress.Width = max(min(msg.Width-10, maxBarWidth), 10)
	case ProgressMsg:
		m.completed = msg.Completed
		m.total = msg.Total
		m.label = msg.Label
		if m.total == 0 {
			return m, nil
		}
		pct := float64(m.completed) / float64(m.total)
		return m, m.progress.SetPercent(pct)
	case DoneMsg:
		m.done = true
		return m, tea.Quit
	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	if m.done {
		return fmt.Sprintf("\n  %s\n\n",
			titleStyle.Render(fmt.Sprintf("Done! %d of %d complete.", m.completed, m.total)))
	}

	pad := strings.Repeat(" ", 2)
	counter := infoStyle.Render(fmt.Sprintf("%d/%d", m.completed, m.total))
	desc := m.label
	if desc == "" {
		desc = "Starting..."
	}

	return "\n" +
		pad + titleStyle.Render(m.title) + "\n" +
		pad + m.progress.View() + "  " + counter + "\n" +
		pad + infoStyle.Render(desc) + "\n\n"
}

// TUIProgress drives a bubbletea progress bar on stderr so output on
// stdout stays clean.
type TUIProgress struct {
	program *tea.Program
	done    chan struct{}
}

// StartTUI starts the progress program in the background.
func StartTUI(title string, total int) *TUIProgress {
	p := &TUIProgress{
		program: tea.NewProgram(NewTUIModel(title, total), tea.WithOutput(os.Stderr)),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(p.done)
		p.program.Run()
	}()
	return p
}

func (p *TUIProgress) Update(completed, total int, label string) {
	p.program.Send(ProgressMsg{Completed: completed, Total: total, Label: label})
}

// Done stops the program and waits for the terminal to be restored.
func (p *TUIProgress) Done(int) {
	p.program.Send(DoneMsg{})
	<-p.done
}

// NewReporter returns a TUI reporter on a terminal and a plain one otherwise.
func NewReporter(title, verb, noun string, total int) Reporter {
	if IsTTY() {
		return StartTUI(title, total)
	}
	return NewPlainProgress(verb, noun, func(s string) { fmt.Fprintln(os.Stderr, s) })
}
