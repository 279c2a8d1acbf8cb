package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"opkit/internal/app"
	"opkit/internal/executor"
	"opkit/model"
)

// --- Styles ---
var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")) // Mauve
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))            // Green
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))           // Orange
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))           // Red
	pathStyle    = lipgloss.NewStyle()
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

// --- Messages ---
type planMsg struct {
	plan     *executor.Plan
	warnings []string
}

type summaryMsg struct {
	model.Summary
}

type errorMsg struct{ err error }

func (e errorMsg) Error() string { return e.err.Error() }

type progressMsg struct{ done, total int }

// --- Model ---
type Model struct {
	app      *app.App
	program  *tea.Program
	spinner  spinner.Model
	state    state
	plan     *executor.Plan
	warnings []string
	progress progressMsg
	summary  summaryMsg
	err      error
	aborted  bool
}

type state int

const (
	stateLoading state = iota
	stateConfirm
	stateApplying
	stateSummary
	stateError
)

func New(a *app.App) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return &Model{
		app:     a,
		spinner: s,
		state:   stateLoading,
	}
}

// SetProgram lets the executor push progress updates into the event loop.
func (m *Model) SetProgram(p *tea.Program) {
	m.program = p
	m.app.Progress = func(done, total int) {
		p.Send(progressMsg{done: done, total: total})
	}
}

// ExitCode is 1 when the run failed outright, any operation errored, or
// the user aborted. A run whose operations were all filtered out still
// exits 0; only zero parsed operations is fatal.
func (m *Model) ExitCode() int {
	switch m.state {
	case stateError:
		return 1
	case stateSummary:
		if m.summary.Errored() {
			return 1
		}
		return 0
	default:
		if m.aborted {
			return 1
		}
		return 0
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.prepare)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.aborted = true
			return m, tea.Quit
		}
		if m.state == stateConfirm {
			switch msg.String() {
			case "y", "Y", "enter":
				m.state = stateApplying
				return m, tea.Batch(m.spinner.Tick, m.apply)
			case "n", "N", "q", "esc":
				m.aborted = true
				return m, tea.Quit
			}
		}
		if msg.String() == "q" && m.state != stateApplying {
			m.aborted = m.state != stateSummary
			return m, tea.Quit
		}

	case planMsg:
		m.plan = msg.plan
		m.warnings = msg.warnings
		if m.plan.Total() == 0 {
			// Directives that parsed but failed path validation are not an
			// error exit; the user just needs to see why nothing ran.
			if len(m.plan.Skipped) > 0 {
				m.state = stateSummary
				m.summary = summaryMsg{model.Summary{
					Skipped:  m.plan.Skipped,
					Warnings: m.warnings,
					Message:  "No operations to apply",
				}}
				return m, tea.Quit
			}
			m.state = stateError
			m.err = fmt.Errorf("no valid operations found in input")
			return m, tea.Quit
		}
		if m.app.Config().DryRun {
			m.state = stateSummary
			m.summary = summaryMsg{model.Summary{Message: "Dry run, nothing was applied"}}
			return m, tea.Quit
		}
		if m.app.Config().Yes {
			m.state = stateApplying
			return m, tea.Batch(m.spinner.Tick, m.apply)
		}
		m.state = stateConfirm
		return m, nil

	case progressMsg:
		m.progress = msg
		return m, nil

	case summaryMsg:
		m.state = stateSummary
		m.summary = msg
		return m, tea.Quit

	case errorMsg:
		m.state = stateError
		m.err = msg
		return m, tea.Quit

	default:
		var cmd tea.Cmd
		if m.state == stateLoading || m.state == stateApplying {
			m.spinner, cmd = m.spinner.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

func (m *Model) View() string {
	switch m.state {
	case stateLoading:
		return fmt.Sprintf("%s Reading input...", m.spinner.View())
	case stateConfirm:
		return m.renderConfirm()
	case stateApplying:
		if m.progress.total > 0 {
			return fmt.Sprintf("%s Applying... [%d/%d]", m.spinner.View(), m.progress.done, m.progress.total)
		}
		return fmt.Sprintf("%s Applying...", m.spinner.View())
	case stateError:
		return errorStyle.Render("Error: ", m.err.Error()) + "\n"
	case stateSummary:
		return m.renderSummary()
	default:
		return ""
	}
}

func (m *Model) renderConfirm() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Pending operations"))
	b.WriteString("\n\n")
	for _, ln := range m.plan.Preview() {
		if strings.HasPrefix(ln, "  ") {
			b.WriteString(pathStyle.Render(ln))
		} else {
			b.WriteString(successStyle.Render(ln))
		}
		b.WriteString("\n")
	}
	for _, w := range m.warnings {
		b.WriteString(warnStyle.Render("! " + w))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(faintStyle.Render("Apply? [y/N] "))
	return b.String()
}

func (m *Model) renderSummary() string {
	var b strings.Builder

	if m.summary.Message != "" {
		b.WriteString(headerStyle.Render(m.summary.Message))
		b.WriteString("\n\n")
	}

	section := func(style lipgloss.Style, label string, items []string) bool {
		if len(items) == 0 {
			return false
		}
		b.WriteString(style.Render(label))
		b.WriteString("\n")
		for _, f := range items {
			b.WriteString(fmt.Sprintf("  %s\n", pathStyle.Render(f)))
		}
		return true
	}

	hasContent := false
	hasContent = section(successStyle, "Renamed:", m.summary.Renamed) || hasContent
	hasContent = section(successStyle, "Deleted:", m.summary.Deleted) || hasContent
	hasContent = section(successStyle, "Created:", m.summary.Created) || hasContent
	hasContent = section(successStyle, "Binary:", m.summary.Binaries) || hasContent
	hasContent = section(successStyle, "Patched:", m.summary.Patched) || hasContent
	hasContent = section(successStyle, "Restored:", m.summary.Restored) || hasContent
	hasContent = section(warnStyle, "Skipped:", m.summary.Skipped) || hasContent
	hasContent = section(warnStyle, "Warnings:", m.summary.Warnings) || hasContent
	hasContent = section(errorStyle, "Failed:", m.summary.Failed) || hasContent

	if !hasContent && m.summary.Message == "" {
		b.WriteString(faintStyle.Render("Nothing to do."))
		b.WriteString("\n")
	}

	return b.String()
}

func (m *Model) prepare() tea.Msg {
	if m.app.Config().Undo || m.app.Config().Redo {
		summary, err := m.app.Execute()
		if err != nil {
			return errorMsg{err}
		}
		return summaryMsg{summary}
	}

	plan, warnings, err := m.app.Prepare()
	if err != nil {
		if e, ok := err.(*app.DetailedError); ok {
			fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", e.Stack)
		}
		return errorMsg{err}
	}
	return planMsg{plan: plan, warnings: warnings}
}

func (m *Model) apply() tea.Msg {
	summary, err := m.app.Apply()
	if err != nil {
		if e, ok := err.(*app.DetailedError); ok {
			fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", e.Stack)
		}
		return errorMsg{err}
	}
	return summaryMsg{summary}
}
