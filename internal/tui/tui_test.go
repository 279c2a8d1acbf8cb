package tui

import (
	"testing"

	"opkit/internal/executor"
	"opkit/model"
)

func TestPlanWithOnlySkippedOperationsExitsZero(t *testing.T) {
	m := &Model{}
	plan := &executor.Plan{
		Skipped: []string{"skipping invalid delete: ../escape.txt"},
	}

	next, _ := m.Update(planMsg{plan: plan})
	m = next.(*Model)

	if m.state != stateSummary {
		t.Fatalf("state = %d, want summary", m.state)
	}
	if got := m.ExitCode(); got != 0 {
		t.Errorf("ExitCode() = %d, want 0 when every operation was filtered", got)
	}
	if len(m.summary.Skipped) != 1 {
		t.Errorf("summary.Skipped = %v, the skip list must be shown", m.summary.Skipped)
	}
}

func TestPlanWithNothingParsedExitsOne(t *testing.T) {
	m := &Model{}

	next, _ := m.Update(planMsg{plan: &executor.Plan{}})
	m = next.(*Model)

	if m.state != stateError {
		t.Fatalf("state = %d, want error", m.state)
	}
	if got := m.ExitCode(); got != 1 {
		t.Errorf("ExitCode() = %d, want 1 when nothing parsed", got)
	}
}

func TestExitCodeReflectsExecutionFailures(t *testing.T) {
	m := &Model{
		state: stateSummary,
		summary: summaryMsg{model.Summary{
			Counts: model.Counts{Errors: 1},
			Failed: []string{"patch f.txt: content mismatch"},
		}},
	}
	if got := m.ExitCode(); got != 1 {
		t.Errorf("ExitCode() = %d, want 1 on execution errors", got)
	}

	clean := &Model{state: stateSummary, summary: summaryMsg{model.Summary{Message: "Dry run, nothing was applied"}}}
	if got := clean.ExitCode(); got != 0 {
		t.Errorf("ExitCode() = %d, want 0 for a clean no-op summary", got)
	}
}
