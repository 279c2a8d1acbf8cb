package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"opkit/cli"
	"opkit/internal/app"
	"opkit/internal/source"
	"opkit/internal/tui"
	"opkit/internal/ui"
)

func main() {
	cfg, err := cli.ParseFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Piped input is non-interactive use: apply without a prompt.
	if source.IsPiped() {
		cfg.Yes = true
	}

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if cfg.NoAnimation || cfg.DryRun {
		os.Exit(runPlain(a, cfg))
	}

	model := tui.New(a)
	p := tea.NewProgram(model)
	model.SetProgram(p)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
	os.Exit(model.ExitCode())
}

// runPlain drives the pipeline without the interactive interface.
func runPlain(a *app.App, cfg *cli.Config) int {
	if cfg.Undo || cfg.Redo {
		summary, err := a.Execute()
		if err != nil {
			reportError(err)
			return 1
		}
		if cfg.Undo {
			ui.PrintRestoreSummary("Undo", "Reverted", summary.Restored)
		} else {
			ui.PrintRestoreSummary("Redo", "Reapplied", summary.Restored)
		}
		return 0
	}

	plan, warnings, err := a.Prepare()
	if err != nil {
		reportError(err)
		return 1
	}
	for _, w := range warnings {
		ui.Warning("%s", w)
	}
	if plan.Total() == 0 {
		// All-filtered is not the same as nothing parsed: show the skip
		// list and exit cleanly.
		if len(plan.Skipped) > 0 {
			ui.PrintPlan(plan.Preview())
			ui.Info("\nNo operations to apply.")
			return 0
		}
		ui.Error("No valid operations found in input.")
		return 1
	}

	ui.PrintPlan(plan.Preview())
	if cfg.DryRun {
		ui.Info("\nDry run, nothing was applied.")
		return 0
	}

	if !cfg.Yes && !confirm() {
		ui.Warning("Aborted.")
		return 1
	}

	bar := ui.NewProgressBar(plan.Total(), "Applying")
	a.Progress = func(done, total int) { bar.Set(done) }
	bar.Start()
	summary, err := a.Apply()
	bar.Finish()
	if err != nil {
		reportError(err)
		return 1
	}

	ui.PrintSummary(summary)
	if summary.Errored() {
		return 1
	}
	return 0
}

func confirm() bool {
	fmt.Fprint(os.Stderr, ui.Prompt("\nApply these operations? [y/N] "))
	var answer string
	fmt.Fscanln(os.Stdin, &answer)
	return answer == "y" || answer == "Y" || answer == "yes"
}

func reportError(err error) {
	if e, ok := err.(*app.DetailedError); ok {
		fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", e.Stack)
	}
	ui.Error("Error: %v", err)
}
