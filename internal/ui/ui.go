package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"opkit/model"
)

var (
	HeaderColor  = color.New(color.FgBlue, color.Bold)
	InfoColor    = color.New(color.FgCyan)
	SuccessColor = color.New(color.FgGreen)
	WarningColor = color.New(color.FgYellow)
	ErrorColor   = color.New(color.FgRed)
	PathColor    = color.New(color.FgYellow)
	PromptColor  = color.New(color.FgMagenta)
)

func Header(format string, a ...interface{}) {
	HeaderColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Info(format string, a ...interface{}) {
	InfoColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Success(format string, a ...interface{}) {
	SuccessColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Warning(format string, a ...interface{}) {
	WarningColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Error(format string, a ...interface{}) {
	ErrorColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Path(format string, a ...interface{}) {
	PathColor.Fprintf(os.Stderr, "  "+format+"\n", a...)
}

func Prompt(format string, a ...interface{}) string {
	return PromptColor.Sprintf(format, a...)
}

// --- Summaries ---

func listGroup(print func(string, ...interface{}), label string, items []string) {
	if len(items) == 0 {
		return
	}
	print(label, len(items))
	for _, it := range items {
		fmt.Printf("  - %s\n", it)
	}
}

// PrintSummary reports one run's outcome grouped by operation kind.
func PrintSummary(s model.Summary) {
	Header("\n--- Apply Summary ---")

	if s.Counts == (model.Counts{}) && len(s.Skipped) == 0 && len(s.Warnings) == 0 {
		Info("No operations were applied.")
		return
	}

	listGroup(Success, "Renamed %d file(s):", s.Renamed)
	listGroup(Success, "Deleted %d path(s):", s.Deleted)
	listGroup(Success, "Created %d file(s):", s.Created)
	listGroup(Success, "Wrote %d binary file(s):", s.Binaries)
	listGroup(Success, "Patched %d file(s):", s.Patched)
	listGroup(Warning, "Skipped %d invalid operation(s):", s.Skipped)
	listGroup(Warning, "%d warning(s):", s.Warnings)
	listGroup(Error, "Failed %d operation(s):", s.Failed)
}

// PrintRestoreSummary reports an undo or redo. title is "Undo" or "Redo",
// verb is "Reverted" or "Reapplied".
func PrintRestoreSummary(title, verb string, restored []string) {
	Header("\n--- %s Summary ---", title)
	if len(restored) == 0 {
		Info("No files were affected.")
		return
	}
	Success("%s %d file(s):", verb, len(restored))
	for _, f := range restored {
		fmt.Printf("  - %s\n", f)
	}
}

// PrintPlan shows the pending operations before confirmation.
func PrintPlan(lines []string) {
	Header("\n--- Pending Operations ---")
	if len(lines) == 0 {
		Info("Nothing to do.")
		return
	}
	for _, ln := range lines {
		if strings.HasPrefix(ln, "  ") {
			fmt.Fprintln(os.Stderr, ln)
		} else {
			Info("%s", ln)
		}
	}
}

// --- Progress Bar ---

type ProgressBar struct {
	total   int
	prefix  string
	current int
}

func NewProgressBar(total int, prefix string) *ProgressBar {
	return &ProgressBar{total: total, prefix: prefix}
}

func (p *ProgressBar) Start() {
	p.draw()
}

func (p *ProgressBar) Set(current int) {
	p.current = current
	p.draw()
}

func (p *ProgressBar) Finish() {
	fmt.Fprintln(os.Stderr)
}

func (p *ProgressBar) draw() {
	if p.total == 0 {
		return
	}
	const barLength = 40
	percent := float64(p.current) / float64(p.total)
	filledLength := int(percent * barLength)
	bar := strings.Repeat("█", filledLength) + strings.Repeat("-", barLength-filledLength)

	percentStr := fmt.Sprintf("%.1f%%", percent*100)
	countStr := fmt.Sprintf("[%d/%d]", p.current, p.total)

	fmt.Fprintf(os.Stderr, "\r%s |%s| %s %s", p.prefix, bar, countStr, percentStr)
}
