// Package opkit applies change directives to a project tree as a library,
// without the CLI's input detection, confirmation or undo journal.
package opkit

import (
	"os"

	"github.com/rs/zerolog"

	"opkit/internal/directive"
	"opkit/internal/executor"
	"opkit/internal/markdown"
	"opkit/internal/patch"
	"opkit/model"
)

// Config for using opkit as a library. The zero value applies under the
// current directory with default fuzzy matching.
type Config struct {
	// Root is the directory relative paths resolve under. Empty means the
	// current working directory.
	Root string
	// NoFuzzy restricts patching to exact window matches.
	NoFuzzy bool
	// FuzzyThreshold overrides the default acceptance ratio when positive.
	FuzzyThreshold float64
	// Backup writes a .bak copy of each file before patching it.
	Backup bool
}

// Parse extracts operations from directive text. Markdown-fenced
// directives are unwrapped first. The returned warnings are per-block
// diagnostics; "error:"-prefixed entries mark dropped directives.
func Parse(content string) ([]model.Operation, []string, error) {
	return directive.Parse(markdown.UnwrapDirectives(content))
}

// Apply parses content and executes every valid operation it holds.
// Individual operation failures are reported in the summary, not as an
// error.
func Apply(content string, cfg Config) (model.Summary, error) {
	var s model.Summary

	ops, warnings, err := Parse(content)
	if err != nil {
		return s, err
	}

	root := cfg.Root
	if root == "" {
		if root, err = os.Getwd(); err != nil {
			return s, err
		}
	}

	engine := patch.NewEngine()
	engine.Fuzzy = !cfg.NoFuzzy
	if cfg.FuzzyThreshold > 0 {
		engine.FuzzyThreshold = cfg.FuzzyThreshold
	}

	plan := executor.BuildPlan(ops, zerolog.Nop())
	x := &executor.Executor{
		Root:   root,
		Engine: engine,
		Backup: cfg.Backup,
		Log:    zerolog.Nop(),
	}

	s = x.Execute(plan)
	s.Warnings = append(warnings, s.Warnings...)
	return s, nil
}
