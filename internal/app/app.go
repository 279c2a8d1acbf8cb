// Package app orchestrates one invocation: read the directive source,
// parse it into a plan, execute the plan and journal the result for undo.
package app

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/rs/zerolog"

	"opkit/cli"
	"opkit/internal/directive"
	"opkit/internal/executor"
	"opkit/internal/markdown"
	"opkit/internal/patch"
	"opkit/internal/source"
	"opkit/internal/state"
	"opkit/model"
)

// App wires the configuration to the parsing and execution pipeline.
type App struct {
	cfg      *cli.Config
	log      zerolog.Logger
	states   *state.Manager
	provider source.Provider

	plan     *executor.Plan
	warnings []string

	// Progress, when set, receives per-operation completion updates during
	// Apply.
	Progress func(done, total int)
}

// DetailedError enhances a standard error with a stack trace.
type DetailedError struct {
	Err   error
	Stack []byte
}

func (e *DetailedError) Error() string {
	return e.Err.Error()
}

func (e *DetailedError) Unwrap() error {
	return e.Err
}

// New creates an App. The journal manager is rooted at the current
// directory; a git repository above it hosts the journal itself.
func New(cfg *cli.Config) (*App, error) {
	log := zerolog.Nop()
	if cfg.Debug {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(zerolog.DebugLevel).
			With().Timestamp().Logger()
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("could not get current working directory: %w", err)
	}
	states, err := state.New(wd)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize journal: %w", err)
	}

	return &App{
		cfg:      cfg,
		log:      log,
		states:   states,
		provider: source.Detect(),
	}, nil
}

// Config exposes the parsed flags to the presentation layer.
func (a *App) Config() *cli.Config { return a.cfg }

// Prepare reads and parses the source into an execution plan. The returned
// warnings are parser diagnostics; the plan may still be worth applying.
func (a *App) Prepare() (plan *executor.Plan, warnings []string, err error) {
	defer a.recoverPanic(&err)

	content, err := a.provider.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("reading from %s: %w", a.provider.Name(), err)
	}

	content = markdown.UnwrapDirectives(content)

	ops, warns, err := directive.Parse(content)
	if err != nil {
		return nil, warns, err
	}

	a.plan = executor.BuildPlan(ops, a.log)
	a.warnings = warns
	return a.plan, warns, nil
}

// PreparedPlan returns the plan built by Prepare, or nil.
func (a *App) PreparedPlan() *executor.Plan { return a.plan }

// Apply executes the prepared plan and journals the run. Prepare must have
// been called first.
func (a *App) Apply() (s model.Summary, err error) {
	defer a.recoverPanic(&err)

	if a.plan == nil {
		return s, fmt.Errorf("no plan prepared")
	}

	engine := patch.NewEngine()
	engine.Fuzzy = !a.cfg.NoFuzzy
	engine.FuzzyThreshold = a.cfg.Fuzzy
	engine.Log = a.log

	x := &executor.Executor{
		Root:     a.states.WorkDir,
		Engine:   engine,
		Backup:   a.cfg.Backup,
		Log:      a.log,
		Progress: a.Progress,
	}

	txn, err := a.states.Begin(a.plan.AffectedPaths())
	if err != nil {
		// An unusable journal should not block the run itself.
		a.log.Debug().Err(err).Msg("journal snapshot failed, undo disabled for this run")
		txn = nil
	}

	s = x.Execute(a.plan)
	s.Warnings = append(a.warnings, s.Warnings...)
	s.Message = fmt.Sprintf("Applied %d operation(s)", s.Counts.Applied())

	if txn != nil {
		if err := txn.Commit(); err != nil {
			s.Warnings = append(s.Warnings, fmt.Sprintf("could not record run for undo: %v", err))
		}
	}
	return s, nil
}

// Execute runs the mode the flags select: undo, redo, or the full
// prepare-and-apply pipeline without confirmation.
func (a *App) Execute() (s model.Summary, err error) {
	defer a.recoverPanic(&err)

	switch {
	case a.cfg.Undo:
		return a.undo()
	case a.cfg.Redo:
		return a.redo()
	default:
		if _, _, err := a.Prepare(); err != nil {
			return s, err
		}
		return a.Apply()
	}
}

func (a *App) undo() (model.Summary, error) {
	var s model.Summary
	restored, err := a.states.Undo()
	if err != nil {
		return s, err
	}
	s.Restored = restored
	s.Message = fmt.Sprintf("Reverted %d file(s)", len(restored))
	return s, nil
}

func (a *App) redo() (model.Summary, error) {
	var s model.Summary
	restored, err := a.states.Redo()
	if err != nil {
		return s, err
	}
	s.Restored = restored
	s.Message = fmt.Sprintf("Reapplied %d file(s)", len(restored))
	return s, nil
}

// recoverPanic converts a panic anywhere in the pipeline into a
// DetailedError carrying the stack.
func (a *App) recoverPanic(err *error) {
	if r := recover(); r != nil {
		*err = &DetailedError{
			Err:   fmt.Errorf("internal panic: %v", r),
			Stack: debug.Stack(),
		}
	}
}
