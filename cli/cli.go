package cli

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

// DefaultFuzzy is the fuzzy-match acceptance ratio used when --fuzzy is
// absent or out of range.
const DefaultFuzzy = 0.88

// Config holds all the command-line flag values.
type Config struct {
	Fuzzy       float64
	NoFuzzy     bool
	Backup      bool
	Debug       bool
	DryRun      bool
	Yes         bool
	NoAnimation bool
	Undo        bool
	Redo        bool
}

// ParseFlags defines and parses command-line flags using pflag.
func ParseFlags() (*Config, error) {
	cfg := &Config{}

	pflag.Float64Var(&cfg.Fuzzy, "fuzzy", DefaultFuzzy, "Similarity ratio (0..1) at which an inexact patch window is accepted.")
	pflag.BoolVar(&cfg.NoFuzzy, "no-fuzzy", false, "Disable fuzzy patch matching; only exact windows apply.")
	pflag.BoolVarP(&cfg.Backup, "backup", "b", false, "Write a .bak copy of each file before patching it.")
	pflag.BoolVarP(&cfg.Debug, "debug", "d", false, "Print patch placement diagnostics to stderr.")
	pflag.BoolVarP(&cfg.DryRun, "dry-run", "n", false, "Show the planned operations without applying them.")
	pflag.BoolVarP(&cfg.Yes, "yes", "y", false, "Apply without asking for confirmation.")
	pflag.BoolVar(&cfg.NoAnimation, "no-animation", false, "Disable the interactive interface and progress updates.")

	// Mutually exclusive history group
	pflag.BoolVarP(&cfg.Undo, "undo", "u", false, "Undo the last applied run.")
	pflag.BoolVarP(&cfg.Redo, "redo", "r", false, "Redo the last undone run.")

	pflag.Usage = func() {
		fmt.Println("Usage: opkit [flags]")
		fmt.Println("\nApply change directives from stdin (pipe) or the clipboard to the current project.")
		fmt.Println("\nExample: pbpaste | opkit -y")
		fmt.Println("\nFlags:")
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if cfg.Undo && cfg.Redo {
		return nil, fmt.Errorf("error: --undo and --redo are mutually exclusive")
	}

	if cfg.Fuzzy < 0 || cfg.Fuzzy > 1 {
		fmt.Fprintf(os.Stderr, "warning: --fuzzy %v is out of range, using %v\n", cfg.Fuzzy, DefaultFuzzy)
		cfg.Fuzzy = DefaultFuzzy
	}

	return cfg, nil
}
