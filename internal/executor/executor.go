// Package executor turns parsed operations into filesystem mutations.
// Operations are first categorized and path-validated into a Plan, then
// executed in a fixed order with per-operation failure isolation: one
// failure is counted and the batch continues.
package executor

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"opkit/internal/fs"
	"opkit/internal/patch"
	"opkit/internal/udiff"
	"opkit/model"
)

// Plan is the categorized, validated set of operations for one run.
// Unsafe paths land in Skipped and are never executed.
type Plan struct {
	Renames   []model.Rename
	Deletions []model.Delete
	Creations []model.Create
	Binaries  []model.Binary
	Patches   []model.FilePatch
	Skipped   []string
	ParseErrs []string
}

// Total counts the executable operations.
func (p *Plan) Total() int {
	return len(p.Renames) + len(p.Deletions) + len(p.Creations) + len(p.Binaries) + len(p.Patches)
}

// AffectedPaths lists every relative path the plan may touch, in execution
// order.
func (p *Plan) AffectedPaths() []string {
	var paths []string
	for _, op := range p.Renames {
		paths = append(paths, op.From, op.To)
	}
	for _, op := range p.Deletions {
		paths = append(paths, op.Path)
	}
	for _, op := range p.Creations {
		paths = append(paths, op.Path)
	}
	for _, op := range p.Binaries {
		paths = append(paths, op.Path)
	}
	for _, op := range p.Patches {
		paths = append(paths, op.Path)
	}
	return paths
}

// Preview renders the plan as display lines, one per operation or skip
// notice.
func (p *Plan) Preview() []string {
	var lines []string
	add := func(header string, items []string) {
		if len(items) == 0 {
			return
		}
		lines = append(lines, header)
		for _, it := range items {
			lines = append(lines, "  - "+it)
		}
	}

	var renames, deletions, creations, binaries, patches []string
	for _, op := range p.Renames {
		renames = append(renames, fmt.Sprintf("%s -> %s", op.From, op.To))
	}
	for _, op := range p.Deletions {
		deletions = append(deletions, op.Path)
	}
	for _, op := range p.Creations {
		creations = append(creations, op.Path)
	}
	for _, op := range p.Binaries {
		binaries = append(binaries, op.Path)
	}
	for _, op := range p.Patches {
		if op.IsNew {
			patches = append(patches, op.Path+" (new file)")
		} else {
			patches = append(patches, op.Path)
		}
	}

	add("Files to be renamed / moved:", renames)
	add("Files or directories to be deleted:", deletions)
	add("Files to be created / overwritten:", creations)
	add("Binary files to be written:", binaries)
	add("Files to be patched:", patches)
	add("Skipped invalid operations:", p.Skipped)
	return lines
}

// BuildPlan validates and categorizes parsed operations. Patch blobs are
// resolved into per-file patches here; every path must pass the safety
// check before its operation can execute.
func BuildPlan(ops []model.Operation, log zerolog.Logger) *Plan {
	plan := &Plan{}
	for _, op := range ops {
		switch op := op.(type) {
		case model.Create:
			if fs.IsSafePath(op.Path) {
				plan.Creations = append(plan.Creations, op)
			} else {
				plan.skip("create/update", op.Path)
			}
		case model.Delete:
			if fs.IsSafePath(op.Path) {
				plan.Deletions = append(plan.Deletions, op)
			} else {
				plan.skip("delete", op.Path)
			}
		case model.Rename:
			if fs.IsSafePath(op.From) && fs.IsSafePath(op.To) {
				plan.Renames = append(plan.Renames, op)
			} else {
				plan.Skipped = append(plan.Skipped, fmt.Sprintf("skipping invalid rename: from %q to %q", op.From, op.To))
			}
		case model.Binary:
			if fs.IsSafePath(op.Path) {
				plan.Binaries = append(plan.Binaries, op)
			} else {
				plan.skip("binary write", op.Path)
			}
		case model.PatchBlob:
			resolved, errs := udiff.Parse(op.Content)
			plan.ParseErrs = append(plan.ParseErrs, errs...)
			for _, r := range resolved {
				plan.addResolved(r)
			}
		case model.FilePatch:
			plan.addResolved(op)
		}
	}
	log.Debug().
		Int("create", len(plan.Creations)).
		Int("delete", len(plan.Deletions)).
		Int("rename", len(plan.Renames)).
		Int("binary", len(plan.Binaries)).
		Int("patch", len(plan.Patches)).
		Int("skipped", len(plan.Skipped)).
		Msg("operation tally")
	return plan
}

// addResolved routes an operation produced by the diff parser.
func (p *Plan) addResolved(op model.Operation) {
	switch op := op.(type) {
	case model.Delete:
		if fs.IsSafePath(op.Path) {
			p.Deletions = append(p.Deletions, op)
		} else {
			p.skip("delete", op.Path)
		}
	case model.FilePatch:
		if fs.IsSafePath(op.Path) {
			p.Patches = append(p.Patches, op)
		} else {
			p.skip("patch", op.Path)
		}
	}
}

func (p *Plan) skip(what, path string) {
	p.Skipped = append(p.Skipped, fmt.Sprintf("skipping invalid %s: %s", what, path))
}

// Executor performs a plan's mutations under Root in a fixed order:
// renames, deletions, creations, binary writes, patches.
type Executor struct {
	Root     string
	Engine   *patch.Engine
	Backup   bool
	Log      zerolog.Logger
	Progress func(done, total int)
}

// Execute runs the plan and reports per-category outcomes. Failures are
// isolated: each is counted, recorded and the batch continues.
func (x *Executor) Execute(plan *Plan) model.Summary {
	var s model.Summary
	s.Skipped = append(s.Skipped, plan.Skipped...)
	for _, e := range plan.ParseErrs {
		s.Warnings = append(s.Warnings, "patch parsing error: "+e)
	}

	total := plan.Total()
	done := 0
	step := func() {
		done++
		if x.Progress != nil {
			x.Progress(done, total)
		}
	}

	for _, op := range plan.Renames {
		if err := fs.Move(x.abs(op.From), x.abs(op.To)); err != nil {
			x.fail(&s, fmt.Sprintf("rename %s -> %s", op.From, op.To), err)
		} else {
			s.Counts.Renamed++
			s.Renamed = append(s.Renamed, fmt.Sprintf("%s -> %s", op.From, op.To))
			x.Log.Debug().Str("from", op.From).Str("to", op.To).Msg("renamed")
		}
		step()
	}

	for _, op := range plan.Deletions {
		existed, err := fs.RemoveAny(x.abs(op.Path))
		if err != nil {
			x.fail(&s, "delete "+op.Path, err)
		} else {
			// Deleting a missing path is a success: the goal state holds.
			s.Counts.Deleted++
			s.Deleted = append(s.Deleted, op.Path)
			x.Log.Debug().Str("path", op.Path).Bool("existed", existed).Msg("deleted")
		}
		step()
	}

	for _, op := range plan.Creations {
		if err := fs.WriteFile(x.abs(op.Path), []byte(op.Content)); err != nil {
			x.fail(&s, "create "+op.Path, err)
		} else {
			s.Counts.Created++
			s.Created = append(s.Created, op.Path)
			x.Log.Debug().Str("path", op.Path).Int("bytes", len(op.Content)).Msg("created")
		}
		step()
	}

	for _, op := range plan.Binaries {
		if err := x.writeBinary(op); err != nil {
			x.fail(&s, "binary write "+op.Path, err)
		} else {
			s.Counts.Binary++
			s.Binaries = append(s.Binaries, op.Path)
			x.Log.Debug().Str("path", op.Path).Msg("binary written")
		}
		step()
	}

	for _, op := range plan.Patches {
		if warn, err := x.applyPatch(op); err != nil {
			x.fail(&s, "patch "+op.Path, err)
		} else {
			if warn != "" {
				s.Warnings = append(s.Warnings, warn)
			}
			s.Counts.Patched++
			s.Patched = append(s.Patched, op.Path)
			x.Log.Debug().Str("path", op.Path).Bool("new", op.IsNew).Msg("patched")
		}
		step()
	}

	return s
}

func (x *Executor) abs(rel string) string {
	return filepath.Join(x.Root, filepath.FromSlash(rel))
}

func (x *Executor) fail(s *model.Summary, what string, err error) {
	s.Counts.Errors++
	s.Failed = append(s.Failed, fmt.Sprintf("%s: %v", what, err))
	x.Log.Debug().Str("op", what).Err(err).Msg("operation failed")
}

func (x *Executor) writeBinary(op model.Binary) error {
	if !strings.EqualFold(op.Encoding, "base64") {
		return fmt.Errorf("unsupported encoding %q", op.Encoding)
	}
	payload := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, op.Content)
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("decoding base64 payload: %w", err)
	}
	return fs.WriteFile(x.abs(op.Path), data)
}

// applyPatch patches one file. A non-empty warn reports a failed backup,
// which never blocks the write itself.
func (x *Executor) applyPatch(op model.FilePatch) (warn string, err error) {
	target := x.abs(op.Path)

	var original string
	if !op.IsNew {
		data, err := os.ReadFile(target)
		if os.IsNotExist(err) {
			return "", fmt.Errorf("target does not exist")
		}
		if err != nil {
			return "", err
		}
		original = string(data)
	}

	patched, err := x.Engine.Apply(original, op.Diff)
	if err != nil {
		return "", err
	}

	if x.Backup {
		if _, statErr := os.Stat(target); statErr == nil {
			if cpErr := fs.CopyFile(target, target+".bak"); cpErr != nil {
				warn = fmt.Sprintf("could not create backup for %s: %v", op.Path, cpErr)
			}
		}
	}

	if err := fs.WriteFile(target, []byte(patched)); err != nil {
		return warn, err
	}
	return warn, nil
}
