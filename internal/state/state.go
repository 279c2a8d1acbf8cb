// Package state keeps a journal of applied runs so they can be undone and
// redone. Each run snapshots the affected files before and after
// execution; undo restores the before set, redo the after set. The journal
// lives in a .opkit directory at the git repository root, or the working
// directory when not inside a repository.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"opkit/internal/fs"
)

const (
	stateDirName  = ".opkit"
	stateFileName = "journal.json"
	snapshotsDir  = "snapshots"
)

// ErrNothingToUndo and ErrNothingToRedo mark the ends of the history.
var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// FileRecord tracks one path across a run. A missing before snapshot means
// the run created the file; a missing after snapshot means it deleted it.
type FileRecord struct {
	Path         string `json:"path"`
	ExistsBefore bool   `json:"exists_before"`
	ExistsAfter  bool   `json:"exists_after"`
	AfterHash    string `json:"after_hash,omitempty"`
}

// Entry is one applied run.
type Entry struct {
	ID        string       `json:"id"`
	Timestamp int64        `json:"timestamp"`
	Files     []FileRecord `json:"files"`
}

type journal struct {
	History      []Entry `json:"history"`
	CurrentIndex int     `json:"current_index"`
}

// Manager owns the journal file and its snapshots. WorkDir is where the
// journal's relative paths resolve.
type Manager struct {
	WorkDir   string
	StateDir  string
	statePath string
	state     *journal
}

// findGitRoot asks git for the repository top level.
func findGitRoot(workDir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = workDir
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}

// New loads (or initializes) the journal for workDir.
func New(workDir string) (*Manager, error) {
	rootDir, err := findGitRoot(workDir)
	if err != nil {
		rootDir = workDir
	}

	stateDir := filepath.Join(rootDir, stateDirName)
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	m := &Manager{
		WorkDir:   workDir,
		StateDir:  stateDir,
		statePath: filepath.Join(stateDir, stateFileName),
	}
	if err := m.load(); err != nil {
		m.state = &journal{CurrentIndex: -1}
	}
	return m, nil
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.statePath)
	if os.IsNotExist(err) {
		m.state = &journal{CurrentIndex: -1}
		return nil
	}
	if err != nil {
		return err
	}
	var j journal
	if err := json.Unmarshal(data, &j); err != nil {
		return fmt.Errorf("invalid journal file: %w", err)
	}
	m.state = &j
	return nil
}

func (m *Manager) save() error {
	data, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.statePath, data, 0o644)
}

// Txn is an in-flight run: before snapshots are taken, the run executes,
// then Commit records the after state.
type Txn struct {
	m     *Manager
	id    string
	paths []string
}

// Begin snapshots the current content of every path the run may touch.
// Duplicate paths are collapsed.
func (m *Manager) Begin(paths []string) (*Txn, error) {
	id := fmt.Sprintf("%d", time.Now().UTC().UnixNano())

	seen := make(map[string]bool)
	var uniq []string
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			uniq = append(uniq, p)
		}
	}
	sort.Strings(uniq)

	for _, p := range uniq {
		abs := filepath.Join(m.WorkDir, filepath.FromSlash(p))
		if info, err := os.Stat(abs); err != nil || info.IsDir() {
			continue
		}
		dst := m.snapshotPath(id, "before", p)
		if err := fs.CopyFile(abs, dst); err != nil {
			return nil, fmt.Errorf("snapshotting %s: %w", p, err)
		}
	}
	return &Txn{m: m, id: id, paths: uniq}, nil
}

// Commit snapshots the post-run content and appends the entry, discarding
// any redo tail beyond the current position.
func (t *Txn) Commit() error {
	m := t.m
	entry := Entry{ID: t.id, Timestamp: time.Now().UTC().Unix()}

	for _, p := range t.paths {
		abs := filepath.Join(m.WorkDir, filepath.FromSlash(p))
		rec := FileRecord{Path: p}
		if _, err := os.Stat(m.snapshotPath(t.id, "before", p)); err == nil {
			rec.ExistsBefore = true
		}
		if info, err := os.Stat(abs); err == nil && !info.IsDir() {
			rec.ExistsAfter = true
			if err := fs.CopyFile(abs, m.snapshotPath(t.id, "after", p)); err != nil {
				return fmt.Errorf("snapshotting %s: %w", p, err)
			}
			if hash, err := fs.FileSHA256(abs); err == nil {
				rec.AfterHash = hash
			}
		}
		if !rec.ExistsBefore && !rec.ExistsAfter {
			continue
		}
		entry.Files = append(entry.Files, rec)
	}

	if m.state.CurrentIndex < len(m.state.History)-1 {
		for _, stale := range m.state.History[m.state.CurrentIndex+1:] {
			os.RemoveAll(filepath.Join(m.StateDir, snapshotsDir, stale.ID))
		}
		m.state.History = m.state.History[:m.state.CurrentIndex+1]
	}
	m.state.History = append(m.state.History, entry)
	m.state.CurrentIndex++
	return m.save()
}

// Undo restores the before snapshots of the most recent entry and returns
// the affected paths. Files modified outside the journal since the run
// abort the undo.
func (m *Manager) Undo() ([]string, error) {
	if m.state.CurrentIndex < 0 {
		return nil, ErrNothingToUndo
	}
	entry := m.state.History[m.state.CurrentIndex]

	if err := m.verify(entry); err != nil {
		return nil, err
	}

	var restored []string
	for _, rec := range entry.Files {
		abs := filepath.Join(m.WorkDir, filepath.FromSlash(rec.Path))
		if rec.ExistsBefore {
			if err := fs.CopyFile(m.snapshotPath(entry.ID, "before", rec.Path), abs); err != nil {
				return restored, fmt.Errorf("restoring %s: %w", rec.Path, err)
			}
		} else {
			if _, err := fs.RemoveAny(abs); err != nil {
				return restored, fmt.Errorf("removing %s: %w", rec.Path, err)
			}
		}
		restored = append(restored, rec.Path)
	}

	m.state.CurrentIndex--
	if err := m.save(); err != nil {
		return restored, err
	}
	return restored, nil
}

// Redo re-applies the next entry's after snapshots.
func (m *Manager) Redo() ([]string, error) {
	next := m.state.CurrentIndex + 1
	if next >= len(m.state.History) {
		return nil, ErrNothingToRedo
	}
	entry := m.state.History[next]

	var restored []string
	for _, rec := range entry.Files {
		abs := filepath.Join(m.WorkDir, filepath.FromSlash(rec.Path))
		if rec.ExistsAfter {
			if err := fs.CopyFile(m.snapshotPath(entry.ID, "after", rec.Path), abs); err != nil {
				return restored, fmt.Errorf("restoring %s: %w", rec.Path, err)
			}
		} else {
			if _, err := fs.RemoveAny(abs); err != nil {
				return restored, fmt.Errorf("removing %s: %w", rec.Path, err)
			}
		}
		restored = append(restored, rec.Path)
	}

	m.state.CurrentIndex = next
	if err := m.save(); err != nil {
		return restored, err
	}
	return restored, nil
}

// verify checks that the files an undo would overwrite still carry the
// content the run left behind.
func (m *Manager) verify(entry Entry) error {
	for _, rec := range entry.Files {
		if !rec.ExistsAfter || rec.AfterHash == "" {
			continue
		}
		abs := filepath.Join(m.WorkDir, filepath.FromSlash(rec.Path))
		hash, err := fs.FileSHA256(abs)
		if err != nil {
			return fmt.Errorf("%s was removed since the last run, refusing to undo", rec.Path)
		}
		if hash != rec.AfterHash {
			return fmt.Errorf("%s was modified since the last run, refusing to undo", rec.Path)
		}
	}
	return nil
}

func (m *Manager) snapshotPath(id, phase, rel string) string {
	return filepath.Join(m.StateDir, snapshotsDir, id, phase, filepath.FromSlash(rel))
}
