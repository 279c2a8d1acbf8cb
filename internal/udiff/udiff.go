// Package udiff splits the body of a <patch> directive into per-file
// operations. One directive may describe several files; each file block is
// delimited by a '--- '/'+++ ' header pair and classified as a deletion,
// a creation or a modification based on null-device sentinels.
package udiff

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"opkit/model"
)

// Git-style source prefixes on either kind of separator.
var headerPrefix = regexp.MustCompile(`^[ab][\\/]`)

// Parse resolves a raw unified-diff body. Text before the first '--- '
// header is tolerated and ignored. Malformed blocks are reported in errs
// and skipped; one bad block never aborts the others.
func Parse(diff string) (ops []model.Operation, errs []string) {
	lines := strings.Split(diff, "\n")

	start := -1
	for i, ln := range lines {
		if strings.HasPrefix(ln, "--- ") {
			start = i
			break
		}
	}
	if start == -1 {
		return nil, []string{"no unified diff headers ('--- ') found"}
	}
	lines = lines[start:]

	var blocks [][]string
	var cur []string
	for _, ln := range lines {
		if strings.HasPrefix(ln, "--- ") && len(cur) > 0 {
			blocks = append(blocks, cur)
			cur = nil
		}
		cur = append(cur, ln)
	}
	if len(cur) > 0 {
		blocks = append(blocks, cur)
	}

	for _, block := range blocks {
		if len(block) < 2 {
			errs = append(errs, fmt.Sprintf("invalid diff block (too short): %s", preview(strings.Join(block, "\n"))))
			continue
		}
		fromHeader, toHeader := block[0], block[1]
		if !strings.HasPrefix(fromHeader, "--- ") || !strings.HasPrefix(toHeader, "+++ ") {
			errs = append(errs, fmt.Sprintf("malformed diff header: %s", preview(strings.Join(block[:2], "\n"))))
			continue
		}

		fromPath := headerPath(fromHeader)
		toPath := headerPath(toHeader)
		body := strings.Join(block[2:], "\n")

		switch {
		case isNullPath(toPath):
			ops = append(ops, model.Delete{Path: cleanPath(fromPath)})
		case isNullPath(fromPath):
			ops = append(ops, model.FilePatch{Path: cleanPath(toPath), IsNew: true, Diff: body})
		default:
			ops = append(ops, model.FilePatch{Path: cleanPath(toPath), Diff: body})
		}
	}
	return ops, errs
}

// headerPath extracts the path token from a '--- ' or '+++ ' header line:
// the text up to the first tab or space, minus any git-style a/ or b/
// prefix.
func headerPath(header string) string {
	rest := strings.TrimSpace(header[4:])
	token := rest
	if i := strings.IndexAny(token, "\t "); i >= 0 {
		token = token[:i]
	}
	return headerPrefix.ReplaceAllString(token, "")
}

// isNullPath matches the null-device spelling of either platform, since
// the diff may have been produced on a different OS than the one applying
// it.
func isNullPath(token string) bool {
	l := strings.ToLower(token)
	return l == "/dev/null" || l == "nul"
}

func cleanPath(token string) string {
	return path.Clean(strings.ReplaceAll(token, `\`, "/"))
}

func preview(s string) string {
	if len(s) > 200 {
		return s[:200]
	}
	return s
}
