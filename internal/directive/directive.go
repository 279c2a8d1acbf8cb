// Package directive extracts typed operations from a loosely structured
// text blob. Directives use the tag grammar emitted by the prompt side of
// the pipeline (<file>, <delete>, <rename>, <binary>, <patch>) and may be
// interleaved with prose in any order; prose produces warnings, never
// errors, and a malformed tag drops only itself.
package directive

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"opkit/model"
)

// ErrEmptyInput marks input that is empty or whitespace only. This is the
// one condition under which parsing fails outright.
var ErrEmptyInput = errors.New("input is empty or contains only whitespace")

var (
	filePattern   = regexp.MustCompile(`(?s)<file path="(.+?)">\s*<!\[CDATA\[(.*?)\]\]>\s*</file>`)
	deletePattern = regexp.MustCompile(`<delete\s+path="([^"]+)"\s*/>`)
	renamePattern = regexp.MustCompile(`<rename\s+from="([^"]+)"\s+to="([^"]+)"\s*/>`)
	patchPattern  = regexp.MustCompile(`(?s)<patch>\s*<!\[CDATA\[(.*?)\]\]>\s*</patch>`)
	binaryPattern = regexp.MustCompile(`(?s)<binary\s+path="([^"]+)"\s+encoding="([^"]+)">\s*<!\[CDATA\[(.*?)\]\]>\s*</binary>`)

	leadingBreak  = regexp.MustCompile(`^\r?\n`)
	trailingBreak = regexp.MustCompile(`\r?\n$`)

	// A directive-looking tag that the strict patterns did not match, i.e.
	// one with a missing or empty required attribute.
	brokenTag = regexp.MustCompile(`<(file|delete|rename|binary)\b[^>]*>`)
)

type kind int

const (
	kindFile kind = iota
	kindDelete
	kindRename
	kindPatch
	kindBinary
)

type tagPattern struct {
	kind kind
	re   *regexp.Regexp
}

var tagPatterns = []tagPattern{
	{kindFile, filePattern},
	{kindDelete, deletePattern},
	{kindRename, renamePattern},
	{kindPatch, patchPattern},
	{kindBinary, binaryPattern},
}

type match struct {
	kind kind
	loc  []int
}

// Parse scans text for operation directives and returns them in source
// order together with human-readable warnings. Warnings prefixed "error:"
// mark a dropped operation; all others are unrecognized-span notices.
func Parse(text string) ([]model.Operation, []string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil, ErrEmptyInput
	}

	var found []match
	for _, tp := range tagPatterns {
		for _, loc := range tp.re.FindAllStringSubmatchIndex(text, -1) {
			found = append(found, match{kind: tp.kind, loc: loc})
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].loc[0] < found[j].loc[0] })

	var ops []model.Operation
	var warnings []string
	last := 0
	for _, m := range found {
		if m.loc[0] > last {
			warnings = append(warnings, gapWarning(text[last:m.loc[0]], m.loc[0])...)
		}

		group := func(n int) string {
			if m.loc[2*n] < 0 {
				return ""
			}
			return text[m.loc[2*n]:m.loc[2*n+1]]
		}

		switch m.kind {
		case kindFile:
			path := strings.TrimSpace(group(1))
			if path == "" {
				warnings = append(warnings, fmt.Sprintf("error: <file> tag with empty path at position %d", m.loc[0]))
				break
			}
			content := group(2)
			content = leadingBreak.ReplaceAllString(content, "")
			content = trailingBreak.ReplaceAllString(content, "")
			ops = append(ops, model.Create{Path: path, Content: DecodeBrackets(content)})

		case kindDelete:
			path := strings.TrimSpace(group(1))
			if path == "" {
				warnings = append(warnings, fmt.Sprintf("error: <delete> tag with empty path at position %d", m.loc[0]))
				break
			}
			ops = append(ops, model.Delete{Path: path})

		case kindRename:
			from := strings.TrimSpace(group(1))
			to := strings.TrimSpace(group(2))
			if from == "" || to == "" {
				warnings = append(warnings, fmt.Sprintf("error: <rename> tag with empty 'from' or 'to' at position %d", m.loc[0]))
				break
			}
			ops = append(ops, model.Rename{From: from, To: to})

		case kindPatch:
			ops = append(ops, model.PatchBlob{Content: DecodeBrackets(group(1))})

		case kindBinary:
			path := strings.TrimSpace(group(1))
			encoding := strings.TrimSpace(group(2))
			if path == "" || encoding == "" {
				warnings = append(warnings, fmt.Sprintf("error: <binary> tag with missing attributes at position %d", m.loc[0]))
				break
			}
			ops = append(ops, model.Binary{Path: path, Encoding: encoding, Content: strings.TrimSpace(group(3))})
		}

		if m.loc[1] > last {
			last = m.loc[1]
		}
	}

	if rest := strings.TrimSpace(text[last:]); rest != "" && len(found) > 0 {
		warnings = append(warnings, gapWarning(text[last:], len(text))...)
	}

	return ops, warnings, nil
}

// gapWarning classifies a non-directive span: a tag with missing required
// attributes is an error-level warning, anything else an ignored-text
// notice.
func gapWarning(gap string, end int) []string {
	if strings.TrimSpace(gap) == "" {
		return nil
	}
	if m := brokenTag.FindStringSubmatch(gap); m != nil {
		return []string{fmt.Sprintf("error: malformed <%s> directive near position %d", m[1], end)}
	}
	return []string{fmt.Sprintf("ignoring unrecognized text block ending at position %d", end)}
}
