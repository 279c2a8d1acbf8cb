// Package patch applies unified-diff hunks to file content by matching on
// content rather than trusting hunk line numbers, which drift as soon as
// the target file moves on. Placement is layered: exact window match, then
// an already-applied check so re-running a patch is safe, then a fuzzy
// best-window fallback.
package patch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/rs/zerolog"
)

// DefaultFuzzyThreshold is the minimum similarity ratio at which a
// non-exact window is accepted.
const DefaultFuzzyThreshold = 0.88

var hunkHeader = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// Engine applies one file's diff hunks sequentially against an in-memory
// line buffer. All line comparisons strip trailing EOL characters only;
// interior whitespace is significant in every matching layer, so fuzziness
// comes from the similarity ratio over whole lines, never from whitespace
// folding.
type Engine struct {
	// Fuzzy enables the best-window fallback; FuzzyThreshold is the
	// acceptance ratio in [0,1].
	Fuzzy          bool
	FuzzyThreshold float64
	Log            zerolog.Logger
}

// NewEngine returns an Engine with fuzzy matching at the default threshold
// and logging disabled.
func NewEngine() *Engine {
	return &Engine{
		Fuzzy:          true,
		FuzzyThreshold: DefaultFuzzyThreshold,
		Log:            zerolog.Nop(),
	}
}

// MismatchError reports a hunk for which no placement could be found.
type MismatchError struct {
	Hunk    int    // 1-based index within the diff
	Preview string // leading lines of the hunk body
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("hunk #%d could not be applied: content mismatch\n-- hunk preview --\n%s[...]", e.Hunk, e.Preview)
}

// Apply patches original with the hunks in diff and returns the new
// content. Every line the engine inserts is terminated with the original
// file's dominant line ending, regardless of the diff's own endings.
// Hunks apply against the buffer as mutated by earlier hunks of the same
// diff, so their order in the input matters.
func (e *Engine) Apply(original, diff string) (string, error) {
	patched := splitKeepEnds(original)
	diffLines := splitKeepEnds(diff)
	eol := dominantEOL(original)

	var headers []int
	for i, ln := range diffLines {
		if strings.HasPrefix(ln, "@@ ") {
			headers = append(headers, i)
		}
	}

	for hi, start := range headers {
		header := strings.TrimRight(diffLines[start], "\r\n")
		m := hunkHeader.FindStringSubmatch(header)
		if m == nil {
			return "", fmt.Errorf("invalid hunk header: %s", header)
		}
		oldStart, _ := strconv.Atoi(m[1])

		end := len(diffLines)
		if hi+1 < len(headers) {
			end = headers[hi+1]
		}
		body := diffLines[start+1 : end]

		var search, insert []string
		for _, ln := range body {
			switch {
			case strings.HasPrefix(ln, " "):
				search = append(search, ln[1:])
				insert = append(insert, ln[1:])
			case strings.HasPrefix(ln, "-"):
				search = append(search, ln[1:])
			case strings.HasPrefix(ln, "+"):
				insert = append(insert, ln[1:])
			}
		}
		for i, ln := range insert {
			insert[i] = stripEOL(ln) + eol
		}

		e.Log.Debug().
			Int("hunk", hi+1).
			Str("header", header).
			Int("search_lines", len(search)).
			Int("insert_lines", len(insert)).
			Msg("placing hunk")

		// Pure addition: the header's old-file position is the only
		// information we have.
		if len(search) == 0 {
			pos := 0
			if oldStart > 0 {
				pos = oldStart - 1
			}
			if len(patched) == 0 && pos > 0 {
				for i := 0; i < pos; i++ {
					patched = append(patched, eol)
				}
			}
			if pos > len(patched) {
				pos = len(patched)
			}
			patched = spliceLines(patched, pos, 0, insert)
			e.Log.Debug().Int("hunk", hi+1).Int("line", pos+1).Msg("pure insertion")
			continue
		}

		if at := findWindow(patched, search); at >= 0 {
			e.Log.Debug().Int("hunk", hi+1).Int("line", at+1).Msg("exact match")
			patched = spliceLines(patched, at, len(search), insert)
			continue
		}

		// Idempotency: a window already equal to the replacement means the
		// hunk was applied earlier. A pure removal whose lines are gone
		// counts too.
		if len(insert) == 0 {
			e.Log.Debug().Int("hunk", hi+1).Msg("removal already applied, skipping")
			continue
		}
		if at := findWindow(patched, insert); at >= 0 {
			e.Log.Debug().Int("hunk", hi+1).Int("line", at+1).Msg("hunk already applied, skipping")
			continue
		}

		if e.Fuzzy {
			at, score := bestWindow(patched, search)
			if at >= 0 && score >= e.FuzzyThreshold {
				e.Log.Debug().
					Int("hunk", hi+1).
					Int("line", at+1).
					Float64("score", score).
					Msg("fuzzy match")
				patched = spliceLines(patched, at, len(search), insert)
				continue
			}
		}

		e.reportNearMiss(hi+1, patched, search)
		return "", &MismatchError{Hunk: hi + 1, Preview: strings.Join(firstN(body, 5), "")}
	}

	return strings.Join(patched, ""), nil
}

// reportNearMiss logs the best-scoring window for a failed hunk. Purely
// diagnostic; no retry happens here.
func (e *Engine) reportNearMiss(hunk int, patched, search []string) {
	if e.Log.GetLevel() > zerolog.DebugLevel {
		return
	}
	at, score := bestWindow(patched, search)
	if at < 0 {
		return
	}
	n := len(search)
	if n > 10 {
		n = 10
	}
	e.Log.Debug().
		Int("hunk", hunk).
		Int("closest_line", at+1).
		Float64("score", score).
		Str("expected", strings.Join(trimEOLs(search[:n]), "\n")).
		Str("found", strings.Join(trimEOLs(patched[at:at+n]), "\n")).
		Msg("hunk search failed")
}

// findWindow returns the lowest offset at which buf holds want, comparing
// lines with their EOLs stripped, or -1.
func findWindow(buf, want []string) int {
	if len(want) == 0 || len(want) > len(buf) {
		return -1
	}
	for i := 0; i+len(want) <= len(buf); i++ {
		ok := true
		for j := range want {
			if stripEOL(buf[i+j]) != stripEOL(want[j]) {
				ok = false
				break
			}
		}
		if ok {
			return i
		}
	}
	return -1
}

// bestWindow scans every candidate window and returns the first
// highest-scoring one with its similarity ratio.
func bestWindow(buf, want []string) (int, float64) {
	if len(want) == 0 || len(want) > len(buf) {
		return -1, 0
	}
	target := trimEOLs(want)
	best, bestScore := -1, 0.0
	for i := 0; i+len(want) <= len(buf); i++ {
		window := trimEOLs(buf[i : i+len(want)])
		score := difflib.NewMatcher(target, window).Ratio()
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best, bestScore
}

// dominantEOL picks CRLF only when the text holds strictly more CRLF than
// bare LF occurrences.
func dominantEOL(s string) string {
	crlf := strings.Count(s, "\r\n")
	lf := strings.Count(s, "\n") - crlf
	if crlf > lf {
		return "\r\n"
	}
	return "\n"
}

// splitKeepEnds splits s into lines that retain their line terminators.
// Only LF and CRLF break lines; a bare CR stays inside its line, so
// classic-Mac files match as one unit rather than per line.
func splitKeepEnds(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

func stripEOL(s string) string {
	return strings.TrimRight(s, "\r\n")
}

func trimEOLs(lines []string) []string {
	out := make([]string, len(lines))
	for i, ln := range lines {
		out[i] = stripEOL(ln)
	}
	return out
}

func spliceLines(buf []string, at, del int, ins []string) []string {
	out := make([]string, 0, len(buf)-del+len(ins))
	out = append(out, buf[:at]...)
	out = append(out, ins...)
	out = append(out, buf[at+del:]...)
	return out
}

func firstN(lines []string, n int) []string {
	if len(lines) < n {
		return lines
	}
	return lines[:n]
}
