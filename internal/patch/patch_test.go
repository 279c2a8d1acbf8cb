package patch

import (
	"errors"
	"strings"
	"testing"
)

const basicDiff = `--- a/f.txt
+++ b/f.txt
@@ -1,3 +1,3 @@
 a
-b
+B
 c
`

func TestApplyBasicHunk(t *testing.T) {
	e := NewEngine()
	got, err := e.Apply("a\nb\nc\n", basicDiff)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got != "a\nB\nc\n" {
		t.Errorf("patched = %q, want %q", got, "a\nB\nc\n")
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	e := NewEngine()
	once, err := e.Apply("a\nb\nc\n", basicDiff)
	if err != nil {
		t.Fatal(err)
	}
	twice, err := e.Apply(once, basicDiff)
	if err != nil {
		t.Fatalf("second application failed: %v", err)
	}
	if twice != once {
		t.Errorf("second application changed content: %q -> %q", once, twice)
	}
}

func TestApplyExactMatchIgnoresLineEndings(t *testing.T) {
	// CRLF file, LF diff: matching succeeds and inserted lines pick up the
	// file's dominant ending.
	e := NewEngine()
	got, err := e.Apply("a\r\nb\r\nc\r\n", basicDiff)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got != "a\r\nB\r\nc\r\n" {
		t.Errorf("patched = %q", got)
	}
}

func TestApplyPureAdditionOnEmptyFile(t *testing.T) {
	diff := "@@ -1,0 +1,2 @@\n+hello\n+world\n"
	e := NewEngine()
	got, err := e.Apply("", diff)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got != "hello\nworld\n" {
		t.Errorf("patched = %q", got)
	}
}

func TestApplyPureAdditionPadsEmptyFile(t *testing.T) {
	diff := "@@ -3,0 +3,1 @@\n+late line\n"
	e := NewEngine()
	got, err := e.Apply("", diff)
	if err != nil {
		t.Fatal(err)
	}
	if got != "\n\nlate line\n" {
		t.Errorf("patched = %q", got)
	}
}

func TestApplyPrefersFirstExactWindow(t *testing.T) {
	diff := "@@ -1,1 +1,1 @@\n-a\n+A\n"
	e := NewEngine()
	got, err := e.Apply("a\nb\na\nb\n", diff)
	if err != nil {
		t.Fatal(err)
	}
	if got != "A\nb\na\nb\n" {
		t.Errorf("patched = %q, want first occurrence replaced", got)
	}
}

func TestApplyExactMatchWithoutFuzz(t *testing.T) {
	// A verbatim window must be found by the exact layer alone.
	e := NewEngine()
	e.Fuzzy = false
	got, err := e.Apply("a\nb\nc\n", basicDiff)
	if err != nil {
		t.Fatalf("Apply without fuzzy fallback: %v", err)
	}
	if got != "a\nB\nc\n" {
		t.Errorf("patched = %q", got)
	}
}

func TestApplySequentialHunks(t *testing.T) {
	diff := `@@ -1,2 +1,2 @@
 one
-two
+TWO
@@ -4,2 +4,2 @@
 four
-five
+FIVE
`
	e := NewEngine()
	got, err := e.Apply("one\ntwo\nthree\nfour\nfive\n", diff)
	if err != nil {
		t.Fatal(err)
	}
	if got != "one\nTWO\nthree\nfour\nFIVE\n" {
		t.Errorf("patched = %q", got)
	}
}

// tenLineOriginal differs from the diff's search block only in line five's
// trailing whitespace.
const tenLineOriginal = "one\ntwo\nthree\nfour\nfive  \nsix\nseven\neight\nnine\nten\n"

const tenLineDiff = `@@ -1,10 +1,10 @@
 one
 two
 three
 four
-five
+FIVE
 six
 seven
 eight
 nine
 ten
`

func TestApplyFuzzyAcceptsNearWindow(t *testing.T) {
	// Nine of ten lines match: similarity 0.9, above the default 0.88.
	e := NewEngine()
	got, err := e.Apply(tenLineOriginal, tenLineDiff)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !strings.Contains(got, "FIVE\n") {
		t.Errorf("patched = %q", got)
	}
	if strings.Contains(got, "five") {
		t.Errorf("original line survived fuzzy replacement: %q", got)
	}
}

func TestApplyFuzzyRespectsThreshold(t *testing.T) {
	e := NewEngine()
	e.FuzzyThreshold = 0.99
	_, err := e.Apply(tenLineOriginal, tenLineDiff)

	var mismatch *MismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("err = %v, want MismatchError", err)
	}
	if mismatch.Hunk != 1 {
		t.Errorf("failing hunk = %d, want 1", mismatch.Hunk)
	}
}

func TestApplyMismatchReportsHunkIndex(t *testing.T) {
	diff := `@@ -1,1 +1,1 @@
-a
+A
@@ -5,1 +5,1 @@
-nowhere to be found
+replacement
`
	e := NewEngine()
	e.Fuzzy = false
	_, err := e.Apply("a\nb\nc\n", diff)

	var mismatch *MismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("err = %v, want MismatchError", err)
	}
	if mismatch.Hunk != 2 {
		t.Errorf("failing hunk = %d, want 2", mismatch.Hunk)
	}
	if !strings.Contains(err.Error(), "hunk #2") {
		t.Errorf("error message = %q", err)
	}
}

func TestApplyRemovalAlreadyGone(t *testing.T) {
	// A context-free removal whose lines are absent counts as applied.
	diff := "@@ -1,1 +0,0 @@\n-gone\n"
	e := NewEngine()
	got, err := e.Apply("a\nb\n", diff)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got != "a\nb\n" {
		t.Errorf("patched = %q, want content unchanged", got)
	}
}

func TestApplyInvalidHunkHeader(t *testing.T) {
	e := NewEngine()
	if _, err := e.Apply("a\n", "@@ bogus @@\n-a\n+b\n"); err == nil {
		t.Fatal("expected error for invalid hunk header")
	}
}

func TestDominantEOL(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"a\nb\n", "\n"},
		{"a\r\nb\r\n", "\r\n"},
		{"a\r\nb\n", "\n"}, // tie goes to LF
		{"", "\n"},
	}
	for _, tc := range cases {
		if got := dominantEOL(tc.text); got != tc.want {
			t.Errorf("dominantEOL(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestSplitKeepEnds(t *testing.T) {
	got := splitKeepEnds("a\nb\r\nc")
	want := []string{"a\n", "b\r\n", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
	if splitKeepEnds("") != nil {
		t.Error("empty input should split to nil")
	}
	// A bare CR is not a line break.
	if got := splitKeepEnds("a\rb\n"); len(got) != 1 || got[0] != "a\rb\n" {
		t.Errorf("bare CR split = %v", got)
	}
}
