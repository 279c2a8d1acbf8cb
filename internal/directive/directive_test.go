package directive

import (
	"strings"
	"testing"

	"opkit/model"
)

func errorCount(warnings []string) int {
	n := 0
	for _, w := range warnings {
		if strings.HasPrefix(w, "error:") {
			n++
		}
	}
	return n
}

func TestParseFileDirective(t *testing.T) {
	input := "<file path=\"x.txt\"><![CDATA[\nhello\nworld\n]]></file>"

	ops, warnings, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("got %d operations, want 1", len(ops))
	}
	create, ok := ops[0].(model.Create)
	if !ok {
		t.Fatalf("operation is %T, want model.Create", ops[0])
	}
	if create.Path != "x.txt" {
		t.Errorf("path = %q", create.Path)
	}
	// Exactly one leading and one trailing line break are stripped.
	if create.Content != "hello\nworld" {
		t.Errorf("content = %q, want %q", create.Content, "hello\nworld")
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
}

func TestParseContentIsByteFaithful(t *testing.T) {
	// Interior blank lines, indentation and trailing spaces must survive.
	body := "\n  indented\n\n\ttabbed  \n"
	input := `<file path="f"><![CDATA[` + body + `]]></file>`

	ops, _, err := Parse(input)
	if err != nil {
		t.Fatal(err)
	}
	got := ops[0].(model.Create).Content
	if got != "  indented\n\n\ttabbed  " {
		t.Errorf("content = %q", got)
	}
}

func TestParseProseBeforeDirective(t *testing.T) {
	input := "Sure, here are the changes you asked for:\n\n" +
		"<file path=\"x.txt\"><![CDATA[\ncontent\n]]></file>"

	ops, warnings, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("got %d operations, want 1", len(ops))
	}
	if len(warnings) != 1 {
		t.Fatalf("got %d warnings, want 1: %v", len(warnings), warnings)
	}
	if errorCount(warnings) != 0 {
		t.Errorf("expected zero error-level warnings, got %v", warnings)
	}
}

func TestParseAllDirectiveKinds(t *testing.T) {
	input := `<rename from="a.txt" to="b.txt" />
<delete path="old.txt" />
<file path="new.txt"><![CDATA[
text
]]></file>
<binary path="logo.png" encoding="base64"><![CDATA[
aGVsbG8=
]]></binary>
<patch><![CDATA[
--- a/x.go
+++ b/x.go
@@ -1,1 +1,1 @@
-old
+new
]]></patch>`

	ops, warnings, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(ops) != 5 {
		t.Fatalf("got %d operations, want 5: %#v", len(ops), ops)
	}
	if errorCount(warnings) != 0 {
		t.Errorf("unexpected error warnings: %v", warnings)
	}

	// Source order is preserved regardless of which pattern matched first.
	wantKinds := []string{"Rename", "Delete", "Create", "Binary", "PatchBlob"}
	for i, op := range ops {
		var got string
		switch op.(type) {
		case model.Rename:
			got = "Rename"
		case model.Delete:
			got = "Delete"
		case model.Create:
			got = "Create"
		case model.Binary:
			got = "Binary"
		case model.PatchBlob:
			got = "PatchBlob"
		}
		if got != wantKinds[i] {
			t.Errorf("operation %d is %s, want %s", i, got, wantKinds[i])
		}
	}

	bin := ops[3].(model.Binary)
	if bin.Encoding != "base64" || bin.Content != "aGVsbG8=" {
		t.Errorf("binary = %+v", bin)
	}
}

func TestParseEmptyPathDropsOperation(t *testing.T) {
	input := `<file path=" "><![CDATA[
x
]]></file>
<file path="ok.txt"><![CDATA[
y
]]></file>`

	ops, warnings, err := Parse(input)
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 1 {
		t.Fatalf("got %d operations, want 1", len(ops))
	}
	if ops[0].(model.Create).Path != "ok.txt" {
		t.Errorf("surviving op = %+v", ops[0])
	}
	if errorCount(warnings) != 1 {
		t.Errorf("want one error-level warning, got %v", warnings)
	}
}

func TestParseMalformedTagWarns(t *testing.T) {
	input := `<rename from="only-from" />
<delete path="ok.txt" />`

	ops, warnings, err := Parse(input)
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 1 {
		t.Fatalf("got %d operations, want 1", len(ops))
	}
	if errorCount(warnings) != 1 {
		t.Errorf("want one error-level warning for the broken rename, got %v", warnings)
	}
}

func TestParseTrailingTextIsWarningOnly(t *testing.T) {
	input := `<delete path="x" />

Some closing remarks from the assistant.`

	ops, warnings, err := Parse(input)
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 1 {
		t.Fatalf("got %d operations, want 1", len(ops))
	}
	if len(warnings) != 1 || errorCount(warnings) != 0 {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestParseEmptyInputFails(t *testing.T) {
	for _, input := range []string{"", "   \n\t  "} {
		if _, _, err := Parse(input); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", input)
		}
	}
}

func TestBracketsRoundTrip(t *testing.T) {
	const s = `matrix[0][1] = "[ok]"`
	if got := DecodeBrackets(EncodeBrackets(s)); got != s {
		t.Errorf("round trip = %q, want %q", got, s)
	}
	if got := DecodeBrackets("a |||LBR|||0|||RBR|||"); got != "a [0]" {
		t.Errorf("decode = %q", got)
	}
}

func TestParseDecodesBracketPlaceholders(t *testing.T) {
	input := `<file path="m.py"><![CDATA[
m|||LBR|||0|||RBR||| = 1
]]></file>`
	ops, _, err := Parse(input)
	if err != nil {
		t.Fatal(err)
	}
	if got := ops[0].(model.Create).Content; got != "m[0] = 1" {
		t.Errorf("content = %q", got)
	}
}

func TestParseCRLFInput(t *testing.T) {
	input := "<file path=\"w.txt\"><![CDATA[\r\nwindows line\r\n]]></file>"
	ops, _, err := Parse(input)
	if err != nil {
		t.Fatal(err)
	}
	if got := ops[0].(model.Create).Content; got != "windows line" {
		t.Errorf("content = %q", got)
	}
}
