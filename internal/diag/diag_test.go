package diag

import (
	"strings"
	"testing"
)

func TestNewComputesLineAndColumn(t *testing.T) {
	src := []byte("int a;\nchar *p = malloc(1);\n")
	offset := strings.Index(string(src), "malloc")
	d := New(SeverityWarning, "unchecked allocation", "f.c", src, offset)
	if d.Pos.Line != 2 {
		t.Fatalf("expected line 2, got %d", d.Pos.Line)
	}
	if d.Pos.Column != strings.Index("char *p = malloc(1);", "malloc")+1 {
		t.Fatalf("got column %d", d.Pos.Column)
	}
}

func TestFormatIncludesCaretAndMessage(t *testing.T) {
	src := []byte("char *p = malloc(1);\n")
	d := New(SeverityError, "boom", "f.c", src, 10)
	out := d.Format(false)
	if !strings.Contains(out, "boom") {
		t.Fatalf("missing message, got: %s", out)
	}
	if !strings.Contains(out, "^") {
		t.Fatalf("missing caret, got: %s", out)
	}
	if !strings.Contains(out, "f.c:1:11") {
		t.Fatalf("missing location header, got: %s", out)
	}
}

func TestFormatDiagnosticsNumbersMultiple(t *testing.T) {
	src := []byte("x\ny\n")
	diags := []Diagnostic{
		New(SeverityWarning, "first", "f.c", src, 0),
		New(SeverityWarning, "second", "f.c", src, 2),
	}
	out := FormatDiagnostics(diags, false)
	if !strings.Contains(out, "[1 of 2]") || !strings.Contains(out, "[2 of 2]") {
		t.Fatalf("expected numbered diagnostics, got: %s", out)
	}
}

func TestFormatDiagnosticsEmpty(t *testing.T) {
	if out := FormatDiagnostics(nil, false); out != "" {
		t.Fatalf("expected empty string, got %q", out)
	}
}
