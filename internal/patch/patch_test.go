package patch

import (
	"testing"

	"github.com/cddgo/ccrefactor/internal/lexer"
)

func TestApplyNoPatches(t *testing.T) {
	src := "int x = 1;"
	toks := lexer.Lex([]byte(src))
	l := New()
	got := l.Apply(toks, []byte(src))
	if string(got) != src {
		t.Fatalf("got %q want %q", got, src)
	}
}

func TestApplyReplacesRange(t *testing.T) {
	src := "int x = 1;"
	toks := lexer.Lex([]byte(src))
	// Replace the "1" NUMBER token.
	var numIdx int
	for i, tk := range toks {
		if tk.Text([]byte(src)) == "1" {
			numIdx = i
		}
	}
	l := New()
	l.Add(numIdx, numIdx+1, "42")
	got := l.Apply(toks, []byte(src))
	want := "int x = 42;"
	if string(got) != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestApplyInsertionOnly(t *testing.T) {
	src := "f();"
	toks := lexer.Lex([]byte(src))
	var parenIdx int
	for i, tk := range toks {
		if tk.Text([]byte(src)) == "(" {
			parenIdx = i
		}
	}
	l := New()
	l.Add(parenIdx, parenIdx, "/*call*/")
	got := l.Apply(toks, []byte(src))
	want := "f/*call*/();"
	if string(got) != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestApplyOverlapSuppression(t *testing.T) {
	src := "int x = 1;"
	toks := lexer.Lex([]byte(src))
	var numIdx int
	for i, tk := range toks {
		if tk.Text([]byte(src)) == "1" {
			numIdx = i
		}
	}
	l := New()
	l.Add(numIdx, numIdx+1, "FIRST")
	l.Add(numIdx, numIdx+1, "SECOND")
	got := l.Apply(toks, []byte(src))
	want := "int x = FIRST;"
	if string(got) != want {
		t.Fatalf("got %q want %q (first patch should win)", got, want)
	}
}

func TestApplyEndOfStreamAppend(t *testing.T) {
	src := "int x;"
	toks := lexer.Lex([]byte(src))
	l := New()
	l.Add(len(toks), len(toks), "\nint y;")
	got := l.Apply(toks, []byte(src))
	want := "int x;\nint y;"
	if string(got) != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
