package alloc

import (
	"testing"

	"github.com/cddgo/ccrefactor/internal/lexer"
)

func findSites(t *testing.T, src string) []Site {
	t.Helper()
	toks := lexer.Lex([]byte(src))
	return Find(toks, []byte(src), DefaultRegistry)
}

func TestUncheckedMalloc(t *testing.T) {
	src := "void f() { char *p = malloc(10); *p = 'a'; }"
	sites := findSites(t, src)
	if len(sites) != 1 {
		t.Fatalf("expected 1 site, got %d", len(sites))
	}
	if sites[0].VarName != "p" {
		t.Fatalf("got var %q", sites[0].VarName)
	}
	if sites[0].IsChecked {
		t.Fatalf("expected unchecked")
	}
}

func TestCheckedMallocViaIf(t *testing.T) {
	src := "void f() { char *p = malloc(10); if (p) { *p = 'a'; } }"
	sites := findSites(t, src)
	if len(sites) != 1 || !sites[0].IsChecked {
		t.Fatalf("expected checked site, got %+v", sites)
	}
}

func TestCheckedMallocInlineCondition(t *testing.T) {
	src := "void f() { char *p; if ((p = malloc(10))) { return; } }"
	sites := findSites(t, src)
	if len(sites) != 1 || !sites[0].IsChecked {
		t.Fatalf("expected checked site (inline condition), got %+v", sites)
	}
}

func TestAsprintfArgStyle(t *testing.T) {
	src := `void f() { char *msg; int n = asprintf(&msg, "hi"); }`
	sites := findSites(t, src)
	if len(sites) != 1 {
		t.Fatalf("expected 1 site, got %d", len(sites))
	}
	if sites[0].VarName != "msg" {
		t.Fatalf("expected captured var 'msg', got %q", sites[0].VarName)
	}
	if sites[0].Spec.Style != StyleArgPtr {
		t.Fatalf("expected StyleArgPtr spec")
	}
}

func TestReturnStatementFlag(t *testing.T) {
	src := "void *f() { return malloc(10); }"
	toks := lexer.Lex([]byte(src))
	sites := Find(toks, []byte(src), DefaultRegistry)
	if len(sites) != 1 {
		t.Fatalf("expected 1 site, got %d", len(sites))
	}
	if sites[0].VarName != "" {
		t.Fatalf("expected no captured var for a bare return, got %q", sites[0].VarName)
	}
	if !sites[0].IsReturnStmt {
		t.Fatalf("expected IsReturnStmt flag set")
	}
}

func TestUsedBeforeCheckDetected(t *testing.T) {
	src := "void f() { char *p = malloc(10); *p = 'a'; if (p) {} }"
	sites := findSites(t, src)
	if len(sites) != 1 {
		t.Fatalf("expected 1 site, got %d", len(sites))
	}
	if sites[0].IsChecked {
		t.Fatalf("expected unchecked (used before check)")
	}
	if !sites[0].UsedBeforeCheck {
		t.Fatalf("expected UsedBeforeCheck flag set")
	}
}
