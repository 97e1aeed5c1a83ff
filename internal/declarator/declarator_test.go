package declarator

import (
	"testing"

	"github.com/cddgo/ccrefactor/internal/lexer"
)

func parseAll(t *testing.T, src string) DeclInfo {
	t.Helper()
	toks := lexer.Lex([]byte(src))
	info, err := Parse(toks, []byte(src), 0, len(toks))
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return info
}

func chain(t *testing.T, d *DeclType) []Kind {
	t.Helper()
	var out []Kind
	for d != nil {
		out = append(out, d.Kind)
		d = d.Inner
	}
	return out
}

func eqChain(a, b []Kind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSimpleDeclarator(t *testing.T) {
	info := parseAll(t, "int x")
	if info.Name != "x" {
		t.Fatalf("got name %q", info.Name)
	}
	got := chain(t, info.Type)
	if !eqChain(got, []Kind{Base}) {
		t.Fatalf("got chain %v", got)
	}
	if info.Type.BaseName != "int" {
		t.Fatalf("got base %q", info.Type.BaseName)
	}
}

func TestPointerDeclarator(t *testing.T) {
	info := parseAll(t, "char *p")
	if info.Name != "p" {
		t.Fatalf("got name %q", info.Name)
	}
	got := chain(t, info.Type)
	if !eqChain(got, []Kind{Pointer, Base}) {
		t.Fatalf("got chain %v", got)
	}
}

func TestArrayOfPointer(t *testing.T) {
	info := parseAll(t, "int *a[]")
	if info.Name != "a" {
		t.Fatalf("got name %q", info.Name)
	}
	got := chain(t, info.Type)
	if !eqChain(got, []Kind{Array, Pointer, Base}) {
		t.Fatalf("got chain %v, want Array,Pointer,Base", got)
	}
	if info.Type.Extent != "" {
		t.Fatalf("expected empty array extent, got %q", info.Type.Extent)
	}
	if base := info.Type.Inner.Inner; base.BaseName != "int" {
		t.Fatalf("got base %q", base.BaseName)
	}
}

func TestPointerToArray(t *testing.T) {
	info := parseAll(t, "void (*a)[3]")
	if info.Name != "a" {
		t.Fatalf("got name %q", info.Name)
	}
	got := chain(t, info.Type)
	if !eqChain(got, []Kind{Pointer, Array, Base}) {
		t.Fatalf("got chain %v, want Pointer,Array,Base", got)
	}
	arr := info.Type.Inner
	if arr.Extent != "3" {
		t.Fatalf("expected array extent '3', got %q", arr.Extent)
	}
	if arr.Inner.BaseName != "void" {
		t.Fatalf("got base %q", arr.Inner.BaseName)
	}
}

func TestFunctionPointer(t *testing.T) {
	info := parseAll(t, "int (*cmp)(const void *, const void *)")
	if info.Name != "cmp" {
		t.Fatalf("got name %q", info.Name)
	}
	got := chain(t, info.Type)
	if !eqChain(got, []Kind{Pointer, Function, Base}) {
		t.Fatalf("got chain %v, want Pointer,Function,Base", got)
	}
}

func TestQualifiedPointer(t *testing.T) {
	info := parseAll(t, "char * const p")
	got := chain(t, info.Type)
	if !eqChain(got, []Kind{Pointer, Base}) {
		t.Fatalf("got chain %v", got)
	}
	if info.Type.Qualifiers != "const" {
		t.Fatalf("expected qualifier 'const' on pointer, got %q", info.Type.Qualifiers)
	}
}

func TestArraySizedDeclarator(t *testing.T) {
	info := parseAll(t, "int buf[64]")
	got := chain(t, info.Type)
	if !eqChain(got, []Kind{Array, Base}) {
		t.Fatalf("got chain %v", got)
	}
	if info.Type.Extent != "64" {
		t.Fatalf("expected extent '64', got %q", info.Type.Extent)
	}
}

func TestFunctionReturningPointer(t *testing.T) {
	info := parseAll(t, "void *alloc_block(size_t n)")
	if info.Name != "alloc_block" {
		t.Fatalf("got name %q", info.Name)
	}
	got := chain(t, info.Type)
	if !eqChain(got, []Kind{Function, Pointer, Base}) {
		t.Fatalf("got chain %v, want Function,Pointer,Base", got)
	}
}

func TestTypeofBaseSpecifierSkipped(t *testing.T) {
	info := parseAll(t, "typeof(x) *p")
	if info.Name != "p" {
		t.Fatalf("expected pivot identifier 'p', got %q", info.Name)
	}
	got := chain(t, info.Type)
	if !eqChain(got, []Kind{Pointer, Base}) {
		t.Fatalf("got chain %v", got)
	}
}

func TestAbstractPointerDeclarator(t *testing.T) {
	info := parseAll(t, "int *")
	if info.HasName {
		t.Fatalf("expected abstract declarator to have no name, got %q", info.Name)
	}
	got := chain(t, info.Type)
	if !eqChain(got, []Kind{Pointer, Base}) {
		t.Fatalf("got chain %v", got)
	}
}
