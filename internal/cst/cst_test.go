package cst

import (
	"testing"

	"github.com/cddgo/ccrefactor/internal/lexer"
)

func kinds(nodes []Node) []Kind {
	out := make([]Kind, len(nodes))
	for i, n := range nodes {
		out[i] = n.Kind
	}
	return out
}

func TestFunctionNode(t *testing.T) {
	src := "int main(void) { return 0; }"
	toks := lexer.Lex([]byte(src))
	nodes := Build(toks)
	if len(nodes) != 1 || nodes[0].Kind != Function {
		t.Fatalf("expected single Function node, got %v", kinds(nodes))
	}
	if nodes[0].ByteStart != 0 || nodes[0].ByteEnd != len(src) {
		t.Fatalf("expected node to span whole source, got [%d,%d)", nodes[0].ByteStart, nodes[0].ByteEnd)
	}
}

func TestRejectsControlFlowAsFunction(t *testing.T) {
	// 'if (x) { return 1; }' inside a statement-like top-level position
	// must never itself be mistaken for a function.
	src := "if (x) { return 1; }"
	toks := lexer.Lex([]byte(src))
	nodes := Build(toks)
	for _, n := range nodes {
		if n.Kind == Function {
			t.Fatalf("did not expect a Function node for %q, got %v", src, kinds(nodes))
		}
	}
}

func TestStructForwardDecl(t *testing.T) {
	src := "struct Foo;"
	toks := lexer.Lex([]byte(src))
	nodes := Build(toks)
	if len(nodes) != 1 || nodes[0].Kind != Struct {
		t.Fatalf("expected single Struct node, got %v", kinds(nodes))
	}
}

func TestNestedAggregate(t *testing.T) {
	src := "struct Outer { struct Inner { int x; } field; int y; };"
	toks := lexer.Lex([]byte(src))
	nodes := Build(toks)
	if len(nodes) != 2 {
		t.Fatalf("expected outer + inner aggregate nodes, got %v", kinds(nodes))
	}
	if nodes[0].Kind != Struct || nodes[1].Kind != Struct {
		t.Fatalf("expected both nodes to be Struct, got %v", kinds(nodes))
	}
	if nodes[1].TokenStart <= nodes[0].TokenStart || nodes[1].TokenEnd >= nodes[0].TokenEnd {
		t.Fatalf("expected inner node's token range to nest inside outer's")
	}
}

func TestMultipleFunctionsAndOther(t *testing.T) {
	src := "int g;\nvoid f() { g = 1; }\nint h() { return g; }\n"
	toks := lexer.Lex([]byte(src))
	nodes := Build(toks)
	var fnCount, otherCount int
	for _, n := range nodes {
		switch n.Kind {
		case Function:
			fnCount++
		case Other:
			otherCount++
		}
	}
	if fnCount != 2 {
		t.Fatalf("expected 2 function nodes, got %d (%v)", fnCount, kinds(nodes))
	}
	if otherCount != 1 {
		t.Fatalf("expected 1 other node for 'int g;', got %d (%v)", otherCount, kinds(nodes))
	}
}

func TestCommentAndMacroNodes(t *testing.T) {
	src := "// hello\n#define X 1\nint x;\n"
	toks := lexer.Lex([]byte(src))
	nodes := Build(toks)
	if len(nodes) != 3 {
		t.Fatalf("expected comment, macro, other, got %v", kinds(nodes))
	}
	if nodes[0].Kind != Comment || nodes[1].Kind != Macro || nodes[2].Kind != Other {
		t.Fatalf("unexpected kinds: %v", kinds(nodes))
	}
}
