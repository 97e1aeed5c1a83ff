// Package cst builds a flat, ordered concrete-syntax-tree node list from a
// token stream: one node per top-level function, aggregate type
// definition, comment, or preprocessor directive, with everything else
// folded into "other" nodes.
package cst

import "github.com/cddgo/ccrefactor/internal/token"

// Kind classifies a CstNode.
type Kind int

const (
	Function Kind = iota
	Struct
	Enum
	Union
	Comment
	Macro
	Other
)

var kindNames = [...]string{"Function", "Struct", "Enum", "Union", "Comment", "Macro", "Other"}

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return "Unknown"
	}
	return kindNames[k]
}

// Node is one entry of the flat CST: a classification plus the inclusive
// start / exclusive end token indices it spans, and the corresponding
// byte range in the source buffer.
type Node struct {
	Kind       Kind
	TokenStart int
	TokenEnd   int // exclusive
	ByteStart  int
	ByteEnd    int // exclusive
}

var rejectKeywords = map[token.Kind]bool{
	token.IF: true, token.WHILE: true, token.FOR: true,
	token.SWITCH: true, token.RETURN: true,
}

func aggregateKind(k token.Kind) (Kind, bool) {
	switch k {
	case token.STRUCT:
		return Struct, true
	case token.UNION:
		return Union, true
	case token.ENUM:
		return Enum, true
	default:
		return 0, false
	}
}

// Build walks toks (the full token list of one translation unit) and
// returns the flat, ordered CST node list.
func Build(toks []token.Token) []Node {
	b := &builder{toks: toks, n: len(toks)}
	return b.run()
}

type builder struct {
	toks []token.Token
	n    int
}

func (b *builder) byteRange(start, end int) (int, int) {
	if end <= start {
		return b.toks[start].Offset, b.toks[start].Offset
	}
	return b.toks[start].Offset, b.toks[end-1].End()
}

func (b *builder) run() []Node {
	var out []Node
	i := 0
	for i < b.n {
		tk := b.toks[i]
		switch {
		case tk.Kind == token.WHITESPACE:
			i++
		case tk.Kind == token.COMMENT:
			out = append(out, b.single(Comment, i))
			i++
		case tk.Kind == token.MACRO:
			out = append(out, b.single(Macro, i))
			i++
		default:
			if _, ok := aggregateKind(tk.Kind); ok {
				node, nested, next := b.buildAggregate(i)
				out = append(out, node)
				out = append(out, nested...)
				i = next
				continue
			}
			if node, next, ok := b.tryFunction(i); ok {
				out = append(out, node)
				i = next
				continue
			}
			node, next := b.scanOther(i)
			out = append(out, node)
			i = next
		}
	}
	return out
}

func (b *builder) single(kind Kind, i int) Node {
	bs, be := b.byteRange(i, i+1)
	return Node{Kind: kind, TokenStart: i, TokenEnd: i + 1, ByteStart: bs, ByteEnd: be}
}

// buildAggregate parses a struct/union/enum starting at token index i. It
// returns the aggregate's own node, any nested aggregate nodes found
// inside its body, and the index immediately after the consumed range.
func (b *builder) buildAggregate(i int) (Node, []Node, int) {
	kind, _ := aggregateKind(b.toks[i].Kind)
	start := i
	j := i + 1
	braceIdx, semiIdx := -1, -1
	for j < b.n {
		switch b.toks[j].Kind {
		case token.LBRACE:
			braceIdx = j
		case token.SEMICOLON:
			semiIdx = j
		}
		if braceIdx != -1 || semiIdx != -1 {
			break
		}
		j++
	}
	if braceIdx == -1 && semiIdx == -1 {
		// Malformed/truncated input: consume to EOF as a forward decl.
		bs, be := b.byteRange(start, b.n)
		return Node{Kind: kind, TokenStart: start, TokenEnd: b.n, ByteStart: bs, ByteEnd: be}, nil, b.n
	}
	if semiIdx != -1 && (braceIdx == -1 || semiIdx < braceIdx) {
		end := semiIdx + 1
		bs, be := b.byteRange(start, end)
		return Node{Kind: kind, TokenStart: start, TokenEnd: end, ByteStart: bs, ByteEnd: be}, nil, end
	}

	depth := 0
	k := braceIdx
	closeBrace := b.n
	for k < b.n {
		switch b.toks[k].Kind {
		case token.LBRACE:
			depth++
		case token.RBRACE:
			depth--
			if depth == 0 {
				closeBrace = k
			}
		}
		if closeBrace != b.n {
			break
		}
		k++
	}

	end := closeBrace + 1
	if end <= b.n {
		p := token.SkipSpace(b.toks, end, b.n)
		if p < b.n && b.toks[p].Kind == token.SEMICOLON {
			end = p + 1
		}
	}

	nested := b.findNestedAggregates(braceIdx+1, closeBrace)
	bs, be := b.byteRange(start, end)
	return Node{Kind: kind, TokenStart: start, TokenEnd: end, ByteStart: bs, ByteEnd: be}, nested, end
}

// findNestedAggregates scans [start,end) for nested struct/union/enum
// definitions, recursing into each one found.
func (b *builder) findNestedAggregates(start, end int) []Node {
	var out []Node
	i := start
	for i < end {
		if _, ok := aggregateKind(b.toks[i].Kind); ok {
			node, nested, next := b.buildAggregate(i)
			out = append(out, node)
			out = append(out, nested...)
			i = next
			continue
		}
		i++
	}
	return out
}

// tryFunction attempts to recognise a function definition starting at
// token index i (the first token of its return-type/storage prefix).
func (b *builder) tryFunction(i int) (Node, int, bool) {
	j := i
	parenIdx := -1
	for j < b.n {
		switch b.toks[j].Kind {
		case token.SEMICOLON, token.LBRACE:
			return Node{}, 0, false
		case token.LPAREN:
			parenIdx = j
		}
		if rejectKeywords[b.toks[j].Kind] {
			return Node{}, 0, false
		}
		if parenIdx != -1 {
			break
		}
		j++
	}
	if parenIdx == -1 {
		return Node{}, 0, false
	}

	idIdx := token.SkipSpaceBack(b.toks, parenIdx-1, i)
	if idIdx < i || b.toks[idIdx].Kind != token.IDENT {
		return Node{}, 0, false
	}

	depth := 0
	k := parenIdx
	closeParen := -1
	for k < b.n {
		switch b.toks[k].Kind {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
			if depth == 0 {
				closeParen = k
			}
		}
		if closeParen != -1 {
			break
		}
		k++
	}
	if closeParen == -1 {
		return Node{}, 0, false
	}

	braceIdx := token.SkipSpace(b.toks, closeParen+1, b.n)
	if braceIdx >= b.n || b.toks[braceIdx].Kind != token.LBRACE {
		return Node{}, 0, false
	}

	depth = 0
	m := braceIdx
	closeBrace := -1
	for m < b.n {
		switch b.toks[m].Kind {
		case token.LBRACE:
			depth++
		case token.RBRACE:
			depth--
			if depth == 0 {
				closeBrace = m
			}
		}
		if closeBrace != -1 {
			break
		}
		m++
	}
	if closeBrace == -1 {
		return Node{}, 0, false
	}

	end := closeBrace + 1
	bs, be := b.byteRange(i, end)
	return Node{Kind: Function, TokenStart: i, TokenEnd: end, ByteStart: bs, ByteEnd: be}, end, true
}

// scanOther consumes the residual sequence starting at i up to and
// including the next top-level semicolon, or to the next structural
// boundary (a brace) if no semicolon is found first.
func (b *builder) scanOther(i int) (Node, int) {
	j := i
	depth := 0
	for j < b.n {
		switch b.toks[j].Kind {
		case token.LPAREN, token.LBRACKET:
			depth++
		case token.RPAREN, token.RBRACKET:
			depth--
		case token.SEMICOLON:
			if depth <= 0 {
				end := j + 1
				bs, be := b.byteRange(i, end)
				return Node{Kind: Other, TokenStart: i, TokenEnd: end, ByteStart: bs, ByteEnd: be}, end
			}
		case token.LBRACE, token.RBRACE:
			if depth <= 0 {
				// Structural boundary reached without a semicolon: stop
				// just before it so the brace is handled by the next
				// top-level iteration.
				if j == i {
					j++
				}
				bs, be := b.byteRange(i, j)
				return Node{Kind: Other, TokenStart: i, TokenEnd: j, ByteStart: bs, ByteEnd: be}, j
			}
		}
		j++
	}
	bs, be := b.byteRange(i, b.n)
	return Node{Kind: Other, TokenStart: i, TokenEnd: b.n, ByteStart: bs, ByteEnd: be}, b.n
}
