// Package rewrite implements the signature rewriter (spec.md §4.F) and the
// body rewriter (§4.G): the two components that turn allocation-analyser
// and refactor-propagation facts into a patch.List ready for patch.Apply.
package rewrite

import (
	"strings"

	"github.com/cddgo/ccrefactor/internal/token"
)

var attributeStart = map[token.Kind]bool{
	token.STATIC: true, token.EXTERN: true, token.TYPEDEF: true,
	token.INLINE: true,
}

// Signature is the result of rewriting one function header.
type Signature struct {
	Text          string // the new header text, first header token through close-paren
	Changed       bool   // false when the header needed no rewrite (already int-returning)
	ReturnsVoid   bool   // the original return type was exactly void
	ReturnsPtr    bool   // the original return type ended in a pointer declarator
	OldReturnType string // the original return-type text, trimmed (meaningful when ReturnsPtr)
	Name          string
}

// RewriteSignature rewrites the function header spanning toks[start:end) — the
// range from the first storage/attribute/return-type token through the
// parameter list's closing paren — per spec.md §4.F.
func RewriteSignature(toks []token.Token, src []byte, start, end int) (Signature, bool) {
	parenIdx := token.FindNext(toks, start, end, token.LPAREN)
	if parenIdx >= end {
		return Signature{}, false
	}
	nameIdx := token.SkipSpaceBack(toks, parenIdx-1, start)
	if nameIdx < start || toks[nameIdx].Kind != token.IDENT {
		return Signature{}, false
	}
	closeParen := matchParen(toks, parenIdx, end)
	if closeParen < 0 {
		return Signature{}, false
	}

	name := toks[nameIdx].Text(src)
	prefixEnd := start
	for i := start; i < nameIdx; i++ {
		if toks[i].Kind == token.WHITESPACE || toks[i].Kind == token.COMMENT {
			continue
		}
		if attributeStart[toks[i].Kind] {
			prefixEnd = i + 1
			continue
		}
		if isAttributeSpan(toks, src, i) {
			close := matchAttributeSpan(toks, i, nameIdx)
			prefixEnd = close + 1
			i = close
			continue
		}
	}

	storagePrefix := strings.TrimRight(textRange(toks, src, start, prefixEnd), " \t")
	if storagePrefix != "" {
		storagePrefix += " "
	}
	returnType := strings.TrimSpace(textRange(toks, src, prefixEnd, nameIdx))

	argsText := textRange(toks, src, parenIdx+1, closeParen)
	trimmedArgs := strings.TrimSpace(argsText)
	emptyArgs := trimmedArgs == "" || trimmedArgs == "void"

	returnsVoid := returnType == "void"
	returnsPtr := strings.HasSuffix(returnType, "*")
	isInt := returnType == "int" || returnType == "signed" || returnType == "signed int"

	sig := Signature{
		Name:          name,
		ReturnsVoid:   returnsVoid,
		ReturnsPtr:    returnsPtr,
		OldReturnType: returnType,
	}

	switch {
	case isInt:
		sig.Text = textRange(toks, src, start, closeParen+1)
		sig.Changed = false
	case returnsVoid:
		sig.Text = storagePrefix + "int " + name + "(" + argsText + ")"
		sig.Changed = true
	default:
		outParam := strings.TrimRight(returnType, " \t") + " *out"
		var args string
		if emptyArgs {
			args = outParam
		} else {
			args = argsText + ", " + outParam
		}
		sig.Text = storagePrefix + "int " + name + "(" + args + ")"
		sig.Changed = true
	}

	return sig, true
}

// isAttributeSpan reports whether toks[i] begins a C23 [[...]] attribute
// span at depth 0; if so it is treated as part of the storage prefix.
func isAttributeSpan(toks []token.Token, src []byte, i int) bool {
	if toks[i].Kind != token.LBRACKET {
		return false
	}
	if i+1 >= len(toks) || toks[i+1].Kind != token.LBRACKET {
		return false
	}
	return true
}

// matchAttributeSpan returns the index of the second ']' closing the
// [[...]] span opened by the double '[' at openIdx (whose second '[' is
// at openIdx+1), bounded by end (exclusive).
func matchAttributeSpan(toks []token.Token, openIdx, end int) int {
	depth := 0
	for i := openIdx; i < end; i++ {
		switch toks[i].Kind {
		case token.LBRACKET:
			depth++
		case token.RBRACKET:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return end - 1
}

// matchParen returns the index of the ')' matching the '(' at openIdx,
// bounded by end (exclusive), or -1 if unmatched.
func matchParen(toks []token.Token, openIdx, end int) int {
	depth := 0
	for i := openIdx; i < end; i++ {
		switch toks[i].Kind {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func textRange(toks []token.Token, src []byte, start, end int) string {
	if end <= start {
		return ""
	}
	return string(src[toks[start].Offset:toks[end-1].End()])
}
