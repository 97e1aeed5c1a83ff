// Package declarator implements the "spiral rule" for reading a C
// declarator: starting at the declared identifier (or, for an abstract
// declarator, the point where type operators begin) and alternately
// consuming suffix operators (arrays, function parameter lists) to the
// right and prefix operators (pointers) to the left, crossing grouping
// parentheses when both sides are exhausted.
package declarator

import (
	"errors"
	"strings"

	"github.com/cddgo/ccrefactor/internal/token"
)

// Kind distinguishes the links of a DeclType chain.
type Kind int

const (
	Base Kind = iota
	Pointer
	Array
	Function
)

// DeclType is one link of a declaration's type chain, ordered
// outer-wrapper-first: for `int *a[]` (array of pointers to int) the
// chain is Array -> Pointer -> Base("int").
type DeclType struct {
	Kind Kind

	BaseName string // Kind == Base: the fundamental specifier text

	Qualifiers string // Kind == Pointer: space-joined qualifiers adjacent to the '*'

	Extent string // Kind == Array: size-expression text, "" if empty ([])

	Args string // Kind == Function: the parameter-list interior text

	Inner *DeclType // the wrapped type; nil only for Kind == Base
}

// DeclInfo is the result of parsing one declaration's declarator.
type DeclInfo struct {
	Name    string // the declared identifier; "" for an abstract declarator
	HasName bool
	Type    *DeclType
}

// ErrNoPivot is returned when the declarator range contains neither an
// identifier nor any type operator to anchor the spiral walk on.
var ErrNoPivot = errors.New("declarator: no pivot candidate found")

var qualifierKinds = map[token.Kind]string{
	token.CONST:    "const",
	token.VOLATILE: "volatile",
	token.RESTRICT: "restrict",
	token.ATOMIC:   "_Atomic",
}

// Parse extracts the identifier and type chain from the declaration
// spanning toks[start:end] (typically one declaration or one parameter).
func Parse(toks []token.Token, src []byte, start, end int) (DeclInfo, error) {
	p := &parser{toks: toks, src: src, start: start, end: end}
	return p.parse()
}

type parser struct {
	toks       []token.Token
	src        []byte
	start, end int
	sig        []int // indices into toks of significant (non-ws/comment) tokens in [start,end)
	masked     []bool
}

func (p *parser) parse() (DeclInfo, error) {
	p.buildSig()
	if len(p.sig) == 0 {
		return DeclInfo{}, ErrNoPivot
	}

	pivot, found := p.findIdentPivot()
	if found {
		return p.walk(pivot, true)
	}

	opIdx, ok := p.findOperatorStart()
	if !ok {
		// No identifier and no operator: nothing to anchor the walk on.
		return DeclInfo{}, ErrNoPivot
	}
	return p.walk(opIdx, false)
}

// buildSig collects the indices (into toks) of every non-whitespace,
// non-comment token in [start,end), and marks which of those sig-indices
// fall inside a masked specifier region: a typeof(...)/_Atomic(...)
// argument list, or a struct/union/enum aggregate body.
func (p *parser) buildSig() {
	for i := p.start; i < p.end; i++ {
		k := p.toks[i].Kind
		if k == token.WHITESPACE || k == token.COMMENT {
			continue
		}
		p.sig = append(p.sig, i)
	}
	p.masked = make([]bool, len(p.sig))

	for si := 0; si < len(p.sig); si++ {
		k := p.toks[p.sig[si]].Kind
		switch k {
		case token.TYPEOF, token.ATOMIC:
			if si+1 < len(p.sig) && p.toks[p.sig[si+1]].Kind == token.LPAREN {
				close := p.matchForward(si+1, token.LPAREN, token.RPAREN)
				for j := si + 2; j < close; j++ {
					p.masked[j] = true
				}
			}
		case token.LBRACKET:
			// Array-size expressions never hold the declarator's own
			// pivot identifier.
			close := p.matchForward(si, token.LBRACKET, token.RBRACKET)
			for j := si + 1; j < close; j++ {
				p.masked[j] = true
			}
		case token.LPAREN:
			// A '(' immediately followed by '*', '^', '[' or another '('
			// is a declarator grouping paren and may hold the pivot
			// identifier; any other '(' is a function parameter list (or
			// a call-style suffix) and never holds it.
			isGrouping := false
			if si+1 < len(p.sig) {
				switch p.toks[p.sig[si+1]].Kind {
				case token.STAR, token.CARET, token.LBRACKET, token.LPAREN:
					isGrouping = true
				}
			}
			if !isGrouping {
				close := p.matchForward(si, token.LPAREN, token.RPAREN)
				for j := si + 1; j < close; j++ {
					p.masked[j] = true
				}
			}
		case token.STRUCT, token.UNION, token.ENUM:
			// Find a '{' before any ';' at this nesting level.
			j := si + 1
			for j < len(p.sig) {
				jk := p.toks[p.sig[j]].Kind
				if jk == token.LBRACE || jk == token.SEMICOLON {
					break
				}
				j++
			}
			if j < len(p.sig) && p.toks[p.sig[j]].Kind == token.LBRACE {
				close := p.matchForward(j, token.LBRACE, token.RBRACE)
				for k2 := j + 1; k2 < close; k2++ {
					p.masked[k2] = true
				}
			}
		}
	}
}

// matchForward returns the sig-index of the token matching the opener at
// sig-index openIdx (whose kind is open), scanning forward and balancing
// open/close. Returns len(p.sig) if unmatched.
func (p *parser) matchForward(openIdx int, open, closeKind token.Kind) int {
	depth := 0
	for i := openIdx; i < len(p.sig); i++ {
		switch p.toks[p.sig[i]].Kind {
		case open:
			depth++
		case closeKind:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(p.sig)
}

// findIdentPivot returns the sig-index of the rightmost unmasked
// identifier in the range.
func (p *parser) findIdentPivot() (int, bool) {
	for i := len(p.sig) - 1; i >= 0; i-- {
		if p.masked[i] {
			continue
		}
		if p.toks[p.sig[i]].Kind == token.IDENT {
			return i, true
		}
	}
	return 0, false
}

// findOperatorStart locates the virtual pivot boundary for an abstract
// declarator: the point that would hold the identifier in a concrete
// declarator, i.e. the boundary between a leading run of '*'/qualifier
// tokens and whatever array/function suffix follows. For a grouped
// abstract declarator such as "int (*)(int)" the boundary falls just
// inside the grouping parens, which walk then crosses like any other.
func (p *parser) findOperatorStart() (int, bool) {
	first := -1
	for i := 0; i < len(p.sig); i++ {
		if p.masked[i] {
			continue
		}
		switch p.toks[p.sig[i]].Kind {
		case token.STAR, token.LBRACKET:
			first = i
		}
		if first != -1 {
			break
		}
	}
	if first == -1 {
		return 0, false
	}
	i := first
	for i < len(p.sig) {
		k := p.toks[p.sig[i]].Kind
		if k == token.STAR {
			i++
			continue
		}
		if _, ok := qualifierKinds[k]; ok {
			i++
			continue
		}
		break
	}
	return i, true
}

// walk runs the suffix -> prefix -> grouping-paren spiral from a pivot
// located at sig-index pivot. hasToken is true when the pivot is an
// actual identifier token to report as DeclInfo.Name (and to skip over
// when opening the cursors); false for an abstract declarator's virtual
// (zero-width) pivot.
func (p *parser) walk(pivot int, hasToken bool) (DeclInfo, error) {
	var name string
	right := pivot
	left := pivot - 1
	if hasToken {
		name = p.toks[p.sig[pivot]].Text(p.src)
		right = pivot + 1
	}

	var head *DeclType
	attach := &head

	for {
		// Suffix phase: arrays and function parameter lists.
		for right < len(p.sig) {
			k := p.toks[p.sig[right]].Kind
			if k == token.LBRACKET {
				close := p.matchForward(right, token.LBRACKET, token.RBRACKET)
				extent := p.textOf(right+1, close-1)
				node := &DeclType{Kind: Array, Extent: extent}
				*attach = node
				attach = &node.Inner
				right = close + 1
				continue
			}
			if k == token.LPAREN {
				close := p.matchForward(right, token.LPAREN, token.RPAREN)
				args := p.textOf(right+1, close-1)
				node := &DeclType{Kind: Function, Args: args}
				*attach = node
				attach = &node.Inner
				right = close + 1
				continue
			}
			break
		}

		// Prefix phase: pointers. A qualifier keyword (const, volatile,
		// restrict, _Atomic) binds to the '*' immediately to its left, so
		// find the contiguous star/qualifier run ending at `left`, then
		// attach pointer nodes closest-to-pivot first, each carrying the
		// qualifiers found between it and the next star to its right.
		{
			runEnd := left
			j := left
			for j >= 0 {
				k := p.toks[p.sig[j]].Kind
				if k == token.STAR {
					j--
					continue
				}
				if _, ok := qualifierKinds[k]; ok {
					j--
					continue
				}
				break
			}
			runLo := j + 1
			var starPositions []int
			for k := runLo; k <= runEnd; k++ {
				if p.toks[p.sig[k]].Kind == token.STAR {
					starPositions = append(starPositions, k)
				}
			}
			for idx := len(starPositions) - 1; idx >= 0; idx-- {
				starAt := starPositions[idx]
				hi := runEnd
				if idx+1 < len(starPositions) {
					hi = starPositions[idx+1] - 1
				}
				var quals []string
				for k := starAt + 1; k <= hi; k++ {
					if q, ok := qualifierKinds[p.toks[p.sig[k]].Kind]; ok {
						quals = append(quals, q)
					}
				}
				node := &DeclType{Kind: Pointer, Qualifiers: strings.Join(quals, " ")}
				*attach = node
				attach = &node.Inner
			}
			if len(starPositions) > 0 {
				left = runLo - 1
			}
		}

		// Grouping-paren crossing.
		if left >= 0 && right < len(p.sig) &&
			p.toks[p.sig[left]].Kind == token.LPAREN &&
			p.toks[p.sig[right]].Kind == token.RPAREN {
			left--
			right++
			continue
		}
		break
	}

	baseText := p.textOf(0, left)
	if strings.TrimSpace(baseText) == "" {
		baseText = "int"
	}
	*attach = &DeclType{Kind: Base, BaseName: baseText}

	return DeclInfo{Name: name, HasName: hasToken, Type: head}, nil
}

// textOf returns the original source text spanning sig-indices [lo,hi]
// inclusive (both may be out of [0,len(sig)) to mean "empty").
func (p *parser) textOf(lo, hi int) string {
	if lo < 0 {
		lo = 0
	}
	if hi >= len(p.sig) {
		hi = len(p.sig) - 1
	}
	if lo > hi || lo >= len(p.sig) || hi < 0 {
		return ""
	}
	startOff := p.toks[p.sig[lo]].Offset
	endOff := p.toks[p.sig[hi]].End()
	return string(p.src[startOff:endOff])
}
