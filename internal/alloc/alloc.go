// Package alloc implements the allocation-safety analyser: a heuristic
// scanner over a token stream that locates calls to known allocator
// functions and determines, for each one, whether the result is
// checked for failure before it is used.
package alloc

import "github.com/cddgo/ccrefactor/internal/token"

// CheckStyle describes how an allocator signals failure.
type CheckStyle int

const (
	CheckPtrNull CheckStyle = iota
	CheckIntNegative
	CheckIntNonzero
)

// Style describes where the allocated result lands.
type Style int

const (
	StyleReturnPtr Style = iota // the pointer is the function's return value
	StyleArgPtr                 // the pointer is written through an argument
)

// Spec is the registered behavior of one allocator function.
type Spec struct {
	Name        string
	Style       Style
	Check       CheckStyle
	PtrArgIndex int // argument index (0-based) receiving the pointer, for StyleArgPtr
}

// DefaultRegistry is the built-in allocator table. glob's pointer
// argument is its struct-out parameter (index 3); every registered
// allocator here is checked by pointer-nullness, including asprintf's
// captured output buffer rather than its int return code.
var DefaultRegistry = []Spec{
	{Name: "malloc", Style: StyleReturnPtr, Check: CheckPtrNull},
	{Name: "calloc", Style: StyleReturnPtr, Check: CheckPtrNull},
	{Name: "realloc", Style: StyleReturnPtr, Check: CheckPtrNull},
	{Name: "strdup", Style: StyleReturnPtr, Check: CheckPtrNull},
	{Name: "strndup", Style: StyleReturnPtr, Check: CheckPtrNull},
	{Name: "realpath", Style: StyleReturnPtr, Check: CheckPtrNull},
	{Name: "get_current_dir_name", Style: StyleReturnPtr, Check: CheckPtrNull},
	{Name: "asprintf", Style: StyleArgPtr, Check: CheckPtrNull, PtrArgIndex: 0},
	{Name: "vasprintf", Style: StyleArgPtr, Check: CheckPtrNull, PtrArgIndex: 0},
	{Name: "getline", Style: StyleArgPtr, Check: CheckPtrNull, PtrArgIndex: 0},
	{Name: "getdelim", Style: StyleArgPtr, Check: CheckPtrNull, PtrArgIndex: 0},
	{Name: "scandir", Style: StyleArgPtr, Check: CheckPtrNull, PtrArgIndex: 1},
	// glob's C return code is int-nonzero, not int-negative like its
	// StyleArgPtr siblings, but it's folded into the same blanket
	// pointer-null check on the out-parameter (Open Question 1).
	{Name: "glob", Style: StyleArgPtr, Check: CheckPtrNull, PtrArgIndex: 3},
}

// Lookup finds a registered allocator spec by function name.
func Lookup(registry []Spec, name string) (Spec, bool) {
	for _, s := range registry {
		if s.Name == name {
			return s, true
		}
	}
	return Spec{}, false
}

// Site is one detected allocation call and the analyser's verdict on it.
type Site struct {
	TokenIndex      int
	VarName         string // the variable capturing the result; "" if none found
	IsChecked       bool
	UsedBeforeCheck bool
	IsReturnStmt    bool
	Spec            Spec
}

// Find scans toks for calls to any allocator in registry and reports
// one Site per call whose captured variable could be identified or
// that directly follows a `return` keyword.
func Find(toks []token.Token, src []byte, registry []Spec) []Site {
	var out []Site
	for i, tok := range toks {
		if tok.Kind != token.IDENT {
			continue
		}
		spec, ok := Lookup(registry, tok.Text(src))
		if !ok {
			continue
		}

		var varName string
		switch spec.Style {
		case StyleReturnPtr:
			varName = assignedVar(toks, src, i)
		case StyleArgPtr:
			varName = argumentVar(toks, src, i, spec.PtrArgIndex)
		}
		isReturn := precededByReturn(toks, i)
		if varName == "" && !isReturn {
			continue
		}

		var checked, used bool
		if varName != "" {
			checked, used = isChecked(toks, src, i, varName)
		}
		out = append(out, Site{
			TokenIndex:      i,
			VarName:         varName,
			IsChecked:       checked,
			UsedBeforeCheck: used,
			IsReturnStmt:    isReturn,
			Spec:            spec,
		})
	}
	return out
}

// precededByReturn reports whether the nearest non-whitespace,
// non-comment token preceding i is a `return` keyword. Any other token
// there, including a statement boundary, gives false; an assignment
// such as `return p = malloc(n)` is not recognised.
func precededByReturn(toks []token.Token, i int) bool {
	j := i
	for j > 0 {
		j--
		switch toks[j].Kind {
		case token.WHITESPACE, token.COMMENT:
			continue
		case token.SEMICOLON, token.LBRACE, token.RBRACE:
			return false
		case token.RETURN:
			return true
		default:
			return false
		}
	}
	return false
}

// isInsideCondition reports whether token idx sits inside the
// parenthesized condition of an `if` or `while`.
func isInsideCondition(toks []token.Token, src []byte, idx int) bool {
	depth := 0
	i := idx
	for i > 0 {
		i--
		switch toks[i].Kind {
		case token.RPAREN:
			depth++
		case token.LPAREN:
			if depth > 0 {
				depth--
				continue
			}
			// Unmatched open paren at depth 0: if it directly follows
			// `if`/`while` this is the condition's own paren; otherwise
			// keep scanning left to allow nested grouping, e.g.
			// `if ((p = malloc(...)))`.
			prev := token.SkipSpaceBack(toks, i-1, 0)
			if prev >= 0 && (toks[prev].Equal(src, "if") || toks[prev].Equal(src, "while")) {
				return true
			}
		case token.SEMICOLON, token.LBRACE, token.RBRACE:
			return false
		}
	}
	return false
}

// assignedVar finds the identifier assigned at `var = <allocator>(...)`,
// searching backward from the allocator call token idx for a top-level
// '=' within the current statement.
func assignedVar(toks []token.Token, src []byte, idx int) string {
	j := idx
	for j > 0 {
		j--
		switch toks[j].Kind {
		case token.WHITESPACE, token.COMMENT:
			continue
		case token.SEMICOLON, token.LBRACE, token.RBRACE:
			return ""
		case token.ASSIGN:
			k := token.SkipSpaceBack(toks, j-1, 0)
			if k >= 0 && toks[k].Kind == token.IDENT {
				return toks[k].Text(src)
			}
			return ""
		}
	}
	return ""
}

// argumentVar extracts the identifier passed (optionally address-of'd)
// as the argTarget'th argument (0-based) of the call at function token
// index fnIdx.
func argumentVar(toks []token.Token, src []byte, fnIdx, argTarget int) string {
	i := token.SkipSpace(toks, fnIdx+1, len(toks))
	if i >= len(toks) || toks[i].Kind != token.LPAREN {
		return ""
	}
	i++

	current := 0
	depth := 0
	for i < len(toks) {
		switch toks[i].Kind {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			if depth > 0 {
				depth--
			} else {
				return ""
			}
		case token.COMMA:
			if depth == 0 {
				current++
				if current > argTarget {
					return ""
				}
				i++
				continue
			}
		}

		if current == argTarget {
			j := token.SkipSpace(toks, i, len(toks))
			if j < len(toks) && toks[j].Kind == token.AMP {
				j = token.SkipSpace(toks, j+1, len(toks))
			}
			if j < len(toks) && toks[j].Kind == token.IDENT {
				return toks[j].Text(src)
			}
			return ""
		}
		i++
	}
	return ""
}

// isChecked reports whether varName is verified for failure before any
// unguarded use, scanning forward from the allocation statement's end.
// The second return value flags a detected use that happens before any
// check is found.
func isChecked(toks []token.Token, src []byte, allocIdx int, varName string) (checked bool, usedBeforeCheck bool) {
	if isInsideCondition(toks, src, allocIdx) {
		return true, false
	}

	i := allocIdx
	for i < len(toks) {
		if toks[i].Kind == token.SEMICOLON {
			i++
			break
		}
		i++
	}

	for i < len(toks) {
		tok := toks[i]
		switch {
		case tok.Kind == token.STRUCT || tok.Kind == token.ENUM || tok.Kind == token.UNION:
			// type keywords never constitute use
		case tok.Kind == token.WHITESPACE || tok.Kind == token.COMMENT:
			// skip
		case tok.Equal(src, "if") || tok.Equal(src, "while"):
			j := token.SkipSpace(toks, i+1, len(toks))
			if j < len(toks) && toks[j].Kind == token.LPAREN {
				depth := 1
				j++
				for j < len(toks) && depth > 0 {
					switch toks[j].Kind {
					case token.IDENT:
						if toks[j].Equal(src, varName) {
							return true, usedBeforeCheck
						}
					case token.LPAREN:
						depth++
					case token.RPAREN:
						depth--
					}
					j++
				}
			}
		case tok.Kind == token.IDENT && tok.Equal(src, varName):
			if i > allocIdx {
				prev := token.SkipSpaceBack(toks, i-1, allocIdx)
				if prev >= allocIdx && toks[prev].Kind == token.STAR {
					return false, true
				}
			}
			next := token.SkipSpace(toks, i+1, len(toks))
			if next < len(toks) {
				nt := toks[next]
				if nt.Kind == token.ARROW || nt.Kind == token.LBRACKET {
					return false, true
				}
				if nt.Kind == token.ASSIGN {
					return false, usedBeforeCheck
				}
			}
		case tok.Kind == token.RBRACE:
			return false, usedBeforeCheck
		}
		i++
	}
	return false, usedBeforeCheck
}
