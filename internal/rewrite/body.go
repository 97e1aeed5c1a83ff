package rewrite

import (
	"strconv"
	"strings"

	"github.com/cddgo/ccrefactor/internal/alloc"
	"github.com/cddgo/ccrefactor/internal/patch"
	"github.com/cddgo/ccrefactor/internal/token"
)

// Kind distinguishes the two fallible-signature shapes the orchestrator
// refactors away (spec.md §4.H step 4): a function that used to return
// void, and one that used to return a pointer.
type Kind int

const (
	WasVoid Kind = iota
	WasPointer
)

// RefactoredFunction names a callee whose signature has already been
// rewritten, so call sites referencing it need the new error-code
// discipline propagated in (spec.md §4.G "Call-site propagation").
type RefactoredFunction struct {
	Name       string
	Kind       Kind
	ReturnType string // meaningful when Kind == WasPointer: the callee's original declared return type, e.g. "char *"
}

// SignatureTransform describes how the function body currently being
// rewritten must itself honour its own new signature.
type SignatureTransform struct {
	Kind        Kind
	ReturnType  string // meaningful when Kind == WasPointer
	OutArg      string
	SuccessCode string
	ErrorCode   string
}

const defaultErrorCode = "ENOMEM"

// Body rewrites one function body per spec.md §4.G. bodyToks must span
// the function's opening '{' through its matching '}', inclusive. sites
// must already be translated to body-local token indices (spec.md §9's
// "Ambiguous source behaviour" point 3: a file-absolute AllocationSite
// index is meaningless here). The returned patch.List is ready for
// patch.List.Apply(bodyToks, src).
func Body(bodyToks []token.Token, src []byte, sites []alloc.Site, refactored []RefactoredFunction, transform *SignatureTransform) *patch.List {
	b := &bodyRewriter{
		toks:       bodyToks,
		src:        src,
		sites:      sites,
		refactored: indexByName(refactored),
		transform:  transform,
		patches:    patch.New(),
	}
	b.run()
	return b.patches
}

type bodyRewriter struct {
	toks       []token.Token
	src        []byte
	sites      []alloc.Site
	refactored map[string]RefactoredFunction
	transform  *SignatureTransform
	patches    *patch.List
	tmpCounter int
	needsRC    bool
}

func indexByName(fns []RefactoredFunction) map[string]RefactoredFunction {
	m := make(map[string]RefactoredFunction, len(fns))
	for _, f := range fns {
		m[f.Name] = f
	}
	return m
}

func (b *bodyRewriter) run() {
	b.injectAllocationChecks()
	b.rewriteReturns()
	b.propagateCallSites()
	b.injectStatusVar()
}

func (b *bodyRewriter) errorCode() string {
	if b.transform != nil && b.transform.ErrorCode != "" {
		return b.transform.ErrorCode
	}
	return defaultErrorCode
}

func (b *bodyRewriter) successCode() string {
	if b.transform != nil && b.transform.SuccessCode != "" {
		return b.transform.SuccessCode
	}
	return "0"
}

// injectAllocationChecks implements the first two bullets of §4.G:
// allocation-safety injection and the self-assigning-realloc special case.
func (b *bodyRewriter) injectAllocationChecks() {
	for _, site := range b.sites {
		if site.IsChecked || site.VarName == "" {
			continue
		}
		if b.isSelfReallocAssign(site) {
			b.rewriteSelfRealloc(site)
			continue
		}
		stmtEnd := b.statementEnd(site.TokenIndex)
		if stmtEnd < 0 {
			continue
		}
		var text string
		switch site.Spec.Check {
		case alloc.CheckIntNegative:
			text = " if (" + site.VarName + " < 0) { return " + b.errorCode() + "; }"
		case alloc.CheckIntNonzero:
			text = " if (" + site.VarName + " != 0) { return " + b.errorCode() + "; }"
		default:
			text = " if (!" + site.VarName + ") { return " + b.errorCode() + "; }"
		}
		b.patches.Add(stmtEnd+1, stmtEnd+1, text)
	}
}

func (b *bodyRewriter) isSelfReallocAssign(site alloc.Site) bool {
	if site.Spec.Name != "realloc" {
		return false
	}
	arg0, ok := b.firstArgIdent(site.TokenIndex)
	return ok && arg0 == site.VarName
}

func (b *bodyRewriter) rewriteSelfRealloc(site alloc.Site) {
	_, close, ok := b.callParens(site.TokenIndex)
	if !ok {
		return
	}
	callText := textRange(b.toks, b.src, site.TokenIndex, close+1)
	stmtStart := b.statementStart(site.TokenIndex)
	stmtEnd := b.statementEnd(site.TokenIndex)
	if stmtEnd < 0 {
		return
	}
	repl := "{ void *_safe_tmp = " + callText + "; if (!_safe_tmp) return " + b.errorCode() + "; " +
		site.VarName + " = _safe_tmp; }"
	b.patches.Add(stmtStart, stmtEnd+1, repl)
}

// callParens locates the parameter-list parens of a call whose function
// identifier sits at callIdx.
func (b *bodyRewriter) callParens(callIdx int) (open, close int, ok bool) {
	open = token.SkipSpace(b.toks, callIdx+1, len(b.toks))
	if open >= len(b.toks) || b.toks[open].Kind != token.LPAREN {
		return 0, 0, false
	}
	close = matchParen(b.toks, open, len(b.toks))
	if close < 0 {
		return 0, 0, false
	}
	return open, close, true
}

func (b *bodyRewriter) firstArgIdent(callIdx int) (string, bool) {
	open, close, ok := b.callParens(callIdx)
	if !ok {
		return "", false
	}
	i := token.SkipSpace(b.toks, open+1, close)
	if i >= close || b.toks[i].Kind != token.IDENT {
		return "", false
	}
	return b.toks[i].Text(b.src), true
}

// statementStart returns the index of the first significant token of the
// statement containing idx, scanning backward for the nearest ';', '{',
// or '}' boundary (the simple, paren-unaware heuristic used throughout
// this package and internal/alloc — for-loop headers are the one
// construct it does not model precisely).
func (b *bodyRewriter) statementStart(idx int) int {
	j := idx
	for j > 0 {
		j--
		switch b.toks[j].Kind {
		case token.SEMICOLON, token.LBRACE, token.RBRACE:
			return token.SkipSpace(b.toks, j+1, len(b.toks))
		}
	}
	return token.SkipSpace(b.toks, 0, len(b.toks))
}

// statementEnd returns the index of the terminating ';' of the statement
// containing idx, honouring paren/bracket nesting so a call's own
// argument list never short-circuits the scan.
func (b *bodyRewriter) statementEnd(idx int) int {
	depth := 0
	for i := idx; i < len(b.toks); i++ {
		switch b.toks[i].Kind {
		case token.LPAREN, token.LBRACKET:
			depth++
		case token.RPAREN, token.RBRACKET:
			depth--
		case token.SEMICOLON:
			if depth <= 0 {
				return i
			}
		}
	}
	return -1
}

// rewriteReturns implements §4.G's "Return statement rewrite" bullet.
func (b *bodyRewriter) rewriteReturns() {
	if b.transform == nil {
		return
	}
	for i := 0; i < len(b.toks); i++ {
		if b.toks[i].Kind != token.RETURN {
			continue
		}
		end := b.statementEnd(i)
		if end < 0 {
			continue
		}
		exprStart := token.SkipSpace(b.toks, i+1, end)
		exprText := strings.TrimSpace(textRange(b.toks, b.src, exprStart, end))

		switch b.transform.Kind {
		case WasVoid:
			b.patches.Add(i, end+1, "return "+b.successCode()+";")
		case WasPointer:
			if exprText == "NULL" || exprText == "0" {
				b.patches.Add(i, end+1, "return "+b.errorCode()+";")
			} else {
				retType := strings.TrimSpace(b.transform.ReturnType)
				repl := "{ " + retType + " _val = " + exprText + "; if (!_val) return " + b.errorCode() +
					"; *" + b.transform.OutArg + " = _val; return " + b.successCode() + "; }"
				b.patches.Add(i, end+1, repl)
			}
		}
	}

	if b.transform.Kind == WasVoid {
		closeBrace := len(b.toks) - 1
		for closeBrace > 0 && (b.toks[closeBrace].Kind == token.WHITESPACE || b.toks[closeBrace].Kind == token.COMMENT) {
			closeBrace--
		}
		b.patches.Add(closeBrace, closeBrace, "return "+b.successCode()+"; ")
	}
}

// propagateCallSites implements §4.G's "Call-site propagation" bullet.
func (b *bodyRewriter) propagateCallSites() {
	for i := 0; i < len(b.toks); i++ {
		if b.toks[i].Kind != token.IDENT {
			continue
		}
		fn, ok := b.refactored[b.toks[i].Text(b.src)]
		if !ok {
			continue
		}
		open, close, ok := b.callParens(i)
		if !ok {
			continue
		}
		b.rewriteCall(i, open, close, fn)
	}
}

func (b *bodyRewriter) rewriteCall(identIdx, open, close int, fn RefactoredFunction) {
	argsText := strings.TrimSpace(textRange(b.toks, b.src, open+1, close))
	stmtStart := b.statementStart(identIdx)
	afterClose := token.SkipSpace(b.toks, close+1, len(b.toks))
	bareStatement := stmtStart == identIdx && afterClose < len(b.toks) && b.toks[afterClose].Kind == token.SEMICOLON

	if bareStatement {
		b.needsRC = true
		switch fn.Kind {
		case WasVoid:
			repl := "rc = " + fn.Name + "(" + argsText + "); if (rc != 0) return rc;"
			b.patches.Add(stmtStart, afterClose+1, repl)
		case WasPointer:
			tmp := b.nextTmp()
			retType := strings.TrimSpace(fn.ReturnType)
			repl := retType + " " + tmp + "; rc = " + fn.Name + "(" + withOutArg(argsText, tmp) + "); if (rc != 0) return rc;"
			b.patches.Add(stmtStart, afterClose+1, repl)
		}
		return
	}

	if fn.Kind != WasPointer {
		return
	}

	if decl, ok := b.declarationAssignment(stmtStart, identIdx, close); ok {
		b.needsRC = true
		stmtEnd := b.statementEnd(identIdx)
		if stmtEnd < 0 {
			return
		}
		callExpr := "rc = " + fn.Name + "(" + withOutArg(argsText, decl.varName) + "); if (rc != 0) return rc;"
		var repl string
		if decl.isDeclaration {
			repl = joinTypeAndName(decl.typeText, decl.varName) + "; " + callExpr
		} else {
			repl = callExpr
		}
		b.patches.Add(stmtStart, stmtEnd+1, repl)
		return
	}

	// Nested occurrence: hoist into a temporary declared just before the
	// enclosing statement.
	b.needsRC = true
	tmp := b.nextTmp()
	retType := strings.TrimSpace(fn.ReturnType)
	hoist := retType + " " + tmp + "; rc = " + fn.Name + "(" + withOutArg(argsText, tmp) + "); if (rc != 0) return rc; "
	b.patches.Add(stmtStart, stmtStart, hoist)
	b.patches.Add(identIdx, close+1, tmp)
}

func withOutArg(argsText, name string) string {
	if argsText == "" {
		return "&" + name
	}
	return argsText + ", &" + name
}

func joinTypeAndName(typeText, name string) string {
	if strings.HasSuffix(typeText, "*") {
		return typeText + name
	}
	return typeText + " " + name
}

type declAssign struct {
	varName       string
	typeText      string
	isDeclaration bool
}

// declarationAssignment recognises `T v = f(args);` or `v = f(args);`
// where the call is the entire right-hand side of the assignment: the
// '=' sits immediately (modulo whitespace) before identIdx and the
// statement ends immediately (modulo whitespace) after the call's
// closing paren.
func (b *bodyRewriter) declarationAssignment(stmtStart, identIdx, close int) (declAssign, bool) {
	afterClose := token.SkipSpace(b.toks, close+1, len(b.toks))
	if afterClose >= len(b.toks) || b.toks[afterClose].Kind != token.SEMICOLON {
		return declAssign{}, false
	}
	eq := token.SkipSpaceBack(b.toks, identIdx-1, stmtStart)
	if eq < stmtStart || b.toks[eq].Kind != token.ASSIGN {
		return declAssign{}, false
	}
	varIdx := token.SkipSpaceBack(b.toks, eq-1, stmtStart)
	if varIdx < stmtStart || b.toks[varIdx].Kind != token.IDENT {
		return declAssign{}, false
	}
	varName := b.toks[varIdx].Text(b.src)
	if varIdx == stmtStart {
		return declAssign{varName: varName}, true
	}
	typeText := strings.TrimSpace(textRange(b.toks, b.src, stmtStart, varIdx))
	return declAssign{varName: varName, typeText: typeText, isDeclaration: true}, true
}

func (b *bodyRewriter) nextTmp() string {
	name := "_tmp_" + strconv.Itoa(b.tmpCounter)
	b.tmpCounter++
	return name
}

// injectStatusVar implements §4.G's "Status variable injection" bullet.
//
// The declaration is folded into a replacement of the opening brace
// itself (token 0) rather than an insertion just after it: an
// insertion at index 1 would tie, on Start, with a call-site
// replacement patch whenever the first body statement begins right at
// index 1 (no whitespace after '{'), and patch.List.Apply's overlap
// suppression keeps the call-site replacement, which is queued first,
// and drops the later insertion, silently losing "rc". Token 0 is always just the brace, so nothing
// else ever patches it.
func (b *bodyRewriter) injectStatusVar() {
	if !b.needsRC || b.hasIdent("rc") {
		return
	}
	b.patches.Add(0, 1, "{ int rc = 0;")
}

func (b *bodyRewriter) hasIdent(name string) bool {
	for _, t := range b.toks {
		if t.Kind == token.IDENT && t.Text(b.src) == name {
			return true
		}
	}
	return false
}
