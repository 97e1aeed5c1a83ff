// Package patch implements the patch engine: a list of deferred
// (token-range, replacement-text) edits applied to a token stream in a
// single forward pass to produce the rewritten byte output.
package patch

import (
	"sort"

	"github.com/cddgo/ccrefactor/internal/token"
)

// Patch replaces tokens [Start,End) with Text. Start == End marks an
// insertion-only patch that consumes no tokens.
type Patch struct {
	Start int
	End   int
	Text  string
}

// List is a sortable collection of patches.
type List struct {
	patches []Patch
}

// New returns an empty, initialized patch list.
func New() *List {
	return &List{}
}

// Add appends a patch to the list, taking ownership of text.
func (l *List) Add(start, end int, text string) {
	l.patches = append(l.patches, Patch{Start: start, End: end, Text: text})
}

// Len reports how many patches are queued.
func (l *List) Len() int { return len(l.patches) }

// Sort orders the queued patches by ascending start index. The sort is
// stable, so equal-start patches keep their insertion order; callers
// should not rely on that order (§4.E) and should avoid queuing more
// than one patch per (start == end) insertion point.
func (l *List) Sort() {
	sort.SliceStable(l.patches, func(i, j int) bool {
		return l.patches[i].Start < l.patches[j].Start
	})
}

// Apply sorts the list and walks toks from index 0 to len(toks),
// emitting source bytes for untouched tokens and patch text for
// patched ranges. A patch whose Start coincides with the current index
// wins; any later patch whose Start is below the end of the range it
// just replaced, an equal Start included, is silently suppressed
// (overlap suppression: first patch wins). Patches with Start >= len(toks) are end-of-stream
// appends, emitted after the main walk in sorted order.
func (l *List) Apply(toks []token.Token, src []byte) []byte {
	l.Sort()

	var out []byte
	pi := 0
	i := 0
	n := len(toks)

	for i < n {
		for pi < len(l.patches) && l.patches[pi].Start < i {
			pi++
		}
		if pi < len(l.patches) && l.patches[pi].Start == i {
			p := l.patches[pi]
			out = append(out, p.Text...)
			next := p.End
			if next < i {
				next = i
			}
			i = next
			pi++
			for pi < len(l.patches) && l.patches[pi].Start < i {
				pi++
			}
			continue
		}
		out = append(out, src[toks[i].Offset:toks[i].End()]...)
		i++
	}

	for pi < len(l.patches) && l.patches[pi].Start < n {
		pi++
	}
	for ; pi < len(l.patches); pi++ {
		out = append(out, l.patches[pi].Text...)
	}

	return out
}
