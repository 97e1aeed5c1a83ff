package orchestrator

import (
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
)

// TestTransformGoldenFixtures snapshots the rewritten output of the seed
// scenarios from spec.md §8, the way the teacher's TestDWScriptFixtures
// drives snaps.MatchSnapshot over its own fixture set: future regressions
// in the patch/rewrite pipeline show up as a snapshot diff instead of a
// hand-written substring assertion going stale silently.
func TestTransformGoldenFixtures(t *testing.T) {
	fixtures := []struct {
		name string
		src  string
	}{
		{"unchecked_malloc", `void f() { char *p = malloc(10); *p = 5; }`},
		{"checked_malloc", `void f() { char *p = malloc(10); if (!p) return; }`},
		{"void_call_site_propagation", `void A() { char *p = malloc(1); *p=0; } void B() { A(); }`},
		{"pointer_call_site_propagation", `char* A() { return strdup("x"); } char* B() { char *x = A(); return x; }`},
		{"main_untouched", `void A() { malloc(1); } int main() { A(); return 0; }`},
		{"self_assigning_realloc", `void f() { char *p; p = realloc(p, 100); }`},
	}

	for _, fx := range fixtures {
		t.Run(fx.name, func(t *testing.T) {
			out := transform(t, fx.src)
			snaps.MatchSnapshot(t, out)
		})
	}
}
