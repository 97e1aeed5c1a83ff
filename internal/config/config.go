// Package config loads the optional project-local allocator overlay the
// CLI accepts via --config (SPEC_FULL.md's "Configuration" section): a
// TOML file that extends internal/alloc.DefaultRegistry with a project's
// own fallible-allocation wrappers without requiring a recompile.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/cddgo/ccrefactor/internal/alloc"
)

// Overlay is the decoded shape of a ccfix.toml file.
type Overlay struct {
	Allocator []AllocatorEntry `toml:"allocator"`
}

// AllocatorEntry mirrors alloc.Spec in TOML's vocabulary; Shape and Check
// are decoded from their textual spellings by Registry.
type AllocatorEntry struct {
	Name     string `toml:"name"`
	Shape    string `toml:"shape"`
	Check    string `toml:"check"`
	ArgIndex int    `toml:"arg_index"`
}

// Load decodes the TOML file at path into an Overlay.
func Load(path string) (Overlay, error) {
	var o Overlay
	if _, err := toml.DecodeFile(path, &o); err != nil {
		return Overlay{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return o, nil
}

// Registry builds the effective allocator table: alloc.DefaultRegistry
// plus every entry the overlay adds, later entries overriding earlier
// ones of the same name (so a project can shadow a built-in spelling).
func (o Overlay) Registry() ([]alloc.Spec, error) {
	out := append([]alloc.Spec(nil), alloc.DefaultRegistry...)
	for _, e := range o.Allocator {
		spec, err := e.toSpec()
		if err != nil {
			return nil, err
		}
		replaced := false
		for i, existing := range out {
			if existing.Name == spec.Name {
				out[i] = spec
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, spec)
		}
	}
	return out, nil
}

func (e AllocatorEntry) toSpec() (alloc.Spec, error) {
	spec := alloc.Spec{Name: e.Name, PtrArgIndex: e.ArgIndex}

	switch e.Shape {
	case "returns-pointer", "":
		spec.Style = alloc.StyleReturnPtr
	case "writes-through-argument":
		spec.Style = alloc.StyleArgPtr
	default:
		return alloc.Spec{}, fmt.Errorf("config: allocator %q: unknown shape %q", e.Name, e.Shape)
	}

	switch e.Check {
	case "pointer-null", "":
		spec.Check = alloc.CheckPtrNull
	case "int-negative":
		spec.Check = alloc.CheckIntNegative
	case "int-nonzero":
		spec.Check = alloc.CheckIntNonzero
	default:
		return alloc.Spec{}, fmt.Errorf("config: allocator %q: unknown check style %q", e.Name, e.Check)
	}

	return spec, nil
}
