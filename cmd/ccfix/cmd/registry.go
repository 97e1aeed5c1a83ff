package cmd

import (
	"github.com/cddgo/ccrefactor/internal/alloc"
	"github.com/cddgo/ccrefactor/internal/config"
)

// resolveRegistry returns alloc.DefaultRegistry, overlaid with
// --config's TOML file when one was given.
func resolveRegistry() ([]alloc.Spec, error) {
	if flagConfig == "" {
		return alloc.DefaultRegistry, nil
	}
	overlay, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	return overlay.Registry()
}
