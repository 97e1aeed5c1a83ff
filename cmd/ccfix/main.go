// Command ccfix rewrites C source to make every fallible allocation
// checked, turning void/pointer-returning functions into int-returning
// ones with an explicit error path (spec.md's transform_source).
package main

import (
	"fmt"
	"os"

	"github.com/cddgo/ccrefactor/cmd/ccfix/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
