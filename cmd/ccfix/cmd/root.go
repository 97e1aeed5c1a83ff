package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/cddgo/ccrefactor/internal/telemetry"
)

var (
	// Version information (set by -ldflags at build time).
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	flagColor   string // "auto", "always", "never"
	flagQuiet   bool
	flagVerbose bool
	flagConfig  string
)

var rootCmd = &cobra.Command{
	Use:   "ccfix",
	Short: "Allocation-safety refactoring toolkit for C sources",
	Long: `ccfix rewrites C source files so every fallible allocation
(malloc, calloc, realloc, strdup, asprintf, and friends) is checked for
failure. void- and pointer-returning functions that perform such an
allocation are converted to int-returning functions with an explicit
error path, and every call site is updated to propagate that error.`,
	Version:           Version,
	PersistentPreRunE: initTelemetry,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	rootCmd.PersistentFlags().StringVar(&flagColor, "color", "auto", "colorize diagnostics: auto, always, never")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress progress logging")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "emit debug-level trace logging")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to a ccfix.toml allocator-registry overlay")
}

// initTelemetry installs the process-wide logger at the level implied
// by --quiet/-v before any subcommand runs.
func initTelemetry(cmd *cobra.Command, args []string) error {
	lvl := telemetry.LevelNormal
	switch {
	case flagQuiet:
		lvl = telemetry.LevelQuiet
	case flagVerbose:
		lvl = telemetry.LevelVerbose
	}
	telemetry.InitLogger(telemetry.New(lvl))
	return nil
}

// colorEnabled resolves the --color flag. Whether stdout is a terminal
// is not checked, so "auto" behaves like "always"; only "never"
// disables color.
func colorEnabled() bool {
	return flagColor != "never"
}

func logger() arbor.ILogger {
	return telemetry.GetLogger()
}
