package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cddgo/ccrefactor/internal/orchestrator"
)

var (
	flagOutput string
	flagSuffix string
	flagForce  bool
)

var fixCmd = &cobra.Command{
	Use:   "fix <file>...",
	Short: "Rewrite C sources to check every fallible allocation",
	Long: `fix runs the full transform pipeline (lex, CST, allocation
analysis, signature and body rewriting) over each file and writes the
result back: in place by default, to --output when exactly one file is
given, or alongside the original with --suffix appended for a batch.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFix,
}

func init() {
	rootCmd.AddCommand(fixCmd)

	fixCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "write the single input file's result here instead of in place")
	fixCmd.Flags().StringVar(&flagSuffix, "suffix", "", "write each result to <file><suffix> instead of in place")
	fixCmd.Flags().BoolVar(&flagForce, "force", false, "overwrite even when the transform reports no change")
}

func runFix(cmd *cobra.Command, args []string) error {
	if flagOutput != "" && len(args) != 1 {
		return fmt.Errorf("--output requires exactly one input file")
	}

	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	registry, err := resolveRegistry()
	if err != nil {
		return err
	}

	log := logger()

	for _, path := range files {
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		out, err := orchestrator.Transform(src, registry)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		unchanged := bytes.Equal(src, out)
		if unchanged && !flagForce {
			log.Info().Str("file", path).Msg("no change")
			continue
		}

		dest := path
		switch {
		case flagOutput != "":
			dest = flagOutput
		case flagSuffix != "":
			dest = path + flagSuffix
		}

		info, err := os.Stat(path)
		mode := os.FileMode(0o644)
		if err == nil {
			mode = info.Mode()
		}
		if err := os.WriteFile(dest, out, mode); err != nil {
			return err
		}
		log.Info().Str("file", path).Str("to", dest).Msg("rewrote")
	}

	return nil
}
