package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cddgo/ccrefactor/internal/lexer"
	"github.com/cddgo/ccrefactor/internal/token"
)

var lexCmd = &cobra.Command{
	Use:   "lex <file>",
	Short: "Tokenize a C file and print the resulting tokens",
	Long: `lex runs only the lexer (translation phases 1-3: trigraphs,
line-splicing, tokenization) and prints one line per non-whitespace
token: its kind, byte offset, length, and source text. Useful for
debugging the lexer.`,
	Args: cobra.ExactArgs(1),
	RunE: runLex,
}

func init() {
	rootCmd.AddCommand(lexCmd)
}

func runLex(cmd *cobra.Command, args []string) error {
	src, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	toks := lexer.Lex(src)
	for _, tok := range toks {
		if tok.Kind == token.WHITESPACE {
			continue
		}
		fmt.Printf("[%-12s] @%d+%d %q\n", tok.Kind, tok.Offset, tok.Length, tok.Text(src))
	}
	return nil
}
