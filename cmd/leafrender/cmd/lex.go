package cmd

import (
	"fmt"
	"os"

	"github.com/leafkit/leaf"
	"github.com/spf13/cobra"
)

var (
	evalExpr string
	showPos  bool
)

var lexCmd = &cobra.Command{
	Use:   "lex [file]",
	Short: "Tokenize a template file or expression",
	Long: `Tokenize a leaf template and print the resulting token stream.

Examples:
  leafrender lex hello.leaf
  leafrender lex -e "Hello, #(name)!"
  leafrender lex --show-pos hello.leaf`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLex,
}

func init() {
	rootCmd.AddCommand(lexCmd)
	lexCmd.Flags().StringVarP(&evalExpr, "eval", "e", "", "tokenize inline text instead of reading from a file")
	lexCmd.Flags().BoolVar(&showPos, "show-pos", false, "show token positions (line:col)")
}

func runLex(cmd *cobra.Command, args []string) error {
	input, name, err := readInput(args)
	if err != nil {
		return err
	}

	cfg, err := loadEngineConfig()
	if err != nil {
		return err
	}
	registry := cfg.BuildRegistry()

	tokens, err := leaf.Lex(name, input, registry, cfg.TagIndicatorRune())
	if err != nil {
		return err
	}

	for _, tok := range tokens {
		if showPos {
			fmt.Println(tok.String())
		} else {
			fmt.Println(tok.Kind)
		}
	}
	return nil
}

func readInput(args []string) (input, name string, err error) {
	if evalExpr != "" {
		return evalExpr, "<eval>", nil
	}
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", "", fmt.Errorf("reading %s: %w", args[0], err)
		}
		return string(data), args[0], nil
	}
	return "", "", fmt.Errorf("provide a file path or -e for inline text")
}
