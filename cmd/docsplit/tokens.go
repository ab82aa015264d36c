package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docsplit/internal/layout"
	"github.com/dgallion1/docsplit/internal/tokenstream"
)

var tokensOpts struct {
	family string
	clean  bool
}

var tokensCmd = &cobra.Command{
	Use:   "tokens FILE",
	Short: "Print the layout token stream of a document",
	Long: `Tokens renders FILE with the family's layout options and prints one token
per line. The output can be saved as a .tokens file and split directly, which
is handy when writing a grammar for a new family.`,
	Args: cobra.ExactArgs(1),
	RunE: runTokens,
}

func init() {
	tokensCmd.Flags().StringVarP(&tokensOpts.family, "family", "f", "", "Document family")
	tokensCmd.Flags().BoolVar(&tokensOpts.clean, "clean", false, "Remove running footers first")
	tokensCmd.MarkFlagRequired("family")
	rootCmd.AddCommand(tokensCmd)
}

func runTokens(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	fam, ok := e.families.Get(tokensOpts.family)
	if !ok {
		return fmt.Errorf("unknown family %q (have %v)", tokensOpts.family, e.families.Names())
	}
	path := args[0]
	producer, err := layout.ForFile(path, fam.Layout)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	doc, err := producer.Parse(f, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	tokens := doc.Tokens
	if tokensOpts.clean && fam.Footer != nil {
		var removed int
		tokens, removed = fam.Footer.Clean(tokens)
		e.log.Info("footers removed", "count", removed)
	}
	return tokenstream.Encode(cmd.OutOrStdout(), tokens)
}
