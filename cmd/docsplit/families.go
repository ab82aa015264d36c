package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docsplit/internal/split"
)

var familiesCmd = &cobra.Command{
	Use:   "families",
	Short: "List the known document families",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, name := range e.families.Names() {
			fam, _ := e.families.Get(name)
			footer := dimStyle.Render("no footer")
			if fam.Footer != nil {
				footer = successStyle.Render("footer")
			}
			maxPages := fam.MaxPages
			if maxPages == 0 {
				maxPages = split.DefaultMaxPages
			}
			fmt.Fprintf(w, "%s  %s  %s %d  %s\n",
				titleStyle.Render(name),
				strings.Join(fam.Types, " > "),
				dimStyle.Render("max pages"), maxPages,
				footer)
			if fam.Description != "" {
				maxPages := fam.MaxPages
			if maxPages == 0 {
				maxPages = split.DefaultMaxPages
			}
			fmt.Fprintf(w, "  %s\n", dimStyle.Render(fam.Description))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(familiesCmd)
}
