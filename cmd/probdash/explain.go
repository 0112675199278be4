package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coffersTech/probdash/internal/server"
)

func newExplainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain <query...>",
		Short: "Show how a search query is tokenized and parsed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := server.Explain(strings.Join(args, " "))
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tokens: %s\n", strings.Join(e.Tokens, " "))
			if e.AST == nil {
				fmt.Fprintln(out, "ast:    (matches everything)")
				return nil
			}
			fmt.Fprintf(out, "ast:    %s\n", *e.AST)
			return nil
		},
	}
}
