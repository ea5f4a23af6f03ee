package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// newListCommand lists the grammars a registry directory serves, with their
// selection metadata.
func newListCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List grammars found in the grammar directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := flags.store()
			names, err := store.Names(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				meta, err := store.Metadata(cmd.Context(), name)
				if err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t(unparseable: %v)\n", name, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n",
					name, meta.Title, strings.Join(meta.Extensions, ","))
			}
			return nil
		},
	}
}
