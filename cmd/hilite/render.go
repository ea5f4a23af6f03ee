package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/editkit/hilite/pkg/tokenize"
)

// newRenderCommand previews a grammar in the terminal: tokenize a file and
// print it with ANSI styles per category. A convenience for grammar authors;
// the engine itself never renders.
func newRenderCommand(flags *rootFlags) *cobra.Command {
	var themePath string

	cmd := &cobra.Command{
		Use:   "render <grammar> <file>",
		Short: "Print a file with ANSI colors driven by a grammar",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := flags.store().Load(cmd.Context(), args[0])
			if err != nil {
				return errors.Errorf("loading grammar %q: %w", args[0], err)
			}
			text, err := os.ReadFile(args[1])
			if err != nil {
				return errors.Errorf("reading %s: %w", args[1], err)
			}

			theme := defaultTheme()
			if themePath != "" {
				if theme, err = loadTheme(themePath); err != nil {
					return err
				}
			}

			sc := tokenize.New(g, text)
			for {
				span, ok := sc.Next()
				if !ok {
					break
				}
				fmt.Fprint(cmd.OutOrStdout(), theme.Style(span.Category).Render(span.Text(text)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&themePath, "theme", "", "YAML theme file mapping categories to styles")
	return cmd
}
