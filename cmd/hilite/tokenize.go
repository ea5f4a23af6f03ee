package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/editkit/hilite/pkg/tokenize"
)

// newTokenizeCommand dumps the span classification of a file as JSON, one
// object per span, covering the whole input including plain gaps.
func newTokenizeCommand(flags *rootFlags) *cobra.Command {
	var withText bool

	cmd := &cobra.Command{
		Use:   "tokenize <grammar> <file>",
		Short: "Classify a file's text and print the spans as JSON",
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

			spans := tokenize.Spans(g, text)
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, span := range spans {
				if !withText {
					if err := enc.Encode(span); err != nil {
						return err
					}
					continue
				}
				if err := enc.Encode(struct {
					tokenize.Span
					Text string `json:"text"`
				}{span, span.Text(text)}); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "%d spans\n", len(spans))
			return nil
		},
	}

	cmd.Flags().BoolVar(&withText, "with-text", false, "include each span's text in the output")
	return cmd
}
