package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/editkit/hilite/pkg/diagnostic"
	"github.com/editkit/hilite/pkg/loader"
)

// newCheckCommand validates grammars: load, resolve includes, compile. Any
// failure is emitted as editor-style JSON diagnostics on stdout.
func newCheckCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check <grammar>...",
		Short: "Validate grammar files and print diagnostics",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := flags.registry()
			store := loader.NewStore(reg)

			failed := false
			for _, name := range args {
				if err := checkGrammar(cmd, store, reg, name); err != nil {
					failed = true
				}
			}
			if failed {
				return errors.New("grammar validation failed")
			}
			return nil
		},
	}
}

func checkGrammar(cmd *cobra.Command, store *loader.Store, reg loader.Registry, name string) error {
	ctx := cmd.Context()
	_, err := store.Load(ctx, name)
	if err == nil {
		zerolog.Ctx(ctx).Info().Str("grammar", name).Msg("grammar ok")
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", name)
		return nil
	}

	diags := diagnostic.FromError(err, fragmentSource(ctx, reg))
	out, ferr := diagnostic.JSONFormatter{}.Format(diags)
	if ferr != nil {
		return errors.Errorf("formatting diagnostics for %s: %w", name, ferr)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", name, out)
	return err
}

func fragmentSource(ctx context.Context, reg loader.Registry) diagnostic.SourceFunc {
	return func(fragment string) (string, bool) {
		src, err := reg.Source(ctx, fragment)
		if err != nil {
			return "", false
		}
		return string(src), true
	}
}
