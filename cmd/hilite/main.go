// Command hilite loads declarative grammar files and tokenizes source text
// with them: a development harness for the grammar engine an editor embeds.
package main

import (
	"context"
	"os"
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/editkit/hilite/pkg/loader"
)

type rootFlags struct {
	logLevel   string
	grammarDir string
}

func main() {
	if err := run(); err != nil {
		println(err.Error())
		os.Exit(1)
	}
}

func run() error {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "hilite",
		Short: "A grammar-driven syntax tokenizer for editor highlighting",
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		rootCmd.Version = "unknown"
	} else {
		rootCmd.Version = info.Main.Version
	}

	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "zerolog level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flags.grammarDir, "grammar-dir", ".", "directory containing *.lang grammar files")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level, err := zerolog.ParseLevel(flags.logLevel)
		if err != nil {
			return errors.Errorf("parsing log level %q: %w", flags.logLevel, err)
		}
		logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(level).
			With().
			Timestamp().
			Str("run_id", uuid.NewString()).
			Logger()
		cmd.SetContext(logger.WithContext(cmd.Context()))
		return nil
	}

	rootCmd.AddCommand(newCheckCommand(flags))
	rootCmd.AddCommand(newTokenizeCommand(flags))
	rootCmd.AddCommand(newRenderCommand(flags))
	rootCmd.AddCommand(newListCommand(flags))

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		return errors.Errorf("failed to execute command: %w", err)
	}

	return nil
}

// registry builds the grammar registry the subcommands share.
func (f *rootFlags) registry() loader.Registry {
	return loader.NewFSRegistry(afero.NewOsFs(), f.grammarDir)
}

func (f *rootFlags) store() *loader.Store {
	return loader.NewStore(f.registry())
}
