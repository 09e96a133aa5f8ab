package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tomioM/recipe-voyage-sub000/internal/audio"
	"github.com/tomioM/recipe-voyage-sub000/internal/repository"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	DataDir    string
	Database   string

	// Clock, IDGenerator and AudioOutput override the production
	// implementations (for testing). Stdin feeds audio recording; nil
	// selects the command's input stream.
	Clock       repository.Clock
	IDGenerator repository.IDGenerator
	AudioOutput audio.Output
	Stdin       io.Reader
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the voyage CLI.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWithOptions(&RootOptions{})
}

// NewRootCommandWithOptions creates the root command around opts, which
// receives the parsed global flags.
func NewRootCommandWithOptions(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voyage",
		Short: "Recipe Voyage - a family recipe collection",
		Long: `A family recipe collection kept on this machine.

Recipes live either in the library, in an order you choose, or in the
inbox, newest first, until you move them into the library. Each recipe
carries ordered ingredients, steps, ancestry and photos, plus recorded
audio notes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file (default $VOYAGE_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "directory holding the database, audio and photos")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (default <data-dir>/voyage.db)")

	// Add subcommands
	cmd.AddCommand(NewRecipeCommand(opts))
	cmd.AddCommand(NewLibraryCommand(opts))
	cmd.AddCommand(NewInboxCommand(opts))
	cmd.AddCommand(NewIngredientCommand(opts))
	cmd.AddCommand(NewStepCommand(opts))
	cmd.AddCommand(NewAncestryCommand(opts))
	cmd.AddCommand(NewPhotoCommand(opts))
	cmd.AddCommand(NewChildCommand(opts))
	cmd.AddCommand(NewAudioCommand(opts))
	cmd.AddCommand(NewOwnerCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewAutoInboxCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
