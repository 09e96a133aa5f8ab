package cli

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomioM/recipe-voyage-sub000/internal/bundle"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Output   string
	NoPhotos bool
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the whole collection as a YAML bundle",
		Long: `Write the whole collection as a YAML bundle.

The bundle lists owners, then the library in order, then the inbox. Photos
are embedded unless --no-photos is given. Audio notes are not exported.

Example:
  voyage export -o family.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				var blobs bundle.BlobReader
				if !opts.NoPhotos {
					blobs = a.blobs
				}
				b, err := bundle.Export(ctx, a.repo, blobs, time.Now())
				if err != nil {
					return WrapExitError(ExitCommandError, "export failed", err)
				}
				data, err := bundle.Marshal(b)
				if err != nil {
					return WrapExitError(ExitCommandError, "export failed", err)
				}

				if opts.Output == "" || opts.Output == "-" {
					_, err := cmd.OutOrStdout().Write(data)
					return err
				}
				if err := os.WriteFile(opts.Output, data, 0o644); err != nil {
					return WrapExitError(ExitCommandError, "failed to write bundle", err)
				}
				return a.out.Success(result{Action: "exported", Kind: "bundle", ID: opts.Output,
					Entity: map[string]int{"owners": len(b.Owners), "recipes": len(b.Recipes)}})
			})
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&opts.NoPhotos, "no-photos", false, "leave photos out of the bundle")

	return cmd
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <bundle.yaml>",
		Short: "Add every owner and recipe from a bundle",
		Long: `Add every owner and recipe from a bundle.

The bundle is checked against the schema first; nothing is written if it
does not match. Library recipes are appended after the existing ones.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app) error {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read bundle", err)
				}
				b, err := bundle.Parse(data)
				if err != nil {
					return WrapExitError(ExitFailure, "invalid bundle", err)
				}
				res, err := bundle.Apply(ctx, a.repo, b)
				if err != nil {
					return err
				}
				return a.out.Success(result{Action: "imported", Kind: "bundle", ID: args[0], Entity: res})
			})
		},
	}
}
