package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// NewOwnerCommand creates the owner command group.
func NewOwnerCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "owner",
		Short: "Manage the people recipes are attributed to",
	}

	var photoRef string
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app) error {
				o, err := a.repo.CreateOwner(ctx, args[0], photoRef)
				if err != nil {
					return err
				}
				return a.out.Success(result{Action: "created", Kind: "owner", ID: o.ID, Entity: o})
			})
		},
	}
	create.Flags().StringVar(&photoRef, "photo", "", "photo blob reference")

	list := &cobra.Command{
		Use:   "list",
		Short: "List owners by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app) error {
				owners, err := a.repo.Owners(ctx)
				if err != nil {
					return err
				}
				return a.out.Success(ownerList{Owners: owners})
			})
		},
	}

	cmd.AddCommand(create, list)
	return cmd
}
