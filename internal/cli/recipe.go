package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tomioM/recipe-voyage-sub000/internal/model"
	"github.com/tomioM/recipe-voyage-sub000/internal/repository"
)

// recipeFlags holds the editable recipe fields shared by create, update
// and inbox add.
type recipeFlags struct {
	Title       string
	Description string
	Owner       string
	Font        string
	Primary     string
	Secondary   string
	Latitude    float64
	Longitude   float64
	Place       string
	NoLocation  bool
}

func (f *recipeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Title, "title", "", "recipe title")
	cmd.Flags().StringVar(&f.Description, "description", "", "free-text description")
	cmd.Flags().StringVar(&f.Owner, "owner", "", "owner id (empty clears it)")
	cmd.Flags().StringVar(&f.Font, "font", "", "card font (serif|sans|rounded|mono|handwritten)")
	cmd.Flags().StringVar(&f.Primary, "primary", "", "primary color as #RGB or #RRGGBB")
	cmd.Flags().StringVar(&f.Secondary, "secondary", "", "secondary color as #RGB or #RRGGBB")
	cmd.Flags().Float64Var(&f.Latitude, "lat", 0, "origin latitude")
	cmd.Flags().Float64Var(&f.Longitude, "lng", 0, "origin longitude")
	cmd.Flags().StringVar(&f.Place, "place", "", "origin place name")
	cmd.Flags().BoolVar(&f.NoLocation, "no-location", false, "clear the origin location")
}

// apply overlays the flags the user set on base.
func (f *recipeFlags) apply(cmd *cobra.Command, base repository.RecipeInput) repository.RecipeInput {
	in := base
	changed := cmd.Flags().Changed
	if changed("title") {
		in.Title = f.Title
	}
	if changed("description") {
		in.Description = f.Description
	}
	if changed("owner") {
		owner := f.Owner
		in.OwnerID = &owner
	}
	if changed("font") {
		in.Font = f.Font
	}
	if changed("primary") {
		in.PrimaryColor = f.Primary
	}
	if changed("secondary") {
		in.SecondaryColor = f.Secondary
	}

	switch {
	case f.NoLocation:
		in.Location = nil
	case changed("lat") || changed("lng") || changed("place"):
		loc := model.Location{}
		if in.Location != nil {
			loc = *in.Location
		}
		if changed("lat") {
			loc.Latitude = f.Latitude
		}
		if changed("lng") {
			loc.Longitude = f.Longitude
		}
		if changed("place") {
			loc.PlaceName = f.Place
		}
		in.Location = &loc
	}
	return in
}

// inputFrom converts a stored recipe back into editable input.
func inputFrom(r model.Recipe) repository.RecipeInput {
	return repository.RecipeInput{
		Title:          r.Title,
		Description:    r.Description,
		OwnerID:        r.OwnerID,
		Font:           string(r.Style.Font),
		PrimaryColor:   string(r.Style.Primary),
		SecondaryColor: string(r.Style.Secondary),
		Location:       r.Location,
	}
}

// NewRecipeCommand creates the recipe command group.
func NewRecipeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recipe",
		Short: "Create, edit, show and delete recipes",
	}
	cmd.AddCommand(newRecipeCreateCommand(rootOpts))
	cmd.AddCommand(newRecipeUpdateCommand(rootOpts))
	cmd.AddCommand(newRecipeShowCommand(rootOpts))
	cmd.AddCommand(newRecipeDeleteCommand(rootOpts))
	return cmd
}

func newRecipeCreateCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &recipeFlags{}
	cmd := &cobra.Command{
		Use:   "create --title <title>",
		Short: "Add a recipe to the end of the library",
		Example: `  voyage recipe create --title "Nonna's focaccia" --font rounded
  voyage recipe create --title Pesto --lat 44.41 --lng 8.93 --place Genova`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app) error {
				rec, err := a.repo.CreateRecipe(ctx, flags.apply(cmd, repository.RecipeInput{}))
				if err != nil {
					return err
				}
				return a.out.Success(result{Action: "created", Kind: "recipe", ID: rec.ID, Entity: rec})
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newRecipeUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &recipeFlags{}
	cmd := &cobra.Command{
		Use:   "update <recipe-id>",
		Short: "Change the fields given as flags, keeping the rest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app) error {
				agg, err := a.repo.Aggregate(ctx, args[0])
				if err != nil {
					return err
				}
				rec, err := a.repo.UpdateRecipe(ctx, args[0], flags.apply(cmd, inputFrom(agg.Recipe)))
				if err != nil {
					return err
				}
				return a.out.Success(result{Action: "updated", Kind: "recipe", ID: rec.ID, Entity: rec})
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newRecipeShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <recipe-id>",
		Short: "Show a recipe with its ingredients, steps, ancestry, photos and audio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app) error {
				agg, err := a.repo.Aggregate(ctx, args[0])
				if err != nil {
					return err
				}
				return a.out.Success(recipeDetail{agg})
			})
		},
	}
}

func newRecipeDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <recipe-id>",
		Short: "Delete a recipe and everything it owns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.repo.DeleteRecipe(ctx, args[0]); err != nil {
					return err
				}
				return a.out.Success(result{Action: "deleted", Kind: "recipe", ID: args[0]})
			})
		},
	}
}

// NewLibraryCommand creates the library command group.
func NewLibraryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "library",
		Short: "List and reorder the library",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List library recipes in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app) error {
				snap := a.repo.Snapshot()
				return a.out.Success(recipeList{View: "library", Version: snap.Version, Recipes: snap.Library})
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reorder <from> <to>",
		Short: "Move the recipe at position from to position to (0-based)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app) error {
				from, err := parseIndex("from", args[0])
				if err != nil {
					return err
				}
				to, err := parseIndex("to", args[1])
				if err != nil {
					return err
				}
				if err := a.repo.ReorderLibrary(ctx, from, to); err != nil {
					return err
				}
				snap := a.repo.Snapshot()
				return a.out.Success(recipeList{View: "library", Version: snap.Version, Recipes: snap.Library})
			})
		},
	})
	return cmd
}

// NewInboxCommand creates the inbox command group.
func NewInboxCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Receive recipes and move them into the library",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List inbox recipes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app) error {
				snap := a.repo.Snapshot()
				return a.out.Success(recipeList{View: "inbox", Version: snap.Version, Recipes: snap.Inbox})
			})
		},
	})
	cmd.AddCommand(newInboxAddCommand(rootOpts))
	cmd.AddCommand(newInboxMoveCommand(rootOpts))
	cmd.AddCommand(newInboxSendCommand(rootOpts))
	return cmd
}

func newInboxAddCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &recipeFlags{}
	var sender string
	cmd := &cobra.Command{
		Use:   "add --title <title> --sender <name>",
		Short: "Receive a new recipe into the inbox",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app) error {
				rec, err := a.repo.CreateInboxRecipe(ctx, flags.apply(cmd, repository.RecipeInput{}), sender)
				if err != nil {
					return err
				}
				return a.out.Success(result{Action: "received", Kind: "recipe", ID: rec.ID, Entity: rec})
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&sender, "sender", "", "who sent the recipe")
	return cmd
}

func newInboxMoveCommand(rootOpts *RootOptions) *cobra.Command {
	var at int
	cmd := &cobra.Command{
		Use:   "move <recipe-id>",
		Short: "Move an inbox recipe into the library",
		Long: `Move an inbox recipe into the library.

Without --at the recipe is appended. With --at it is inserted at that
0-based position and the recipes from there on shift down by one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app) error {
				var pos *int
				if cmd.Flags().Changed("at") {
					pos = &at
				}
				rec, err := a.repo.MoveFromInboxToLibrary(ctx, args[0], pos)
				if err != nil {
					return err
				}
				return a.out.Success(result{Action: "moved", Kind: "recipe", ID: rec.ID, Entity: rec})
			})
		},
	}
	cmd.Flags().IntVar(&at, "at", 0, "library position to insert at")
	return cmd
}

func newInboxSendCommand(rootOpts *RootOptions) *cobra.Command {
	var sender string
	cmd := &cobra.Command{
		Use:   "send <recipe-id> --sender <name>",
		Short: "Send a library recipe back to the inbox",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.repo.SendToInbox(ctx, args[0], sender); err != nil {
					return err
				}
				return a.out.Success(result{Action: "sent", Kind: "recipe", ID: args[0]})
			})
		},
	}
	cmd.Flags().StringVar(&sender, "sender", "", "who the recipe appears to come from")
	return cmd
}
