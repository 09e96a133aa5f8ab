package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tomioM/recipe-voyage-sub000/internal/model"
	"github.com/tomioM/recipe-voyage-sub000/internal/repository"
)

// NewIngredientCommand creates the ingredient command group.
func NewIngredientCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingredient",
		Short: "Add and edit ingredients",
	}

	var quantity string
	add := &cobra.Command{
		Use:     "add <recipe-id> <name>",
		Short:   "Append an ingredient",
		Example: `  voyage ingredient add 0192... flour --quantity "500 g"`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app) error {
				in, err := a.repo.AddIngredient(ctx, args[0], args[1], quantity)
				if err != nil {
					return err
				}
				return a.out.Success(result{Action: "added", Kind: "ingredient", ID: in.ID, Entity: in})
			})
		},
	}
	add.Flags().StringVar(&quantity, "quantity", "", "free-text quantity")

	var newQuantity string
	update := &cobra.Command{
		Use:   "update <ingredient-id> <name>",
		Short: "Replace an ingredient's name and quantity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app) error {
				in, err := a.repo.UpdateIngredient(ctx, args[0], args[1], newQuantity)
				if err != nil {
					return err
				}
				return a.out.Success(result{Action: "updated", Kind: "ingredient", ID: in.ID, Entity: in})
			})
		},
	}
	update.Flags().StringVar(&newQuantity, "quantity", "", "free-text quantity")

	cmd.AddCommand(add, update)
	return cmd
}

// NewStepCommand creates the step command group.
func NewStepCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "step",
		Short: "Add and edit instructions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <recipe-id> <instruction>",
		Short: "Append a step",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app) error {
				s, err := a.repo.AddStep(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return a.out.Success(result{Action: "added", Kind: "step", ID: s.ID, Entity: s})
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "update <step-id> <instruction>",
		Short: "Replace a step's instruction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app) error {
				s, err := a.repo.UpdateStep(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return a.out.Success(result{Action: "updated", Kind: "step", ID: s.ID, Entity: s})
			})
		},
	})
	return cmd
}

type ancestryFlags struct {
	Country    string
	Region     string
	RoughDate  string
	Note       string
	Generation int
}

func (f *ancestryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Country, "country", "", "country (required)")
	cmd.Flags().StringVar(&f.Region, "region", "", "region or town")
	cmd.Flags().StringVar(&f.RoughDate, "date", "", "rough date, free text")
	cmd.Flags().StringVar(&f.Note, "note", "", "note")
	cmd.Flags().IntVar(&f.Generation, "generation", 0, "generations back from the owner (0-99)")
}

func (f *ancestryFlags) input(cmd *cobra.Command) repository.AncestryInput {
	in := repository.AncestryInput{
		Country:   f.Country,
		Region:    f.Region,
		RoughDate: f.RoughDate,
		Note:      f.Note,
	}
	if cmd.Flags().Changed("generation") {
		gen := f.Generation
		in.Generation = &gen
	}
	return in
}

// NewAncestryCommand creates the ancestry command group.
func NewAncestryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ancestry",
		Short: "Record where a recipe has travelled",
	}

	addFlags := &ancestryFlags{}
	add := &cobra.Command{
		Use:     "add <recipe-id> --country <country>",
		Short:   "Append an ancestry step",
		Example: `  voyage ancestry add 0192... --country Italy --region Liguria --date 1920s --generation 3`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app) error {
				s, err := a.repo.AddAncestryStep(ctx, args[0], addFlags.input(cmd))
				if err != nil {
					return err
				}
				return a.out.Success(result{Action: "added", Kind: "ancestry", ID: s.ID, Entity: s})
			})
		},
	}
	addFlags.register(add)

	updateFlags := &ancestryFlags{}
	update := &cobra.Command{
		Use:   "update <ancestry-id> --country <country>",
		Short: "Replace every field of an ancestry step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app) error {
				s, err := a.repo.UpdateAncestryStep(ctx, args[0], updateFlags.input(cmd))
				if err != nil {
					return err
				}
				return a.out.Success(result{Action: "updated", Kind: "ancestry", ID: s.ID, Entity: s})
			})
		},
	}
	updateFlags.register(update)

	cmd.AddCommand(add, update)
	return cmd
}

// NewPhotoCommand creates the photo command group.
func NewPhotoCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "photo",
		Short: "Attach photos",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <recipe-id> <image-file>",
		Short: "Store an image and append it to the recipe's photos",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app) error {
				data, err := os.ReadFile(args[1])
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read image", err)
				}
				p, err := a.repo.AddPhoto(ctx, args[0], data)
				if err != nil {
					return err
				}
				return a.out.Success(result{Action: "added", Kind: "photo", ID: p.ID, Entity: p})
			})
		},
	})
	return cmd
}

// NewChildCommand creates the commands shared by every ordered child kind.
func NewChildCommand(rootOpts *RootOptions) *cobra.Command {
	kinds := fmt.Sprint(model.ChildKinds)
	cmd := &cobra.Command{
		Use:   "child",
		Short: "Reorder or remove ingredients, steps, ancestry and photos",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "reorder <recipe-id> <kind> <from> <to>",
		Short: "Move one child to a new 0-based position; kind is one of " + kinds,
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app) error {
				kind, err := model.ParseChildKind(args[1])
				if err != nil {
					return err
				}
				from, err := parseIndex("from", args[2])
				if err != nil {
					return err
				}
				to, err := parseIndex("to", args[3])
				if err != nil {
					return err
				}
				if err := a.repo.ReorderChildren(ctx, args[0], kind, from, to); err != nil {
					return err
				}
				agg, err := a.repo.Aggregate(ctx, args[0])
				if err != nil {
					return err
				}
				return a.out.Success(recipeDetail{agg})
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove <kind> <child-id>",
		Short: "Remove one child; kind is one of " + kinds,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app) error {
				kind, err := model.ParseChildKind(args[0])
				if err != nil {
					return err
				}
				if err := a.repo.RemoveChild(ctx, kind, args[1]); err != nil {
					return err
				}
				return a.out.Success(result{Action: "removed", Kind: string(kind), ID: args[1]})
			})
		},
	})
	return cmd
}
