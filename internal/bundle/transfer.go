package bundle

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/tomioM/recipe-voyage-sub000/internal/model"
	"github.com/tomioM/recipe-voyage-sub000/internal/repository"
)

// Source is the read side a bundle is exported from.
type Source interface {
	Snapshot() *repository.Snapshot
	Aggregate(ctx context.Context, id string) (model.Aggregate, error)
	Owners(ctx context.Context) ([]model.Owner, error)
}

// Target is the write side a bundle is applied to.
type Target interface {
	CreateOwner(ctx context.Context, name, photoRef string) (model.Owner, error)
	CreateRecipe(ctx context.Context, in repository.RecipeInput) (model.Recipe, error)
	CreateInboxRecipe(ctx context.Context, in repository.RecipeInput, sender string) (model.Recipe, error)
	AddIngredient(ctx context.Context, recipeID, name, quantity string) (model.Ingredient, error)
	AddStep(ctx context.Context, recipeID, instruction string) (model.Step, error)
	AddAncestryStep(ctx context.Context, recipeID string, in repository.AncestryInput) (model.AncestryStep, error)
	AddPhoto(ctx context.Context, recipeID string, data []byte) (model.Photo, error)
}

// BlobReader resolves photo references during export.
type BlobReader interface {
	Get(ctx context.Context, ref string) ([]byte, error)
}

// Export captures the current snapshot. Photos are included only when
// blobs is non-nil.
func Export(ctx context.Context, src Source, blobs BlobReader, now time.Time) (*Bundle, error) {
	owners, err := src.Owners(ctx)
	if err != nil {
		return nil, fmt.Errorf("export owners: %w", err)
	}
	b := &Bundle{
		Version:    Version,
		ExportedAt: now.UTC().Format(time.RFC3339),
		Owners:     make([]Owner, 0, len(owners)),
		Recipes:    []Recipe{},
	}
	for _, o := range owners {
		b.Owners = append(b.Owners, Owner{Key: o.ID, Name: o.Name, PhotoRef: o.PhotoRef})
	}

	snap := src.Snapshot()
	ids := snap.LibraryIDs()
	inbox := snap.InboxIDs()
	for i := len(inbox) - 1; i >= 0; i-- {
		ids = append(ids, inbox[i])
	}

	for _, id := range ids {
		agg, err := src.Aggregate(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("export recipe %s: %w", id, err)
		}
		r, err := exportRecipe(ctx, agg, blobs)
		if err != nil {
			return nil, err
		}
		b.Recipes = append(b.Recipes, r)
	}
	return b, nil
}

func exportRecipe(ctx context.Context, agg model.Aggregate, blobs BlobReader) (Recipe, error) {
	rec := agg.Recipe
	r := Recipe{
		Title:       rec.Title,
		Description: rec.Description,
		Style: &Style{
			Font:      string(rec.Style.Font),
			Primary:   string(rec.Style.Primary),
			Secondary: string(rec.Style.Secondary),
		},
		Location: rec.Location,
		Inbox:    rec.InInbox,
		Sender:   rec.SenderName,
	}
	if rec.OwnerID != nil {
		r.Owner = *rec.OwnerID
	}
	for _, in := range agg.Ingredients {
		r.Ingredients = append(r.Ingredients, Ingredient{Name: in.Name, Quantity: in.Quantity})
	}
	for _, s := range agg.Steps {
		r.Steps = append(r.Steps, s.Instruction)
	}
	for _, a := range agg.Ancestry {
		r.Ancestry = append(r.Ancestry, Ancestry{
			Country:    a.Country,
			Region:     a.Region,
			RoughDate:  a.RoughDate,
			Note:       a.Note,
			Generation: a.Generation,
		})
	}
	if blobs != nil {
		for _, p := range agg.Photos {
			data, err := blobs.Get(ctx, p.BlobRef)
			if err != nil {
				return Recipe{}, fmt.Errorf("export photo %s: %w", p.ID, err)
			}
			r.Photos = append(r.Photos, Photo{Data: base64.StdEncoding.EncodeToString(data)})
		}
	}
	return r, nil
}

// Result counts what Apply created.
type Result struct {
	Owners  int `json:"owners"`
	Library int `json:"library"`
	Inbox   int `json:"inbox"`
}

// Apply creates every owner and recipe in b through dst. Library recipes
// are appended after any existing ones. Each creation is its own
// mutation, so a failure part way leaves the earlier entries in place;
// the returned Result reports how far it got.
func Apply(ctx context.Context, dst Target, b *Bundle) (Result, error) {
	var res Result
	if b.Version != Version {
		return res, fmt.Errorf("apply bundle: unsupported version %d", b.Version)
	}

	owners := make(map[string]string, len(b.Owners))
	for _, o := range b.Owners {
		created, err := dst.CreateOwner(ctx, o.Name, o.PhotoRef)
		if err != nil {
			return res, fmt.Errorf("apply owner %q: %w", o.Key, err)
		}
		owners[o.Key] = created.ID
		res.Owners++
	}

	for i, r := range b.Recipes {
		if err := applyRecipe(ctx, dst, r, owners); err != nil {
			return res, fmt.Errorf("apply recipes[%d] %q: %w", i, r.Title, err)
		}
		if r.Inbox {
			res.Inbox++
		} else {
			res.Library++
		}
	}
	return res, nil
}

func applyRecipe(ctx context.Context, dst Target, r Recipe, owners map[string]string) error {
	in := repository.RecipeInput{
		Title:       r.Title,
		Description: r.Description,
		Location:    r.Location,
	}
	if r.Style != nil {
		in.Font = r.Style.Font
		in.PrimaryColor = r.Style.Primary
		in.SecondaryColor = r.Style.Secondary
	}
	if r.Owner != "" {
		id, ok := owners[r.Owner]
		if !ok {
			return fmt.Errorf("unknown owner %q", r.Owner)
		}
		in.OwnerID = &id
	}

	// Photos are decoded up front so a corrupt one fails before the
	// recipe exists.
	photos := make([][]byte, 0, len(r.Photos))
	for i, p := range r.Photos {
		data, err := base64.StdEncoding.DecodeString(p.Data)
		if err != nil {
			return fmt.Errorf("photos[%d]: %w", i, err)
		}
		photos = append(photos, data)
	}

	var (
		created model.Recipe
		err     error
	)
	if r.Inbox {
		created, err = dst.CreateInboxRecipe(ctx, in, r.Sender)
	} else {
		created, err = dst.CreateRecipe(ctx, in)
	}
	if err != nil {
		return err
	}

	for _, ing := range r.Ingredients {
		if _, err := dst.AddIngredient(ctx, created.ID, ing.Name, ing.Quantity); err != nil {
			return err
		}
	}
	for _, s := range r.Steps {
		if _, err := dst.AddStep(ctx, created.ID, s); err != nil {
			return err
		}
	}
	for _, a := range r.Ancestry {
		step := repository.AncestryInput{
			Country:    a.Country,
			Region:     a.Region,
			RoughDate:  a.RoughDate,
			Note:       a.Note,
			Generation: a.Generation,
		}
		if _, err := dst.AddAncestryStep(ctx, created.ID, step); err != nil {
			return err
		}
	}
	for _, data := range photos {
		if _, err := dst.AddPhoto(ctx, created.ID, data); err != nil {
			return err
		}
	}
	return nil
}
