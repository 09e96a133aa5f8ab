package store

import (
	"context"

	"github.com/tomioM/recipe-voyage-sub000/internal/model"
)

// LoadAggregate reads a recipe and all of its children.
// Returns ErrNotFound (wrapped) if the recipe does not exist.
func (c *conn) LoadAggregate(ctx context.Context, id string) (model.Aggregate, error) {
	r, err := c.GetRecipe(ctx, id)
	if err != nil {
		return model.Aggregate{}, err
	}
	agg := model.Aggregate{Recipe: r}

	if agg.Ingredients, err = c.ListIngredients(ctx, id); err != nil {
		return model.Aggregate{}, err
	}
	if agg.Steps, err = c.ListSteps(ctx, id); err != nil {
		return model.Aggregate{}, err
	}
	if agg.Ancestry, err = c.ListAncestry(ctx, id); err != nil {
		return model.Aggregate{}, err
	}
	if agg.Photos, err = c.ListPhotos(ctx, id); err != nil {
		return model.Aggregate{}, err
	}
	if agg.AudioNotes, err = c.ListAudioNotes(ctx, id); err != nil {
		return model.Aggregate{}, err
	}
	return agg, nil
}
