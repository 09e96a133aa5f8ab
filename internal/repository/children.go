package repository

import (
	"context"

	"github.com/tomioM/recipe-voyage-sub000/internal/model"
	"github.com/tomioM/recipe-voyage-sub000/internal/ordering"
	"github.com/tomioM/recipe-voyage-sub000/internal/store"
)

// AddIngredient appends an ingredient to a recipe.
func (r *Repository) AddIngredient(ctx context.Context, recipeID, name, quantity string) (model.Ingredient, error) {
	const op = "add_ingredient"
	name, err := model.RequireText("name", name)
	if err != nil {
		return model.Ingredient{}, withOp(op, err)
	}
	in := model.Ingredient{
		ID:       r.ids.Generate(),
		RecipeID: recipeID,
		Name:     name,
		Quantity: model.NormalizeText(quantity),
	}
	err = r.appendChild(ctx, op, model.KindIngredient, recipeID, func(tx *store.Tx, pos int) error {
		in.SortOrder = pos
		return tx.InsertIngredient(ctx, in)
	})
	if err != nil {
		return model.Ingredient{}, err
	}
	return in, nil
}

// AddStep appends an instruction step to a recipe.
func (r *Repository) AddStep(ctx context.Context, recipeID, instruction string) (model.Step, error) {
	const op = "add_step"
	instruction, err := model.RequireText("instruction", instruction)
	if err != nil {
		return model.Step{}, withOp(op, err)
	}
	st := model.Step{ID: r.ids.Generate(), RecipeID: recipeID, Instruction: instruction}
	err = r.appendChild(ctx, op, model.KindStep, recipeID, func(tx *store.Tx, pos int) error {
		st.SortOrder = pos
		return tx.InsertStep(ctx, st)
	})
	if err != nil {
		return model.Step{}, err
	}
	return st, nil
}

// AddAncestryStep appends a hop to a recipe's journey.
func (r *Repository) AddAncestryStep(ctx context.Context, recipeID string, in AncestryInput) (model.AncestryStep, error) {
	const op = "add_ancestry_step"
	a, err := in.step()
	if err != nil {
		return model.AncestryStep{}, withOp(op, err)
	}
	a.ID = r.ids.Generate()
	a.RecipeID = recipeID
	err = r.appendChild(ctx, op, model.KindAncestry, recipeID, func(tx *store.Tx, pos int) error {
		a.SortOrder = pos
		return tx.InsertAncestryStep(ctx, a)
	})
	if err != nil {
		return model.AncestryStep{}, err
	}
	return a, nil
}

// AddPhoto stores data in the blob store and appends a photo referencing it.
func (r *Repository) AddPhoto(ctx context.Context, recipeID string, data []byte) (model.Photo, error) {
	const op = "add_photo"
	if len(data) == 0 {
		return model.Photo{}, withOp(op, model.NewValidationError("data", "photo data is required"))
	}
	if r.blobs == nil {
		return model.Photo{}, model.NewInvalidState(op, "no blob store configured")
	}
	// Check before writing the blob so an unknown recipe leaves no orphan.
	if _, err := r.store.GetRecipe(ctx, recipeID); err != nil {
		return model.Photo{}, r.classify(op, notFound(op, "recipe", recipeID, err))
	}

	ref, err := r.blobs.Put(ctx, data)
	if err != nil {
		return model.Photo{}, model.NewStoreFailure(op, err)
	}
	p := model.Photo{
		ID:        r.ids.Generate(),
		RecipeID:  recipeID,
		BlobRef:   ref,
		CreatedAt: r.clock.Now(),
	}
	err = r.appendChild(ctx, op, model.KindPhoto, recipeID, func(tx *store.Tx, pos int) error {
		p.SortOrder = pos
		return tx.InsertPhoto(ctx, p)
	})
	if err != nil {
		return model.Photo{}, err
	}
	return p, nil
}

// appendChild runs insert with the next free sort order of (recipeID, kind).
func (r *Repository) appendChild(ctx context.Context, op string, kind model.ChildKind, recipeID string,
	insert func(tx *store.Tx, pos int) error) error {
	return r.mutate(ctx, op, recipeID, func(tx *store.Tx) error {
		if _, err := tx.GetRecipe(ctx, recipeID); err != nil {
			return notFound(op, "recipe", recipeID, err)
		}
		order, err := tx.ChildOrder(ctx, kind, recipeID)
		if err != nil {
			return err
		}
		return insert(tx, ordering.Next(order))
	})
}

// UpdateIngredient replaces an ingredient's name and quantity.
func (r *Repository) UpdateIngredient(ctx context.Context, id, name, quantity string) (model.Ingredient, error) {
	const op = "update_ingredient"
	name, err := model.RequireText("name", name)
	if err != nil {
		return model.Ingredient{}, withOp(op, err)
	}
	var updated model.Ingredient
	err = r.mutate(ctx, op, "", func(tx *store.Tx) error {
		cur, err := tx.GetIngredient(ctx, id)
		if err != nil {
			return notFound(op, "ingredient", id, err)
		}
		cur.Name = name
		cur.Quantity = model.NormalizeText(quantity)
		updated = cur
		return tx.UpdateIngredient(ctx, cur)
	})
	if err != nil {
		return model.Ingredient{}, err
	}
	return updated, nil
}

// UpdateStep replaces a step's instruction.
func (r *Repository) UpdateStep(ctx context.Context, id, instruction string) (model.Step, error) {
	const op = "update_step"
	instruction, err := model.RequireText("instruction", instruction)
	if err != nil {
		return model.Step{}, withOp(op, err)
	}
	var updated model.Step
	err = r.mutate(ctx, op, "", func(tx *store.Tx) error {
		cur, err := tx.GetStep(ctx, id)
		if err != nil {
			return notFound(op, "step", id, err)
		}
		cur.Instruction = instruction
		updated = cur
		return tx.UpdateStep(ctx, cur)
	})
	if err != nil {
		return model.Step{}, err
	}
	return updated, nil
}

// UpdateAncestryStep replaces the descriptive fields of an ancestry step.
func (r *Repository) UpdateAncestryStep(ctx context.Context, id string, in AncestryInput) (model.AncestryStep, error) {
	const op = "update_ancestry_step"
	fields, err := in.step()
	if err != nil {
		return model.AncestryStep{}, withOp(op, err)
	}
	var updated model.AncestryStep
	err = r.mutate(ctx, op, "", func(tx *store.Tx) error {
		cur, err := tx.GetAncestryStep(ctx, id)
		if err != nil {
			return notFound(op, "ancestry step", id, err)
		}
		cur.Country = fields.Country
		cur.Region = fields.Region
		cur.RoughDate = fields.RoughDate
		cur.Note = fields.Note
		cur.Generation = fields.Generation
		updated = cur
		return tx.UpdateAncestryStep(ctx, cur)
	})
	if err != nil {
		return model.AncestryStep{}, err
	}
	return updated, nil
}

// ReorderChildren moves the child at position from to position to within
// one (recipe, kind) collection and renumbers the collection.
func (r *Repository) ReorderChildren(ctx context.Context, recipeID string, kind model.ChildKind, from, to int) error {
	const op = "reorder_children"
	if _, err := model.ParseChildKind(string(kind)); err != nil {
		return withOp(op, err)
	}
	return r.mutate(ctx, op, recipeID, func(tx *store.Tx) error {
		if _, err := tx.GetRecipe(ctx, recipeID); err != nil {
			return notFound(op, "recipe", recipeID, err)
		}
		order, err := tx.ChildOrder(ctx, kind, recipeID)
		if err != nil {
			return err
		}
		next, err := ordering.Reorder(order, from, to)
		if err != nil {
			return orderingError(op, err)
		}
		return tx.SetChildOrder(ctx, kind, next)
	})
}

// RemoveChild deletes one ordered child and compacts its siblings.
// Photo blobs are left in the blob store.
func (r *Repository) RemoveChild(ctx context.Context, kind model.ChildKind, childID string) error {
	const op = "remove_child"
	if _, err := model.ParseChildKind(string(kind)); err != nil {
		return withOp(op, err)
	}
	return r.mutate(ctx, op, "", func(tx *store.Tx) error {
		recipeID, err := tx.ChildRecipeID(ctx, kind, childID)
		if err != nil {
			return notFound(op, string(kind), childID, err)
		}
		if err := tx.DeleteChild(ctx, kind, childID); err != nil {
			return err
		}
		order, err := tx.ChildOrder(ctx, kind, recipeID)
		if err != nil {
			return err
		}
		return tx.SetChildOrder(ctx, kind, ordering.Compact(order))
	})
}
