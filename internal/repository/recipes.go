package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomioM/recipe-voyage-sub000/internal/model"
	"github.com/tomioM/recipe-voyage-sub000/internal/ordering"
	"github.com/tomioM/recipe-voyage-sub000/internal/store"
)

// CreateRecipe adds a recipe at the end of the library.
func (r *Repository) CreateRecipe(ctx context.Context, in RecipeInput) (model.Recipe, error) {
	const op = "create_recipe"
	rec, err := in.recipe()
	if err != nil {
		return model.Recipe{}, withOp(op, err)
	}
	rec.ID = r.ids.Generate()
	rec.CreatedAt = r.clock.Now()

	err = r.mutate(ctx, op, rec.ID, func(tx *store.Tx) error {
		if err := checkOwner(ctx, tx, op, rec.OwnerID); err != nil {
			return err
		}
		order, err := tx.LibraryOrder(ctx)
		if err != nil {
			return err
		}
		rec.SortOrder = ordering.Next(order)
		return tx.InsertRecipe(ctx, rec)
	})
	if err != nil {
		return model.Recipe{}, err
	}
	r.logger.Info("recipe created", "recipe_id", rec.ID, "sort_order", rec.SortOrder)
	return rec, nil
}

// CreateInboxRecipe adds a recipe to the inbox on behalf of sender.
func (r *Repository) CreateInboxRecipe(ctx context.Context, in RecipeInput, sender string) (model.Recipe, error) {
	const op = "create_inbox_recipe"
	rec, err := in.recipe()
	if err != nil {
		return model.Recipe{}, withOp(op, err)
	}
	if rec.SenderName, err = model.RequireText("sender_name", sender); err != nil {
		return model.Recipe{}, withOp(op, err)
	}
	rec.ID = r.ids.Generate()
	rec.CreatedAt = r.clock.Now()
	rec.InInbox = true

	err = r.mutate(ctx, op, rec.ID, func(tx *store.Tx) error {
		if err := checkOwner(ctx, tx, op, rec.OwnerID); err != nil {
			return err
		}
		return tx.InsertRecipe(ctx, rec)
	})
	if err != nil {
		return model.Recipe{}, err
	}
	r.logger.Info("inbox recipe created", "recipe_id", rec.ID, "sender", rec.SenderName)
	return rec, nil
}

// UpdateRecipe replaces the editable fields of a recipe. Partition, order,
// creation time and sender are unchanged.
func (r *Repository) UpdateRecipe(ctx context.Context, id string, in RecipeInput) (model.Recipe, error) {
	const op = "update_recipe"
	fields, err := in.recipe()
	if err != nil {
		return model.Recipe{}, withOp(op, err)
	}

	var updated model.Recipe
	err = r.mutate(ctx, op, id, func(tx *store.Tx) error {
		cur, err := tx.GetRecipe(ctx, id)
		if err != nil {
			return notFound(op, "recipe", id, err)
		}
		if err := checkOwner(ctx, tx, op, fields.OwnerID); err != nil {
			return err
		}
		cur.Title = fields.Title
		cur.Description = fields.Description
		cur.OwnerID = fields.OwnerID
		cur.Style = fields.Style
		cur.Location = fields.Location
		updated = cur
		return tx.UpdateRecipeFields(ctx, cur)
	})
	if err != nil {
		return model.Recipe{}, err
	}
	return updated, nil
}

// DeleteRecipe removes a recipe and everything it owns.
//
// Audio files are deleted first. A file that cannot be deleted is logged
// and counted; the record is deleted regardless. The library is compacted
// after a library recipe is removed.
func (r *Repository) DeleteRecipe(ctx context.Context, id string) error {
	const op = "delete_recipe"

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.store.GetRecipe(ctx, id); err != nil {
		return r.classify(op, notFound(op, "recipe", id, err))
	}
	notes, err := r.store.ListAudioNotes(ctx, id)
	if err != nil {
		return r.classify(op, err)
	}
	for _, n := range notes {
		r.deleteAudioFile(ctx, op, n)
	}

	err = r.mutateLocked(ctx, op, id, func(tx *store.Tx) error {
		rec, err := tx.GetRecipe(ctx, id)
		if err != nil {
			return notFound(op, "recipe", id, err)
		}
		if err := tx.DeleteRecipe(ctx, id); err != nil {
			return err
		}
		if rec.InInbox {
			return nil
		}
		order, err := tx.LibraryOrder(ctx)
		if err != nil {
			return err
		}
		return tx.SetLibraryOrder(ctx, ordering.Compact(order))
	})
	if err != nil {
		return err
	}
	r.logger.Info("recipe deleted", "recipe_id", id, "audio_notes", len(notes))
	return nil
}

// MoveFromInboxToLibrary moves an inbox recipe into the library.
//
// With at == nil the recipe is appended. Otherwise it is inserted at *at,
// shifting every library recipe at or after that position by one.
// Moving a recipe that is not in the inbox is an INVALID_STATE error, so a
// repeated move never succeeds twice.
func (r *Repository) MoveFromInboxToLibrary(ctx context.Context, id string, at *int) (model.Recipe, error) {
	const op = "move_to_library"
	var moved model.Recipe
	err := r.mutate(ctx, op, id, func(tx *store.Tx) error {
		rec, err := tx.GetRecipe(ctx, id)
		if err != nil {
			return notFound(op, "recipe", id, err)
		}
		if !rec.InInbox {
			return model.NewInvalidState(op, fmt.Sprintf("recipe %s is not in the inbox", id))
		}
		order, err := tx.LibraryOrder(ctx)
		if err != nil {
			return err
		}

		pos := ordering.Next(order)
		if at != nil {
			shifted, err := ordering.InsertAt(order, id, *at)
			if err != nil {
				return model.NewInvalidState(op, err.Error())
			}
			others := make([]ordering.Item, 0, len(order))
			for _, it := range shifted {
				if it.ID != id {
					others = append(others, it)
				}
			}
			if err := tx.SetLibraryOrder(ctx, others); err != nil {
				return err
			}
			pos = *at
		}
		if err := tx.SetPartition(ctx, id, false, &pos); err != nil {
			return err
		}
		rec.InInbox = false
		rec.SortOrder = pos
		moved = rec
		return nil
	})
	if err != nil {
		return model.Recipe{}, err
	}
	r.logger.Info("recipe moved to library", "recipe_id", id, "sort_order", moved.SortOrder)
	return moved, nil
}

// ReorderLibrary moves the library recipe at position from to position to
// and renumbers the whole library.
func (r *Repository) ReorderLibrary(ctx context.Context, from, to int) error {
	const op = "reorder_library"
	return r.mutate(ctx, op, "", func(tx *store.Tx) error {
		order, err := tx.LibraryOrder(ctx)
		if err != nil {
			return err
		}
		next, err := ordering.Reorder(order, from, to)
		if err != nil {
			return orderingError(op, err)
		}
		return tx.SetLibraryOrder(ctx, next)
	})
}

// SendToInbox moves a library recipe back to the inbox and records sender.
// The remaining library is compacted. Used by the auto-inbox job only; the
// interactive flow never moves recipes out of the library.
//
// sender replaces any previous sender name, so a resurfaced recipe keeps
// only the sender of its latest trip through the inbox.
func (r *Repository) SendToInbox(ctx context.Context, id, sender string) error {
	const op = "send_to_inbox"
	name, err := model.RequireText("sender_name", sender)
	if err != nil {
		return withOp(op, err)
	}
	return r.mutate(ctx, op, id, func(tx *store.Tx) error {
		rec, err := tx.GetRecipe(ctx, id)
		if err != nil {
			return notFound(op, "recipe", id, err)
		}
		if rec.InInbox {
			return model.NewInvalidState(op, fmt.Sprintf("recipe %s is already in the inbox", id))
		}
		if err := tx.SetPartition(ctx, id, true, nil); err != nil {
			return err
		}
		if err := tx.SetSender(ctx, id, name); err != nil {
			return err
		}
		order, err := tx.LibraryOrder(ctx)
		if err != nil {
			return err
		}
		return tx.SetLibraryOrder(ctx, ordering.Compact(order))
	})
}

func checkOwner(ctx context.Context, tx *store.Tx, op string, ownerID *string) error {
	if ownerID == nil {
		return nil
	}
	if _, err := tx.GetOwner(ctx, *ownerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &model.Error{
				Code:    model.CodeValidation,
				Op:      op,
				Field:   "owner_id",
				Message: fmt.Sprintf("owner %s does not exist", *ownerID),
			}
		}
		return err
	}
	return nil
}

// orderingError maps ordering precondition failures to INVALID_STATE.
func orderingError(op string, err error) error {
	if errors.Is(err, ordering.ErrOutOfRange) || errors.Is(err, ordering.ErrNoMove) {
		return model.NewInvalidState(op, err.Error())
	}
	return err
}

func withOp(op string, err error) error {
	var me *model.Error
	if errors.As(err, &me) && me.Op == "" {
		return me.WithOp(op)
	}
	return err
}
