package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tomioM/recipe-voyage-sub000/internal/model"
	"github.com/tomioM/recipe-voyage-sub000/internal/ordering"
)

// childTables maps each ordered child kind to its table.
var childTables = map[model.ChildKind]string{
	model.KindIngredient: "ingredients",
	model.KindStep:       "steps",
	model.KindAncestry:   "ancestry_steps",
	model.KindPhoto:      "photos",
}

func childTable(kind model.ChildKind) (string, error) {
	table, ok := childTables[kind]
	if !ok {
		return "", fmt.Errorf("unknown child kind %q", kind)
	}
	return table, nil
}

// InsertIngredient writes a new ingredient row.
func (c *conn) InsertIngredient(ctx context.Context, in model.Ingredient) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO ingredients (id, recipe_id, name, quantity, sort_order)
		VALUES (?, ?, ?, ?, ?)
	`, in.ID, in.RecipeID, in.Name, in.Quantity, in.SortOrder)
	if err != nil {
		return fmt.Errorf("insert ingredient %s: %w", in.ID, err)
	}
	return nil
}

// UpdateIngredient rewrites an ingredient's name and quantity.
func (c *conn) UpdateIngredient(ctx context.Context, in model.Ingredient) error {
	res, err := c.q.ExecContext(ctx,
		"UPDATE ingredients SET name = ?, quantity = ? WHERE id = ?",
		in.Name, in.Quantity, in.ID)
	if err != nil {
		return fmt.Errorf("update ingredient %s: %w", in.ID, err)
	}
	return expectOne(res, "update ingredient", in.ID)
}

// InsertStep writes a new step row.
func (c *conn) InsertStep(ctx context.Context, st model.Step) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO steps (id, recipe_id, instruction, sort_order)
		VALUES (?, ?, ?, ?)
	`, st.ID, st.RecipeID, st.Instruction, st.SortOrder)
	if err != nil {
		return fmt.Errorf("insert step %s: %w", st.ID, err)
	}
	return nil
}

// UpdateStep rewrites a step's instruction.
func (c *conn) UpdateStep(ctx context.Context, st model.Step) error {
	res, err := c.q.ExecContext(ctx, "UPDATE steps SET instruction = ? WHERE id = ?", st.Instruction, st.ID)
	if err != nil {
		return fmt.Errorf("update step %s: %w", st.ID, err)
	}
	return expectOne(res, "update step", st.ID)
}

// InsertAncestryStep writes a new ancestry step row.
func (c *conn) InsertAncestryStep(ctx context.Context, a model.AncestryStep) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO ancestry_steps (id, recipe_id, country, region, rough_date, note, generation, sort_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.RecipeID, a.Country, a.Region, a.RoughDate, a.Note, nullInt(a.Generation), a.SortOrder)
	if err != nil {
		return fmt.Errorf("insert ancestry step %s: %w", a.ID, err)
	}
	return nil
}

// UpdateAncestryStep rewrites the descriptive fields of an ancestry step.
func (c *conn) UpdateAncestryStep(ctx context.Context, a model.AncestryStep) error {
	res, err := c.q.ExecContext(ctx, `
		UPDATE ancestry_steps
		SET country = ?, region = ?, rough_date = ?, note = ?, generation = ?
		WHERE id = ?
	`, a.Country, a.Region, a.RoughDate, a.Note, nullInt(a.Generation), a.ID)
	if err != nil {
		return fmt.Errorf("update ancestry step %s: %w", a.ID, err)
	}
	return expectOne(res, "update ancestry step", a.ID)
}

// InsertPhoto writes a new photo row.
func (c *conn) InsertPhoto(ctx context.Context, p model.Photo) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO photos (id, recipe_id, blob_ref, created_at, sort_order)
		VALUES (?, ?, ?, ?, ?)
	`, p.ID, p.RecipeID, p.BlobRef, p.CreatedAt.UnixNano(), p.SortOrder)
	if err != nil {
		return fmt.Errorf("insert photo %s: %w", p.ID, err)
	}
	return nil
}

// ChildOrder returns the (id, sort_order) pairs of one child collection.
func (c *conn) ChildOrder(ctx context.Context, kind model.ChildKind, recipeID string) ([]ordering.Item, error) {
	table, err := childTable(kind)
	if err != nil {
		return nil, err
	}
	return c.listItems(ctx, `
		SELECT id, sort_order FROM `+table+`
		WHERE recipe_id = ?
		ORDER BY sort_order ASC, id COLLATE BINARY ASC
	`, recipeID)
}

// SetChildOrder writes sort_order for each child in items.
func (c *conn) SetChildOrder(ctx context.Context, kind model.ChildKind, items []ordering.Item) error {
	table, err := childTable(kind)
	if err != nil {
		return err
	}
	for _, it := range items {
		res, err := c.q.ExecContext(ctx,
			"UPDATE "+table+" SET sort_order = ? WHERE id = ?", it.SortOrder, it.ID)
		if err != nil {
			return fmt.Errorf("set %s order %s: %w", kind, it.ID, err)
		}
		if err := expectOne(res, "set "+string(kind)+" order", it.ID); err != nil {
			return err
		}
	}
	return nil
}

// ChildRecipeID returns the owning recipe of a child.
func (c *conn) ChildRecipeID(ctx context.Context, kind model.ChildKind, childID string) (string, error) {
	table, err := childTable(kind)
	if err != nil {
		return "", err
	}
	var recipeID string
	err = c.q.QueryRowContext(ctx, "SELECT recipe_id FROM "+table+" WHERE id = ?", childID).Scan(&recipeID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("get %s %s: %w", kind, childID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get %s %s: %w", kind, childID, err)
	}
	return recipeID, nil
}

// DeleteChild removes one child row. Siblings keep their sort_order; the
// caller compacts them.
func (c *conn) DeleteChild(ctx context.Context, kind model.ChildKind, childID string) error {
	table, err := childTable(kind)
	if err != nil {
		return err
	}
	res, err := c.q.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", childID)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, childID, err)
	}
	return expectOne(res, "delete "+string(kind), childID)
}

// GetIngredient retrieves an ingredient by id.
func (c *conn) GetIngredient(ctx context.Context, id string) (model.Ingredient, error) {
	var in model.Ingredient
	err := c.q.QueryRowContext(ctx,
		"SELECT id, recipe_id, name, quantity, sort_order FROM ingredients WHERE id = ?", id,
	).Scan(&in.ID, &in.RecipeID, &in.Name, &in.Quantity, &in.SortOrder)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Ingredient{}, fmt.Errorf("get ingredient %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Ingredient{}, fmt.Errorf("get ingredient %s: %w", id, err)
	}
	return in, nil
}

// GetStep retrieves a step by id.
func (c *conn) GetStep(ctx context.Context, id string) (model.Step, error) {
	var st model.Step
	err := c.q.QueryRowContext(ctx,
		"SELECT id, recipe_id, instruction, sort_order FROM steps WHERE id = ?", id,
	).Scan(&st.ID, &st.RecipeID, &st.Instruction, &st.SortOrder)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Step{}, fmt.Errorf("get step %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Step{}, fmt.Errorf("get step %s: %w", id, err)
	}
	return st, nil
}

// GetAncestryStep retrieves an ancestry step by id.
func (c *conn) GetAncestryStep(ctx context.Context, id string) (model.AncestryStep, error) {
	row := c.q.QueryRowContext(ctx, `
		SELECT id, recipe_id, country, region, rough_date, note, generation, sort_order
		FROM ancestry_steps WHERE id = ?
	`, id)
	a, err := scanAncestry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AncestryStep{}, fmt.Errorf("get ancestry step %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.AncestryStep{}, fmt.Errorf("get ancestry step %s: %w", id, err)
	}
	return a, nil
}

// ListIngredients returns a recipe's ingredients in sort order.
func (c *conn) ListIngredients(ctx context.Context, recipeID string) ([]model.Ingredient, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, recipe_id, name, quantity, sort_order FROM ingredients
		WHERE recipe_id = ?
		ORDER BY sort_order ASC, id COLLATE BINARY ASC
	`, recipeID)
	if err != nil {
		return nil, fmt.Errorf("query ingredients: %w", err)
	}
	defer rows.Close()

	out := []model.Ingredient{}
	for rows.Next() {
		var in model.Ingredient
		if err := rows.Scan(&in.ID, &in.RecipeID, &in.Name, &in.Quantity, &in.SortOrder); err != nil {
			return nil, fmt.Errorf("scan ingredient: %w", err)
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ingredients: %w", err)
	}
	return out, nil
}

// ListSteps returns a recipe's steps in sort order.
func (c *conn) ListSteps(ctx context.Context, recipeID string) ([]model.Step, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, recipe_id, instruction, sort_order FROM steps
		WHERE recipe_id = ?
		ORDER BY sort_order ASC, id COLLATE BINARY ASC
	`, recipeID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	out := []model.Step{}
	for rows.Next() {
		var st model.Step
		if err := rows.Scan(&st.ID, &st.RecipeID, &st.Instruction, &st.SortOrder); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return out, nil
}

// ListAncestry returns a recipe's ancestry steps in sort order.
func (c *conn) ListAncestry(ctx context.Context, recipeID string) ([]model.AncestryStep, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, recipe_id, country, region, rough_date, note, generation, sort_order
		FROM ancestry_steps
		WHERE recipe_id = ?
		ORDER BY sort_order ASC, id COLLATE BINARY ASC
	`, recipeID)
	if err != nil {
		return nil, fmt.Errorf("query ancestry: %w", err)
	}
	defer rows.Close()

	out := []model.AncestryStep{}
	for rows.Next() {
		a, err := scanAncestry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ancestry step: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ancestry: %w", err)
	}
	return out, nil
}

// ListPhotos returns a recipe's photos in sort order.
func (c *conn) ListPhotos(ctx context.Context, recipeID string) ([]model.Photo, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, recipe_id, blob_ref, created_at, sort_order FROM photos
		WHERE recipe_id = ?
		ORDER BY sort_order ASC, id COLLATE BINARY ASC
	`, recipeID)
	if err != nil {
		return nil, fmt.Errorf("query photos: %w", err)
	}
	defer rows.Close()

	out := []model.Photo{}
	for rows.Next() {
		var (
			p         model.Photo
			createdAt int64
		)
		if err := rows.Scan(&p.ID, &p.RecipeID, &p.BlobRef, &createdAt, &p.SortOrder); err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		p.CreatedAt = fromUnixNano(createdAt)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate photos: %w", err)
	}
	return out, nil
}

func scanAncestry(s scanner) (model.AncestryStep, error) {
	var (
		a          model.AncestryStep
		generation sql.NullInt64
	)
	if err := s.Scan(&a.ID, &a.RecipeID, &a.Country, &a.Region, &a.RoughDate, &a.Note, &generation, &a.SortOrder); err != nil {
		return model.AncestryStep{}, err
	}
	if generation.Valid {
		g := int(generation.Int64)
		a.Generation = &g
	}
	return a, nil
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}
