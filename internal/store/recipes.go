package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomioM/recipe-voyage-sub000/internal/model"
	"github.com/tomioM/recipe-voyage-sub000/internal/ordering"
)

const recipeColumns = `id, title, description, owner_id, font_name, primary_color, secondary_color,
	latitude, longitude, place_name, in_inbox, sort_order, created_at, sender_name`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// InsertRecipe writes a new recipe row. For inbox recipes SortOrder is
// ignored and stored as NULL.
func (c *conn) InsertRecipe(ctx context.Context, r model.Recipe) error {
	var sortOrder sql.NullInt64
	if !r.InInbox {
		sortOrder = sql.NullInt64{Int64: int64(r.SortOrder), Valid: true}
	}
	lat, lon, place := locationArgs(r.Location)

	_, err := c.q.ExecContext(ctx, `
		INSERT INTO recipes (`+recipeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Title, r.Description, nullString(r.OwnerID),
		string(r.Style.Font), string(r.Style.Primary), string(r.Style.Secondary),
		lat, lon, place, boolToInt(r.InInbox), sortOrder, r.CreatedAt.UnixNano(), r.SenderName)
	if err != nil {
		return fmt.Errorf("insert recipe %s: %w", r.ID, err)
	}
	return nil
}

// UpdateRecipeFields rewrites the user-editable scalar fields of a recipe.
// Partition membership, order, creation time and sender are untouched.
func (c *conn) UpdateRecipeFields(ctx context.Context, r model.Recipe) error {
	lat, lon, place := locationArgs(r.Location)
	res, err := c.q.ExecContext(ctx, `
		UPDATE recipes
		SET title = ?, description = ?, owner_id = ?, font_name = ?,
		    primary_color = ?, secondary_color = ?,
		    latitude = ?, longitude = ?, place_name = ?
		WHERE id = ?
	`, r.Title, r.Description, nullString(r.OwnerID), string(r.Style.Font),
		string(r.Style.Primary), string(r.Style.Secondary), lat, lon, place, r.ID)
	if err != nil {
		return fmt.Errorf("update recipe %s: %w", r.ID, err)
	}
	return expectOne(res, "update recipe", r.ID)
}

// SetPartition moves a recipe between library and inbox. sortOrder must be
// non-nil when inInbox is false.
func (c *conn) SetPartition(ctx context.Context, id string, inInbox bool, sortOrder *int) error {
	var so sql.NullInt64
	if sortOrder != nil {
		so = sql.NullInt64{Int64: int64(*sortOrder), Valid: true}
	}
	res, err := c.q.ExecContext(ctx,
		"UPDATE recipes SET in_inbox = ?, sort_order = ? WHERE id = ?",
		boolToInt(inInbox), so, id)
	if err != nil {
		return fmt.Errorf("set partition %s: %w", id, err)
	}
	return expectOne(res, "set partition", id)
}

// SetSender records who a recipe arrived from.
func (c *conn) SetSender(ctx context.Context, id, sender string) error {
	res, err := c.q.ExecContext(ctx, "UPDATE recipes SET sender_name = ? WHERE id = ?", sender, id)
	if err != nil {
		return fmt.Errorf("set sender %s: %w", id, err)
	}
	return expectOne(res, "set sender", id)
}

// SetLibraryOrder writes sort_order for each library recipe in items.
func (c *conn) SetLibraryOrder(ctx context.Context, items []ordering.Item) error {
	for _, it := range items {
		res, err := c.q.ExecContext(ctx,
			"UPDATE recipes SET sort_order = ? WHERE id = ? AND in_inbox = 0",
			it.SortOrder, it.ID)
		if err != nil {
			return fmt.Errorf("set library order %s: %w", it.ID, err)
		}
		if err := expectOne(res, "set library order", it.ID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteRecipe removes a recipe. Children are removed by ON DELETE CASCADE.
func (c *conn) DeleteRecipe(ctx context.Context, id string) error {
	res, err := c.q.ExecContext(ctx, "DELETE FROM recipes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete recipe %s: %w", id, err)
	}
	return expectOne(res, "delete recipe", id)
}

// GetRecipe retrieves a recipe by id. Returns ErrNotFound if absent.
func (c *conn) GetRecipe(ctx context.Context, id string) (model.Recipe, error) {
	row := c.q.QueryRowContext(ctx, "SELECT "+recipeColumns+" FROM recipes WHERE id = ?", id)
	r, err := scanRecipe(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Recipe{}, fmt.Errorf("get recipe %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Recipe{}, fmt.Errorf("get recipe %s: %w", id, err)
	}
	return r, nil
}

// ListLibrary returns library recipes in ascending sort order.
func (c *conn) ListLibrary(ctx context.Context) ([]model.Recipe, error) {
	return c.listRecipes(ctx, `
		SELECT `+recipeColumns+` FROM recipes
		WHERE in_inbox = 0
		ORDER BY sort_order ASC, id COLLATE BINARY ASC
	`)
}

// ListInbox returns inbox recipes, newest first.
func (c *conn) ListInbox(ctx context.Context) ([]model.Recipe, error) {
	return c.listRecipes(ctx, `
		SELECT `+recipeColumns+` FROM recipes
		WHERE in_inbox = 1
		ORDER BY created_at DESC, id COLLATE BINARY ASC
	`)
}

// LibraryOrder returns the (id, sort_order) pairs of the library partition.
func (c *conn) LibraryOrder(ctx context.Context) ([]ordering.Item, error) {
	return c.listItems(ctx, `
		SELECT id, sort_order FROM recipes
		WHERE in_inbox = 0
		ORDER BY sort_order ASC, id COLLATE BINARY ASC
	`)
}

func (c *conn) listRecipes(ctx context.Context, query string, args ...any) ([]model.Recipe, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recipes: %w", err)
	}
	defer rows.Close()

	// Initialize as empty slice (not nil) for consistent JSON serialization
	recipes := []model.Recipe{}
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recipe: %w", err)
		}
		recipes = append(recipes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recipes: %w", err)
	}
	return recipes, nil
}

func (c *conn) listItems(ctx context.Context, query string, args ...any) ([]ordering.Item, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	defer rows.Close()

	items := []ordering.Item{}
	for rows.Next() {
		var it ordering.Item
		if err := rows.Scan(&it.ID, &it.SortOrder); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order: %w", err)
	}
	return items, nil
}

func scanRecipe(s scanner) (model.Recipe, error) {
	var (
		r                  model.Recipe
		ownerID, place     sql.NullString
		lat, lon           sql.NullFloat64
		font, primary, sec string
		inInbox            int
		sortOrder          sql.NullInt64
		createdAt          int64
	)
	err := s.Scan(&r.ID, &r.Title, &r.Description, &ownerID, &font, &primary, &sec,
		&lat, &lon, &place, &inInbox, &sortOrder, &createdAt, &r.SenderName)
	if err != nil {
		return model.Recipe{}, err
	}
	if ownerID.Valid {
		id := ownerID.String
		r.OwnerID = &id
	}
	r.Style = model.Style{
		Font:      model.FontName(font),
		Primary:   model.HexColor(primary),
		Secondary: model.HexColor(sec),
	}
	if lat.Valid && lon.Valid {
		r.Location = &model.Location{Latitude: lat.Float64, Longitude: lon.Float64, PlaceName: place.String}
	}
	r.InInbox = inInbox == 1
	if sortOrder.Valid && !r.InInbox {
		r.SortOrder = int(sortOrder.Int64)
	}
	r.CreatedAt = fromUnixNano(createdAt)
	return r, nil
}

func locationArgs(loc *model.Location) (lat, lon sql.NullFloat64, place sql.NullString) {
	if loc == nil {
		return
	}
	lat = sql.NullFloat64{Float64: loc.Latitude, Valid: true}
	lon = sql.NullFloat64{Float64: loc.Longitude, Valid: true}
	place = sql.NullString{String: loc.PlaceName, Valid: true}
	return
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func fromUnixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// expectOne turns a zero-row update or delete into ErrNotFound.
func expectOne(res sql.Result, op, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: rows affected: %w", op, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", op, id, ErrNotFound)
	}
	return nil
}
