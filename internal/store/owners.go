package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tomioM/recipe-voyage-sub000/internal/model"
)

// InsertOwner writes a new owner row.
func (c *conn) InsertOwner(ctx context.Context, o model.Owner) error {
	_, err := c.q.ExecContext(ctx,
		"INSERT INTO owners (id, name, photo_ref) VALUES (?, ?, ?)", o.ID, o.Name, o.PhotoRef)
	if err != nil {
		return fmt.Errorf("insert owner %s: %w", o.ID, err)
	}
	return nil
}

// GetOwner retrieves an owner by id.
func (c *conn) GetOwner(ctx context.Context, id string) (model.Owner, error) {
	var o model.Owner
	err := c.q.QueryRowContext(ctx, "SELECT id, name, photo_ref FROM owners WHERE id = ?", id).
		Scan(&o.ID, &o.Name, &o.PhotoRef)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Owner{}, fmt.Errorf("get owner %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Owner{}, fmt.Errorf("get owner %s: %w", id, err)
	}
	return o, nil
}

// ListOwners returns every owner ordered by name.
func (c *conn) ListOwners(ctx context.Context) ([]model.Owner, error) {
	rows, err := c.q.QueryContext(ctx,
		"SELECT id, name, photo_ref FROM owners ORDER BY name ASC, id COLLATE BINARY ASC")
	if err != nil {
		return nil, fmt.Errorf("query owners: %w", err)
	}
	defer rows.Close()

	out := []model.Owner{}
	for rows.Next() {
		var o model.Owner
		if err := rows.Scan(&o.ID, &o.Name, &o.PhotoRef); err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate owners: %w", err)
	}
	return out, nil
}
