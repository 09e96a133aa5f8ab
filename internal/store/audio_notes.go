package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tomioM/recipe-voyage-sub000/internal/model"
)

// InsertAudioNote writes a new audio note row.
func (c *conn) InsertAudioNote(ctx context.Context, n model.AudioNote) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO audio_notes (id, recipe_id, filename, duration, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, n.ID, n.RecipeID, n.Filename, n.Duration, n.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert audio note %s: %w", n.ID, err)
	}
	return nil
}

// GetAudioNote retrieves an audio note by id.
func (c *conn) GetAudioNote(ctx context.Context, id string) (model.AudioNote, error) {
	row := c.q.QueryRowContext(ctx,
		"SELECT id, recipe_id, filename, duration, created_at FROM audio_notes WHERE id = ?", id)
	n, err := scanAudioNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AudioNote{}, fmt.Errorf("get audio note %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.AudioNote{}, fmt.Errorf("get audio note %s: %w", id, err)
	}
	return n, nil
}

// DeleteAudioNote removes an audio note row. The file is not touched.
func (c *conn) DeleteAudioNote(ctx context.Context, id string) error {
	res, err := c.q.ExecContext(ctx, "DELETE FROM audio_notes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete audio note %s: %w", id, err)
	}
	return expectOne(res, "delete audio note", id)
}

// ListAudioNotes returns a recipe's audio notes, newest first.
func (c *conn) ListAudioNotes(ctx context.Context, recipeID string) ([]model.AudioNote, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, recipe_id, filename, duration, created_at FROM audio_notes
		WHERE recipe_id = ?
		ORDER BY created_at DESC, id COLLATE BINARY ASC
	`, recipeID)
	if err != nil {
		return nil, fmt.Errorf("query audio notes: %w", err)
	}
	defer rows.Close()

	out := []model.AudioNote{}
	for rows.Next() {
		n, err := scanAudioNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audio note: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audio notes: %w", err)
	}
	return out, nil
}

func scanAudioNote(s scanner) (model.AudioNote, error) {
	var (
		n         model.AudioNote
		createdAt int64
	)
	if err := s.Scan(&n.ID, &n.RecipeID, &n.Filename, &n.Duration, &createdAt); err != nil {
		return model.AudioNote{}, err
	}
	n.CreatedAt = fromUnixNano(createdAt)
	return n, nil
}
