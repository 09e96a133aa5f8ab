package repository

import (
	"context"

	"github.com/tomioM/recipe-voyage-sub000/internal/model"
	"github.com/tomioM/recipe-voyage-sub000/internal/store"
)

// AddAudioNote records an audio file against a recipe. The file itself is
// owned by the audio service; only its name is stored.
func (r *Repository) AddAudioNote(ctx context.Context, recipeID, filename string, duration float64) (model.AudioNote, error) {
	const op = "add_audio_note"
	filename, err := model.RequireText("filename", filename)
	if err != nil {
		return model.AudioNote{}, withOp(op, err)
	}
	if err := validateDuration(duration); err != nil {
		return model.AudioNote{}, withOp(op, err)
	}
	n := model.AudioNote{
		ID:        r.ids.Generate(),
		RecipeID:  recipeID,
		Filename:  filename,
		Duration:  duration,
		CreatedAt: r.clock.Now(),
	}
	err = r.mutate(ctx, op, recipeID, func(tx *store.Tx) error {
		if _, err := tx.GetRecipe(ctx, recipeID); err != nil {
			return notFound(op, "recipe", recipeID, err)
		}
		return tx.InsertAudioNote(ctx, n)
	})
	if err != nil {
		return model.AudioNote{}, err
	}
	return n, nil
}

// DeleteAudioNote deletes the audio file, then the record. A file that
// cannot be deleted is logged and counted; the record is deleted anyway.
func (r *Repository) DeleteAudioNote(ctx context.Context, id string) error {
	const op = "delete_audio_note"

	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.store.GetAudioNote(ctx, id)
	if err != nil {
		return r.classify(op, notFound(op, "audio note", id, err))
	}
	r.deleteAudioFile(ctx, op, n)

	return r.mutateLocked(ctx, op, n.RecipeID, func(tx *store.Tx) error {
		if err := tx.DeleteAudioNote(ctx, id); err != nil {
			return notFound(op, "audio note", id, err)
		}
		return nil
	})
}

// deleteAudioFile removes the backing file of n. Failures never propagate.
func (r *Repository) deleteAudioFile(ctx context.Context, op string, n model.AudioNote) {
	if r.audio == nil {
		r.logger.Debug("no audio service configured, keeping file",
			"op", op,
			"filename", n.Filename)
		return
	}
	if err := r.audio.DeleteFile(ctx, n.Filename); err != nil {
		r.metrics.CleanupFailed()
		r.logger.Warn("audio file cleanup failed",
			"op", op,
			"recipe_id", n.RecipeID,
			"audio_note_id", n.ID,
			"error", model.NewCleanupFailure(op, n.Filename, err))
	}
}
