package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomioM/recipe-voyage-sub000/internal/model"
	"github.com/tomioM/recipe-voyage-sub000/internal/ordering"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "Open() iteration %d", i)
		require.NoError(t, s.Close())
	}

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	tables := []string{"owners", "recipes", "ingredients", "steps", "ancestry_steps", "photos", "audio_notes"}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		assert.NoError(t, err, "table %q not found after idempotent opens", table)
	}

	version, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestOpen_AppliesPragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
}

func TestRecipe_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	owner := model.Owner{ID: "o1", Name: "Nonna"}
	require.NoError(t, s.InsertOwner(ctx, owner))

	r := createTestRecipe("r1", 0)
	r.Description = "Sunday sauce"
	r.OwnerID = &owner.ID
	r.Location = &model.Location{Latitude: 40.85, Longitude: 14.27, PlaceName: "Napoli"}
	require.NoError(t, s.InsertRecipe(ctx, r))

	got, err := s.GetRecipe(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestGetRecipe_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetRecipe(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListLibraryAndInbox_Ordering(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertRecipe(ctx, createTestRecipe("b", 1)))
	require.NoError(t, s.InsertRecipe(ctx, createTestRecipe("a", 0)))
	require.NoError(t, s.InsertRecipe(ctx, createTestInboxRecipe("old", "Ana", 1)))
	require.NoError(t, s.InsertRecipe(ctx, createTestInboxRecipe("new", "Ben", 2)))

	library, err := s.ListLibrary(ctx)
	require.NoError(t, err)
	require.Len(t, library, 2)
	assert.Equal(t, "a", library[0].ID)
	assert.Equal(t, "b", library[1].ID)

	inbox, err := s.ListInbox(ctx)
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	assert.Equal(t, "new", inbox[0].ID, "inbox is newest first")
	assert.Equal(t, "old", inbox[1].ID)
	assert.Zero(t, inbox[0].SortOrder)
}

func TestListLibrary_EmptyIsNotNil(t *testing.T) {
	s := createTestStore(t)

	library, err := s.ListLibrary(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, library)
	assert.Empty(t, library)
}

func TestRecipes_LibraryRequiresSortOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.InsertRecipe(ctx, createTestInboxRecipe("r1", "Ana", 0)))

	err := s.SetPartition(ctx, "r1", false, nil)
	assert.Error(t, err, "a library row without sort_order violates the CHECK constraint")
}

func TestUpdate_RollsBackOnError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Update(ctx, func(tx *Tx) error {
		if err := tx.InsertRecipe(ctx, createTestRecipe("r1", 0)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.GetRecipe(ctx, "r1")
	assert.ErrorIs(t, err, ErrNotFound, "insert must be rolled back")
}

func TestUpdate_Commits(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.Update(ctx, func(tx *Tx) error {
		if err := tx.InsertRecipe(ctx, createTestRecipe("r1", 0)); err != nil {
			return err
		}
		return tx.InsertRecipe(ctx, createTestRecipe("r2", 1))
	})
	require.NoError(t, err)

	order, err := s.LibraryOrder(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ordering.Item{{ID: "r1", SortOrder: 0}, {ID: "r2", SortOrder: 1}}, order)
}

func TestView_LoadsAggregate(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.InsertRecipe(ctx, createTestRecipe("r1", 0)))
	require.NoError(t, s.InsertStep(ctx, model.Step{ID: "s1", RecipeID: "r1", Instruction: "mix"}))

	var agg model.Aggregate
	err := s.View(ctx, func(tx *Tx) error {
		var err error
		agg, err = tx.LoadAggregate(ctx, "r1")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "r1", agg.Recipe.ID)
	require.Len(t, agg.Steps, 1)
	assert.Equal(t, "mix", agg.Steps[0].Instruction)
}

func TestView_NeverCommits(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.View(ctx, func(tx *Tx) error {
		return tx.InsertRecipe(ctx, createTestRecipe("r1", 0))
	})
	require.NoError(t, err)

	_, err = s.GetRecipe(ctx, "r1")
	assert.ErrorIs(t, err, ErrNotFound, "writes inside View are discarded")
}

func TestSetLibraryOrder_SkipsInboxRows(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.InsertRecipe(ctx, createTestInboxRecipe("r1", "Ana", 0)))

	err := s.SetLibraryOrder(ctx, []ordering.Item{{ID: "r1", SortOrder: 0}})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRecipe_CascadesChildren(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertRecipe(ctx, createTestRecipe("r1", 0)))
	require.NoError(t, s.InsertIngredient(ctx, model.Ingredient{ID: "i1", RecipeID: "r1", Name: "flour"}))
	require.NoError(t, s.InsertStep(ctx, model.Step{ID: "s1", RecipeID: "r1", Instruction: "mix"}))
	require.NoError(t, s.InsertAncestryStep(ctx, model.AncestryStep{ID: "a1", RecipeID: "r1", Country: "Italy"}))
	require.NoError(t, s.InsertPhoto(ctx, model.Photo{ID: "p1", RecipeID: "r1", BlobRef: "sha256:00", CreatedAt: baseTime}))
	require.NoError(t, s.InsertAudioNote(ctx, model.AudioNote{ID: "n1", RecipeID: "r1", Filename: "n1.wav", CreatedAt: baseTime}))

	require.NoError(t, s.DeleteRecipe(ctx, "r1"))

	for _, table := range []string{"ingredients", "steps", "ancestry_steps", "photos", "audio_notes"} {
		var count int
		require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&count))
		assert.Zero(t, count, "%s should cascade", table)
	}
}

func TestDeleteRecipe_NotFound(t *testing.T) {
	s := createTestStore(t)

	err := s.DeleteRecipe(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInsertIngredient_RequiresRecipe(t *testing.T) {
	s := createTestStore(t)

	err := s.InsertIngredient(context.Background(), model.Ingredient{ID: "i1", RecipeID: "missing", Name: "salt"})
	assert.Error(t, err, "foreign key must reject orphan children")
}

func TestDeleteOwner_NullsRecipeOwner(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	owner := model.Owner{ID: "o1", Name: "Nonna"}
	require.NoError(t, s.InsertOwner(ctx, owner))
	r := createTestRecipe("r1", 0)
	r.OwnerID = &owner.ID
	require.NoError(t, s.InsertRecipe(ctx, r))

	_, err := s.db.Exec("DELETE FROM owners WHERE id = ?", owner.ID)
	require.NoError(t, err)

	got, err := s.GetRecipe(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, got.OwnerID)
}

func TestListOwners_ByName(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertOwner(ctx, model.Owner{ID: "o2", Name: "Zia"}))
	require.NoError(t, s.InsertOwner(ctx, model.Owner{ID: "o1", Name: "Abuela", PhotoRef: "sha256:aa"}))

	owners, err := s.ListOwners(ctx)
	require.NoError(t, err)
	require.Len(t, owners, 2)
	assert.Equal(t, "Abuela", owners[0].Name)
	assert.Equal(t, "sha256:aa", owners[0].PhotoRef)

	got, err := s.GetOwner(ctx, "o2")
	require.NoError(t, err)
	assert.Equal(t, "Zia", got.Name)
}
