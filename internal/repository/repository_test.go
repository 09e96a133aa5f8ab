package repository

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomioM/recipe-voyage-sub000/internal/metrics"
	"github.com/tomioM/recipe-voyage-sub000/internal/model"
)

func TestNew_EmptySnapshot(t *testing.T) {
	env := newTestEnv(t)

	snap := env.repo.Snapshot()
	assert.Equal(t, int64(1), snap.Version)
	assert.Empty(t, snap.Library)
	assert.Empty(t, snap.Inbox)
}

func TestCreateRecipe_AppendsToLibrary(t *testing.T) {
	env := newTestEnv(t)

	env.createLibrary(t, "Pho", "Bigos", "Feijoada")

	assert.Equal(t, []string{"Pho", "Bigos", "Feijoada"}, env.libraryTitles())
	for i, r := range env.repo.Snapshot().Library {
		assert.Equal(t, i, r.SortOrder)
		assert.False(t, r.InInbox)
	}
}

func TestCreateRecipe_NormalizesInput(t *testing.T) {
	env := newTestEnv(t)

	rec, err := env.repo.CreateRecipe(context.Background(), RecipeInput{
		Title:        "  Crépes  ",
		Font:         "Rounded",
		PrimaryColor: "#abc",
		Location:     &model.Location{Latitude: 48.85, Longitude: 2.35, PlaceName: " Paris "},
	})
	require.NoError(t, err)

	assert.Equal(t, "Crépes", rec.Title)
	assert.Equal(t, model.FontRounded, rec.Style.Font)
	assert.Equal(t, model.HexColor("#AABBCC"), rec.Style.Primary)
	assert.Equal(t, model.DefaultSecondary, rec.Style.Secondary)
	assert.Equal(t, "Paris", rec.Location.PlaceName)
}

// Validation errors are returned before anything is written.
func TestValidationBoundary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := env.createLibrary(t, "Soup")
	before := env.repo.Snapshot().Version

	cases := []struct {
		name  string
		run   func() error
		field string
	}{
		{"empty title", func() error {
			_, err := env.repo.CreateRecipe(ctx, RecipeInput{Title: "   "})
			return err
		}, "title"},
		{"bad color", func() error {
			_, err := env.repo.CreateRecipe(ctx, RecipeInput{Title: "x", PrimaryColor: "red"})
			return err
		}, "primary_color"},
		{"bad font", func() error {
			_, err := env.repo.CreateRecipe(ctx, RecipeInput{Title: "x", Font: "comic"})
			return err
		}, "font"},
		{"bad latitude", func() error {
			_, err := env.repo.CreateRecipe(ctx, RecipeInput{Title: "x", Location: &model.Location{Latitude: 91}})
			return err
		}, "location.latitude"},
		{"missing sender", func() error {
			_, err := env.repo.CreateInboxRecipe(ctx, RecipeInput{Title: "x"}, "")
			return err
		}, "sender_name"},
		{"empty update title", func() error {
			_, err := env.repo.UpdateRecipe(ctx, ids[0], RecipeInput{})
			return err
		}, "title"},
		{"empty ingredient", func() error {
			_, err := env.repo.AddIngredient(ctx, ids[0], "", "1 cup")
			return err
		}, "name"},
		{"empty step", func() error {
			_, err := env.repo.AddStep(ctx, ids[0], "\t")
			return err
		}, "instruction"},
		{"ancestry without country", func() error {
			_, err := env.repo.AddAncestryStep(ctx, ids[0], AncestryInput{Region: "Sicily"})
			return err
		}, "country"},
		{"negative generation", func() error {
			_, err := env.repo.AddAncestryStep(ctx, ids[0], AncestryInput{Country: "Italy", Generation: intPtr(-1)})
			return err
		}, "generation"},
		{"negative duration", func() error {
			_, err := env.repo.AddAudioNote(ctx, ids[0], "a.wav", -1)
			return err
		}, "duration"},
		{"empty photo", func() error {
			_, err := env.repo.AddPhoto(ctx, ids[0], nil)
			return err
		}, "data"},
		{"unknown owner", func() error {
			missing := "nobody"
			_, err := env.repo.CreateRecipe(ctx, RecipeInput{Title: "x", OwnerID: &missing})
			return err
		}, "owner_id"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run()
			require.Error(t, err)
			assert.True(t, model.IsValidation(err), "got %v", err)

			var me *model.Error
			require.ErrorAs(t, err, &me)
			assert.Equal(t, tc.field, me.Field)
			assert.NotEmpty(t, me.Op)
		})
	}

	assert.Equal(t, before, env.repo.Snapshot().Version, "no snapshot may be published")
	assert.Equal(t, []string{"Soup"}, env.libraryTitles())
	agg, err := env.repo.Aggregate(ctx, ids[0])
	require.NoError(t, err)
	assert.Empty(t, agg.Ingredients)
	assert.Empty(t, agg.Steps)
	assert.Empty(t, agg.Ancestry)
	assert.Empty(t, agg.AudioNotes)
}

func TestUpdateRecipe_KeepsPartitionAndOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := env.createLibrary(t, "A", "B")

	owner, err := env.repo.CreateOwner(ctx, "Oma", "")
	require.NoError(t, err)

	updated, err := env.repo.UpdateRecipe(ctx, ids[1], RecipeInput{Title: "B2", Description: "new", OwnerID: &owner.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.SortOrder)
	assert.Equal(t, "B2", updated.Title)

	assert.Equal(t, []string{"A", "B2"}, env.libraryTitles())
	got, _ := env.repo.Snapshot().Find(ids[1])
	require.NotNil(t, got.OwnerID)
	assert.Equal(t, owner.ID, *got.OwnerID)
	assert.Equal(t, "new", got.Description)
}

func TestUpdateRecipe_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.repo.UpdateRecipe(context.Background(), "missing", RecipeInput{Title: "x"})
	assert.True(t, model.IsNotFound(err), "got %v", err)
}

// Partition exclusivity: every recipe is in exactly one view.
func TestPartitionExclusivity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	lib := env.createLibrary(t, "L1", "L2")
	var inbox []string
	for i := 0; i < 3; i++ {
		rec, err := env.repo.CreateInboxRecipe(ctx, RecipeInput{Title: fmt.Sprintf("I%d", i)}, "Ana")
		require.NoError(t, err)
		inbox = append(inbox, rec.ID)
	}
	_, err := env.repo.MoveFromInboxToLibrary(ctx, inbox[1], nil)
	require.NoError(t, err)
	require.NoError(t, env.repo.SendToInbox(ctx, lib[0], "Ben"))

	snap := env.repo.Snapshot()
	seen := map[string]int{}
	for _, r := range snap.Library {
		assert.False(t, r.InInbox)
		seen[r.ID]++
	}
	for _, r := range snap.Inbox {
		assert.True(t, r.InInbox)
		seen[r.ID]++
	}
	assert.Len(t, seen, 5)
	for id, n := range seen {
		assert.Equal(t, 1, n, "recipe %s appears in %d views", id, n)
	}
}

func TestInbox_NewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, title := range []string{"first", "second", "third"} {
		_, err := env.repo.CreateInboxRecipe(ctx, RecipeInput{Title: title}, "Ana")
		require.NoError(t, err)
	}

	snap := env.repo.Snapshot()
	require.Len(t, snap.Inbox, 3)
	assert.Equal(t, "third", snap.Inbox[0].Title)
	assert.Equal(t, "first", snap.Inbox[2].Title)
	assert.Equal(t, "Ana", snap.Inbox[0].SenderName)
}

// A recipe can only leave the inbox once.
func TestMoveFromInboxToLibrary_Twice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createLibrary(t, "A")

	rec, err := env.repo.CreateInboxRecipe(ctx, RecipeInput{Title: "Gift"}, "Ana")
	require.NoError(t, err)

	moved, err := env.repo.MoveFromInboxToLibrary(ctx, rec.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, moved.SortOrder)
	assert.Equal(t, "Ana", moved.SenderName, "provenance survives the move")
	version := env.repo.Snapshot().Version

	_, err = env.repo.MoveFromInboxToLibrary(ctx, rec.ID, nil)
	assert.True(t, model.IsInvalidState(err), "got %v", err)
	assert.Equal(t, version, env.repo.Snapshot().Version)
	assert.Equal(t, []string{"A", "Gift"}, env.libraryTitles())
}

func TestMoveFromInboxToLibrary_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.repo.MoveFromInboxToLibrary(context.Background(), "missing", nil)
	assert.True(t, model.IsNotFound(err), "got %v", err)
}

// Insertion at an index shifts every recipe at or after it by one.
func TestMoveFromInboxToLibrary_InsertionShift(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createLibrary(t, "A", "B", "C")

	rec, err := env.repo.CreateInboxRecipe(ctx, RecipeInput{Title: "X"}, "Ana")
	require.NoError(t, err)

	moved, err := env.repo.MoveFromInboxToLibrary(ctx, rec.ID, intPtr(1))
	require.NoError(t, err)
	assert.Equal(t, 1, moved.SortOrder)

	assert.Equal(t, []string{"A", "X", "B", "C"}, env.libraryTitles())
	for i, r := range env.repo.Snapshot().Library {
		assert.Equal(t, i, r.SortOrder)
	}
	assert.Empty(t, env.repo.Snapshot().Inbox)
}

func TestMoveFromInboxToLibrary_InsertAtEnds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createLibrary(t, "A", "B")

	first, err := env.repo.CreateInboxRecipe(ctx, RecipeInput{Title: "Head"}, "Ana")
	require.NoError(t, err)
	last, err := env.repo.CreateInboxRecipe(ctx, RecipeInput{Title: "Tail"}, "Ana")
	require.NoError(t, err)

	_, err = env.repo.MoveFromInboxToLibrary(ctx, first.ID, intPtr(0))
	require.NoError(t, err)
	_, err = env.repo.MoveFromInboxToLibrary(ctx, last.ID, intPtr(3))
	require.NoError(t, err)

	assert.Equal(t, []string{"Head", "A", "B", "Tail"}, env.libraryTitles())
}

func TestMoveFromInboxToLibrary_InvalidIndex(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createLibrary(t, "A")
	rec, err := env.repo.CreateInboxRecipe(ctx, RecipeInput{Title: "X"}, "Ana")
	require.NoError(t, err)

	for _, at := range []int{-1, 2} {
		_, err := env.repo.MoveFromInboxToLibrary(ctx, rec.ID, intPtr(at))
		assert.True(t, model.IsInvalidState(err), "at=%d: got %v", at, err)
	}

	snap := env.repo.Snapshot()
	assert.Equal(t, []string{"A"}, env.libraryTitles())
	require.Len(t, snap.Inbox, 1)
	assert.Equal(t, rec.ID, snap.Inbox[0].ID)
}

// Reorder followed by the inverse reorder restores the original order.
func TestReorderLibrary_RoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createLibrary(t, "A", "B", "C", "D")

	require.NoError(t, env.repo.ReorderLibrary(ctx, 0, 2))
	assert.Equal(t, []string{"B", "C", "A", "D"}, env.libraryTitles())

	require.NoError(t, env.repo.ReorderLibrary(ctx, 2, 0))
	assert.Equal(t, []string{"A", "B", "C", "D"}, env.libraryTitles())
	env.requireDense(t)
}

func TestReorderLibrary_Preconditions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createLibrary(t, "A", "B")
	version := env.repo.Snapshot().Version

	for _, tc := range [][2]int{{0, 0}, {-1, 0}, {0, 2}, {5, 1}} {
		err := env.repo.ReorderLibrary(ctx, tc[0], tc[1])
		assert.True(t, model.IsInvalidState(err), "%v: got %v", tc, err)
	}
	assert.Equal(t, version, env.repo.Snapshot().Version)
}

func TestDeleteRecipe_CompactsLibrary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := env.createLibrary(t, "A", "B", "C")

	require.NoError(t, env.repo.DeleteRecipe(ctx, ids[1]))

	assert.Equal(t, []string{"A", "C"}, env.libraryTitles())
	env.requireDense(t)

	err := env.repo.DeleteRecipe(ctx, ids[1])
	assert.True(t, model.IsNotFound(err), "got %v", err)
}

// Cascade delete proceeds when an audio file cannot be deleted.
func TestDeleteRecipe_CascadeWithFailingFileDelete(t *testing.T) {
	m := metrics.New()
	env := newTestEnv(t, WithMetrics(m))
	ctx := context.Background()
	ids := env.createLibrary(t, "Keep", "Gone")
	id := ids[1]

	_, err := env.repo.AddIngredient(ctx, id, "rice", "1 cup")
	require.NoError(t, err)
	_, err = env.repo.AddStep(ctx, id, "boil")
	require.NoError(t, err)
	_, err = env.repo.AddAncestryStep(ctx, id, AncestryInput{Country: "Japan"})
	require.NoError(t, err)
	_, err = env.repo.AddPhoto(ctx, id, []byte("jpeg"))
	require.NoError(t, err)
	_, err = env.repo.AddAudioNote(ctx, id, "ok.wav", 1)
	require.NoError(t, err)
	_, err = env.repo.AddAudioNote(ctx, id, "locked.wav", 2)
	require.NoError(t, err)
	env.audio.failing["locked.wav"] = true

	require.NoError(t, env.repo.DeleteRecipe(ctx, id))

	assert.ElementsMatch(t, []string{"ok.wav", "locked.wav"}, env.audio.deleted)
	_, err = env.repo.Aggregate(ctx, id)
	assert.True(t, model.IsNotFound(err))

	for _, table := range []string{"ingredients", "steps", "ancestry_steps", "photos", "audio_notes"} {
		var count int
		require.NoError(t, env.store.DB().QueryRow("SELECT COUNT(*) FROM "+table+" WHERE recipe_id = ?", id).Scan(&count))
		assert.Zero(t, count, table)
	}
	assert.Equal(t, []string{"Keep"}, env.libraryTitles())
	assert.Equal(t, 1.0, metricValue(t, m, "voyage_cleanup_failures_total"))
}

func TestDeleteRecipe_FromInboxLeavesLibrary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createLibrary(t, "A", "B")
	rec, err := env.repo.CreateInboxRecipe(ctx, RecipeInput{Title: "X"}, "Ana")
	require.NoError(t, err)

	require.NoError(t, env.repo.DeleteRecipe(ctx, rec.ID))

	assert.Empty(t, env.repo.Snapshot().Inbox)
	assert.Equal(t, []string{"A", "B"}, env.libraryTitles())
}

func TestSendToInbox(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := env.createLibrary(t, "A", "B", "C")

	require.NoError(t, env.repo.SendToInbox(ctx, ids[0], "Grandma"))

	snap := env.repo.Snapshot()
	assert.Equal(t, []string{"B", "C"}, env.libraryTitles())
	require.Len(t, snap.Inbox, 1)
	assert.Equal(t, "Grandma", snap.Inbox[0].SenderName)
	env.requireDense(t)

	err := env.repo.SendToInbox(ctx, ids[0], "Grandma")
	assert.True(t, model.IsInvalidState(err), "got %v", err)
}

// A recipe that comes back through the inbox carries its latest sender.
func TestSendToInbox_ReplacesSender(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createLibrary(t, "Pie")[0]

	require.NoError(t, env.repo.SendToInbox(ctx, id, "Grandma"))
	moved, err := env.repo.MoveFromInboxToLibrary(ctx, id, nil)
	require.NoError(t, err)
	assert.Equal(t, "Grandma", moved.SenderName, "sender survives the move")

	require.NoError(t, env.repo.SendToInbox(ctx, id, "Uncle Tom"))
	snap := env.repo.Snapshot()
	require.Len(t, snap.Inbox, 1)
	assert.Equal(t, "Uncle Tom", snap.Inbox[0].SenderName)
}

// Store failures roll back and leave the published snapshot untouched.
func TestStoreFailure_RollsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := env.createLibrary(t, "A")

	_, err := env.store.DB().Exec(`
		CREATE TRIGGER fail_steps BEFORE INSERT ON steps
		BEGIN SELECT RAISE(ABORT, 'disk on fire'); END`)
	require.NoError(t, err)
	before := env.repo.Snapshot()

	_, err = env.repo.AddStep(ctx, ids[0], "stir")
	require.Error(t, err)
	assert.True(t, model.IsStoreFailure(err), "got %v", err)
	assert.Contains(t, err.Error(), "disk on fire")

	assert.Same(t, before, env.repo.Snapshot())
	agg, err := env.repo.Aggregate(ctx, ids[0])
	require.NoError(t, err)
	assert.Empty(t, agg.Steps)
}

// Random mutation sequences keep every collection dense.
func TestDensityInvariant_RandomOperations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	env.createLibrary(t, "seed")
	for i := 0; i < 120; i++ {
		snap := env.repo.Snapshot()
		switch rng.Intn(7) {
		case 0:
			_, err := env.repo.CreateRecipe(ctx, RecipeInput{Title: fmt.Sprintf("r%d", i)})
			require.NoError(t, err)
		case 1:
			_, err := env.repo.CreateInboxRecipe(ctx, RecipeInput{Title: fmt.Sprintf("i%d", i)}, "Ana")
			require.NoError(t, err)
		case 2:
			if len(snap.Inbox) > 0 {
				at := rng.Intn(len(snap.Library) + 1)
				_, err := env.repo.MoveFromInboxToLibrary(ctx, snap.Inbox[rng.Intn(len(snap.Inbox))].ID, &at)
				require.NoError(t, err)
			}
		case 3:
			if n := len(snap.Library); n > 1 {
				from, to := rng.Intn(n), rng.Intn(n)
				if from != to {
					require.NoError(t, env.repo.ReorderLibrary(ctx, from, to))
				}
			}
		case 4:
			if n := len(snap.Library); n > 1 {
				require.NoError(t, env.repo.DeleteRecipe(ctx, snap.Library[rng.Intn(n)].ID))
			}
		case 5:
			if n := len(snap.Library); n > 0 {
				id := snap.Library[rng.Intn(n)].ID
				_, err := env.repo.AddIngredient(ctx, id, fmt.Sprintf("ing%d", i), "")
				require.NoError(t, err)
			}
		case 6:
			if n := len(snap.Library); n > 0 {
				agg, err := env.repo.Aggregate(ctx, snap.Library[rng.Intn(n)].ID)
				require.NoError(t, err)
				if len(agg.Ingredients) > 0 {
					victim := agg.Ingredients[rng.Intn(len(agg.Ingredients))]
					require.NoError(t, env.repo.RemoveChild(ctx, model.KindIngredient, victim.ID))
				}
			}
		}
		env.requireDense(t)
	}
}

func TestOwners(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.repo.CreateOwner(ctx, "Zia", "sha256:aa")
	require.NoError(t, err)
	_, err = env.repo.CreateOwner(ctx, "Abuela", "")
	require.NoError(t, err)
	_, err = env.repo.CreateOwner(ctx, " ", "")
	assert.True(t, model.IsValidation(err))

	owners, err := env.repo.Owners(ctx)
	require.NoError(t, err)
	require.Len(t, owners, 2)
	assert.Equal(t, "Abuela", owners[0].Name)
}

func TestMutation_RecordsMetrics(t *testing.T) {
	m := metrics.New()
	env := newTestEnv(t, WithMetrics(m))

	env.createLibrary(t, "A")
	_, _ = env.repo.CreateRecipe(context.Background(), RecipeInput{})

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	found := map[string]bool{}
	for _, f := range families {
		found[f.GetName()] = true
	}
	assert.True(t, found["voyage_mutations_total"])
	assert.True(t, found["voyage_snapshot_version"])
}
