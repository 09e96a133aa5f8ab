package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomioM/recipe-voyage-sub000/internal/model"
	"github.com/tomioM/recipe-voyage-sub000/internal/ordering"
	"github.com/tomioM/recipe-voyage-sub000/internal/store"
)

// Appending children and reading back preserves insertion order.
func TestAppendThenRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createLibrary(t, "Bread")[0]

	for _, s := range []string{"step1", "step2", "step3"} {
		_, err := env.repo.AddStep(ctx, id, s)
		require.NoError(t, err)
	}

	agg, err := env.repo.Aggregate(ctx, id)
	require.NoError(t, err)
	require.Len(t, agg.Steps, 3)
	for i, want := range []string{"step1", "step2", "step3"} {
		assert.Equal(t, want, agg.Steps[i].Instruction)
		assert.Equal(t, i, agg.Steps[i].SortOrder)
	}
}

func TestChildCollections_AreIndependent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := env.createLibrary(t, "A", "B")

	_, err := env.repo.AddIngredient(ctx, ids[0], "flour", "")
	require.NoError(t, err)
	in, err := env.repo.AddIngredient(ctx, ids[1], "salt", "")
	require.NoError(t, err)
	st, err := env.repo.AddStep(ctx, ids[1], "mix")
	require.NoError(t, err)

	assert.Equal(t, 0, in.SortOrder, "each recipe numbers its own children")
	assert.Equal(t, 0, st.SortOrder, "each kind numbers its own children")
}

func TestReorderChildren_RoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createLibrary(t, "Stew")[0]
	for _, name := range []string{"A", "B", "C", "D"} {
		_, err := env.repo.AddIngredient(ctx, id, name, "")
		require.NoError(t, err)
	}

	names := func() []string {
		agg, err := env.repo.Aggregate(ctx, id)
		require.NoError(t, err)
		out := make([]string, len(agg.Ingredients))
		for i, in := range agg.Ingredients {
			out[i] = in.Name
		}
		return out
	}

	require.NoError(t, env.repo.ReorderChildren(ctx, id, model.KindIngredient, 0, 2))
	assert.Equal(t, []string{"B", "C", "A", "D"}, names())

	require.NoError(t, env.repo.ReorderChildren(ctx, id, model.KindIngredient, 2, 0))
	assert.Equal(t, []string{"A", "B", "C", "D"}, names())
	env.requireDense(t)
}

func TestReorderChildren_Preconditions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createLibrary(t, "Stew")[0]
	_, err := env.repo.AddStep(ctx, id, "one")
	require.NoError(t, err)

	err = env.repo.ReorderChildren(ctx, id, model.KindStep, 0, 0)
	assert.True(t, model.IsInvalidState(err), "got %v", err)

	err = env.repo.ReorderChildren(ctx, id, model.KindStep, 0, 1)
	assert.True(t, model.IsInvalidState(err), "got %v", err)

	err = env.repo.ReorderChildren(ctx, id, model.ChildKind("garnish"), 0, 1)
	assert.True(t, model.IsValidation(err), "got %v", err)

	err = env.repo.ReorderChildren(ctx, "missing", model.KindStep, 0, 1)
	assert.True(t, model.IsNotFound(err), "got %v", err)
}

func TestRemoveChild_CompactsSiblings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createLibrary(t, "Cake")[0]

	var photoIDs []string
	for _, data := range []string{"p1", "p2", "p3"} {
		p, err := env.repo.AddPhoto(ctx, id, []byte(data))
		require.NoError(t, err)
		photoIDs = append(photoIDs, p.ID)
	}

	require.NoError(t, env.repo.RemoveChild(ctx, model.KindPhoto, photoIDs[0]))

	agg, err := env.repo.Aggregate(ctx, id)
	require.NoError(t, err)
	require.Len(t, agg.Photos, 2)
	assert.Equal(t, photoIDs[1], agg.Photos[0].ID)
	assert.Equal(t, 0, agg.Photos[0].SortOrder)
	assert.Equal(t, 1, agg.Photos[1].SortOrder)

	// Appends after a removal land at the end without collision.
	p, err := env.repo.AddPhoto(ctx, id, []byte("p4"))
	require.NoError(t, err)
	assert.Equal(t, 2, p.SortOrder)
	env.requireDense(t)

	err = env.repo.RemoveChild(ctx, model.KindPhoto, photoIDs[0])
	assert.True(t, model.IsNotFound(err), "got %v", err)
}

func TestAddChild_UnknownRecipe(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.repo.AddIngredient(ctx, "missing", "salt", "")
	assert.True(t, model.IsNotFound(err), "got %v", err)

	_, err = env.repo.AddPhoto(ctx, "missing", []byte("jpeg"))
	assert.True(t, model.IsNotFound(err), "got %v", err)
	assert.Empty(t, env.blobs.puts, "no blob may be written for an unknown recipe")
}

func TestAddPhoto_StoresBlobRef(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createLibrary(t, "Cake")[0]

	p, err := env.repo.AddPhoto(ctx, id, []byte("jpeg"))
	require.NoError(t, err)
	assert.Equal(t, "blob-a", p.BlobRef)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestAddPhoto_WithoutBlobStore(t *testing.T) {
	env := newTestEnv(t, WithBlobs(nil))
	id := env.createLibrary(t, "Cake")[0]

	_, err := env.repo.AddPhoto(context.Background(), id, []byte("jpeg"))
	assert.True(t, model.IsInvalidState(err), "got %v", err)
}

func TestUpdateChildren(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createLibrary(t, "Soup")[0]

	in, err := env.repo.AddIngredient(ctx, id, "leek", "1")
	require.NoError(t, err)
	st, err := env.repo.AddStep(ctx, id, "chop")
	require.NoError(t, err)
	a, err := env.repo.AddAncestryStep(ctx, id, AncestryInput{Country: "Wales", Generation: intPtr(2)})
	require.NoError(t, err)

	in, err = env.repo.UpdateIngredient(ctx, in.ID, "leeks", "2")
	require.NoError(t, err)
	assert.Equal(t, 0, in.SortOrder)
	_, err = env.repo.UpdateStep(ctx, st.ID, "slice")
	require.NoError(t, err)
	_, err = env.repo.UpdateAncestryStep(ctx, a.ID, AncestryInput{Country: "Wales", Region: "Gwynedd"})
	require.NoError(t, err)

	agg, err := env.repo.Aggregate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "leeks", agg.Ingredients[0].Name)
	assert.Equal(t, "2", agg.Ingredients[0].Quantity)
	assert.Equal(t, "slice", agg.Steps[0].Instruction)
	assert.Equal(t, "Gwynedd", agg.Ancestry[0].Region)
	assert.Nil(t, agg.Ancestry[0].Generation)

	_, err = env.repo.UpdateStep(ctx, "missing", "x")
	assert.True(t, model.IsNotFound(err), "got %v", err)
}

func TestAudioNotes_NewestIsPrimary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createLibrary(t, "Tamales")[0]

	_, err := env.repo.AddAudioNote(ctx, id, "first.wav", 3.5)
	require.NoError(t, err)
	second, err := env.repo.AddAudioNote(ctx, id, "second.wav", 4)
	require.NoError(t, err)

	agg, err := env.repo.Aggregate(ctx, id)
	require.NoError(t, err)
	require.Len(t, agg.AudioNotes, 2)
	assert.Equal(t, second.ID, agg.PrimaryAudio().ID)

	require.NoError(t, env.repo.DeleteAudioNote(ctx, second.ID))
	assert.Equal(t, []string{"second.wav"}, env.audio.deleted)

	agg, err = env.repo.Aggregate(ctx, id)
	require.NoError(t, err)
	require.Len(t, agg.AudioNotes, 1)
	assert.Equal(t, "first.wav", agg.PrimaryAudio().Filename)

	err = env.repo.DeleteAudioNote(ctx, second.ID)
	assert.True(t, model.IsNotFound(err), "got %v", err)
}

func TestDeleteAudioNote_FileFailureStillDeletesRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createLibrary(t, "Tamales")[0]
	n, err := env.repo.AddAudioNote(ctx, id, "stuck.wav", 1)
	require.NoError(t, err)
	env.audio.failing["stuck.wav"] = true

	require.NoError(t, env.repo.DeleteAudioNote(ctx, n.ID))

	agg, err := env.repo.Aggregate(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, agg.AudioNotes)
}

func TestAggregate_CachedAndPurgedOnMutation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createLibrary(t, "Pie")[0]

	first, err := env.repo.Aggregate(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, first.Steps)
	assert.Equal(t, 1, env.repo.cache.Len())

	_, err = env.repo.AddStep(ctx, id, "bake")
	require.NoError(t, err)
	assert.Zero(t, env.repo.cache.Len())

	second, err := env.repo.Aggregate(ctx, id)
	require.NoError(t, err)
	assert.Len(t, second.Steps, 1)
}

// Aggregate reads racing with mutations never cache or return a state
// older than the last commit, and every observed state is dense.
func TestAggregate_ConcurrentWithMutations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createLibrary(t, "Stew")[0]
	const n = 20

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		lastSteps := 0
		for {
			select {
			case <-done:
				return
			default:
			}
			agg, err := env.repo.Aggregate(ctx, id)
			if !assert.NoError(t, err) {
				return
			}
			for kind, items := range childOrders(agg) {
				assert.NoError(t, ordering.Check(items), "%s", kind)
			}
			assert.GreaterOrEqual(t, len(agg.Steps), lastSteps, "steps went backwards")
			lastSteps = len(agg.Steps)
		}
	}()

	for i := 0; i < n; i++ {
		_, err := env.repo.AddStep(ctx, id, "step")
		require.NoError(t, err)
		in, err := env.repo.AddIngredient(ctx, id, "salt", "")
		require.NoError(t, err)
		if i%2 == 0 {
			require.NoError(t, env.repo.RemoveChild(ctx, model.KindIngredient, in.ID))
		}
	}
	close(done)
	wg.Wait()

	got, err := env.repo.Aggregate(ctx, id)
	require.NoError(t, err)
	var want model.Aggregate
	require.NoError(t, env.store.View(ctx, func(tx *store.Tx) error {
		var err error
		want, err = tx.LoadAggregate(ctx, id)
		return err
	}))
	assert.Equal(t, want, got)
	assert.Len(t, got.Steps, n)
	assert.Len(t, got.Ingredients, n/2)
}

// childOrders returns the ordered child collections of agg as ordering items.
func childOrders(agg model.Aggregate) map[model.ChildKind][]ordering.Item {
	orders := make(map[model.ChildKind][]ordering.Item, len(model.ChildKinds))
	for _, kind := range model.ChildKinds {
		orders[kind] = []ordering.Item{}
	}
	for _, c := range agg.Ingredients {
		orders[model.KindIngredient] = append(orders[model.KindIngredient], ordering.Item{ID: c.ID, SortOrder: c.SortOrder})
	}
	for _, c := range agg.Steps {
		orders[model.KindStep] = append(orders[model.KindStep], ordering.Item{ID: c.ID, SortOrder: c.SortOrder})
	}
	for _, c := range agg.Ancestry {
		orders[model.KindAncestry] = append(orders[model.KindAncestry], ordering.Item{ID: c.ID, SortOrder: c.SortOrder})
	}
	for _, c := range agg.Photos {
		orders[model.KindPhoto] = append(orders[model.KindPhoto], ordering.Item{ID: c.ID, SortOrder: c.SortOrder})
	}
	return orders
}
