package repository

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tomioM/recipe-voyage-sub000/internal/metrics"
	"github.com/tomioM/recipe-voyage-sub000/internal/model"
	"github.com/tomioM/recipe-voyage-sub000/internal/ordering"
	"github.com/tomioM/recipe-voyage-sub000/internal/store"
	"github.com/tomioM/recipe-voyage-sub000/internal/testutil"
)

// fakeAudio records DeleteFile calls and fails for names in failing.
type fakeAudio struct {
	mu      sync.Mutex
	deleted []string
	failing map[string]bool
}

func (f *fakeAudio) DeleteFile(_ context.Context, filename string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, filename)
	if f.failing[filename] {
		return errors.New("permission denied")
	}
	return nil
}

// fakeBlobs hands out sequential refs.
type fakeBlobs struct {
	mu   sync.Mutex
	puts [][]byte
}

func (f *fakeBlobs) Put(_ context.Context, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, data)
	return "blob-" + string(rune('a'+len(f.puts)-1)), nil
}

type testEnv struct {
	repo  *Repository
	store *store.Store
	audio *fakeAudio
	blobs *fakeBlobs
}

// newTestEnv creates a repository over a temp-dir store with deterministic
// ids and clock.
func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	env := &testEnv{store: s, audio: &fakeAudio{failing: map[string]bool{}}, blobs: &fakeBlobs{}}
	base := []Option{
		WithClock(testutil.NewDeterministicClock()),
		WithIDGenerator(testutil.NewSequentialIDGenerator("id")),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAudio(env.audio),
		WithBlobs(env.blobs),
	}
	env.repo, err = New(context.Background(), s, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(env.repo.Close)
	return env
}

// createLibrary creates one library recipe per title, in order.
func (e *testEnv) createLibrary(t *testing.T, titles ...string) []string {
	t.Helper()
	ids := make([]string, len(titles))
	for i, title := range titles {
		rec, err := e.repo.CreateRecipe(context.Background(), RecipeInput{Title: title})
		require.NoError(t, err)
		ids[i] = rec.ID
	}
	return ids
}

// libraryTitles returns the library in display order by title.
func (e *testEnv) libraryTitles() []string {
	snap := e.repo.Snapshot()
	titles := make([]string, len(snap.Library))
	for i, r := range snap.Library {
		titles[i] = r.Title
	}
	return titles
}

// requireDense asserts the library and every child collection of every
// recipe satisfy the density invariant.
func (e *testEnv) requireDense(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	lib, err := e.store.LibraryOrder(ctx)
	require.NoError(t, err)
	require.NoError(t, ordering.Check(lib), "library")

	snap := e.repo.Snapshot()
	for _, r := range append(append([]model.Recipe{}, snap.Library...), snap.Inbox...) {
		for _, kind := range model.ChildKinds {
			order, err := e.store.ChildOrder(ctx, kind, r.ID)
			require.NoError(t, err)
			require.NoError(t, ordering.Check(order), "%s of %s", kind, r.ID)
		}
	}
}

func intPtr(i int) *int { return &i }

// metricValue returns the value of the first sample of an unlabeled
// counter or gauge family.
func metricValue(t *testing.T, m *metrics.Metrics, name string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name || len(f.GetMetric()) == 0 {
			continue
		}
		sample := f.GetMetric()[0]
		if c := sample.GetCounter(); c != nil {
			return c.GetValue()
		}
		if g := sample.GetGauge(); g != nil {
			return g.GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}
