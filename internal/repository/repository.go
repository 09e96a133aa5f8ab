package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/tomioM/recipe-voyage-sub000/internal/metrics"
	"github.com/tomioM/recipe-voyage-sub000/internal/model"
	"github.com/tomioM/recipe-voyage-sub000/internal/store"
)

// AudioFiles is the part of the audio service the repository needs.
type AudioFiles interface {
	// DeleteFile removes an audio file. A missing file is not an error.
	DeleteFile(ctx context.Context, filename string) error
}

// BlobWriter is the part of the blob store the repository needs.
type BlobWriter interface {
	// Put stores data and returns an opaque reference to it.
	Put(ctx context.Context, data []byte) (string, error)
}

// DefaultCacheSize is the default number of aggregates kept in the read cache.
const DefaultCacheSize = 128

// Repository owns every mutation of the recipe collection.
//
// Thread-safety model:
//   - Mutations: serialized by mu (single writer)
//   - Snapshot(): lock-free, reads an atomic pointer
//   - Aggregate(): cache hits are lock-free; misses load one committed
//     state under mu and fill the cache
type Repository struct {
	mu      sync.Mutex
	store   *store.Store
	clock   Clock
	ids     IDGenerator
	logger  *slog.Logger
	audio   AudioFiles
	blobs   BlobWriter
	metrics *metrics.Metrics

	cacheSize int
	cacheTTL  time.Duration
	cache     *expirable.LRU[string, model.Aggregate]

	snapshot atomic.Pointer[Snapshot]
	version  atomic.Int64
	hub      *hub
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock sets the creation-time source. Default: SystemClock.
func WithClock(c Clock) Option {
	return func(r *Repository) { r.clock = c }
}

// WithIDGenerator sets the id source. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Repository) { r.ids = g }
}

// WithLogger sets the logger. Default: a logger that discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) { r.logger = l }
}

// WithAudio sets the audio file collaborator used by deletes.
func WithAudio(a AudioFiles) Option {
	return func(r *Repository) { r.audio = a }
}

// WithBlobs sets the blob store used by AddPhoto.
func WithBlobs(b BlobWriter) Option {
	return func(r *Repository) { r.blobs = b }
}

// WithMetrics sets the metrics sink. Default: nil (no metrics).
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Repository) { r.metrics = m }
}

// WithCache sets the aggregate cache size and entry TTL. A ttl of zero
// keeps entries until evicted or purged.
func WithCache(size int, ttl time.Duration) Option {
	return func(r *Repository) {
		r.cacheSize = size
		r.cacheTTL = ttl
	}
}

// New creates a Repository over s and loads the initial snapshot.
func New(ctx context.Context, s *store.Store, opts ...Option) (*Repository, error) {
	r := &Repository{
		store:     s,
		clock:     SystemClock{},
		ids:       UUIDv7Generator{},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		cacheSize: DefaultCacheSize,
		hub:       newHub(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cacheSize <= 0 {
		r.cacheSize = DefaultCacheSize
	}
	r.cache = expirable.NewLRU[string, model.Aggregate](r.cacheSize, nil, r.cacheTTL)
	r.snapshot.Store(&Snapshot{Library: []model.Recipe{}, Inbox: []model.Recipe{}})

	if err := r.Refresh(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Close ends every open subscription.
func (r *Repository) Close() {
	r.hub.closeAll()
}

// Snapshot returns the last published views.
func (r *Repository) Snapshot() *Snapshot {
	return r.snapshot.Load()
}

// Subscribe returns a stream of change events, one per published snapshot.
// Close the subscription when done.
func (r *Repository) Subscribe() *Subscription {
	return r.hub.subscribe()
}

// Refresh reloads both views from the store and publishes them.
func (r *Repository) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.reload(ctx, "refresh", ""); err != nil {
		return model.NewStoreFailure("refresh", err)
	}
	return nil
}

// Aggregate returns a recipe with all of its children.
func (r *Repository) Aggregate(ctx context.Context, id string) (model.Aggregate, error) {
	if agg, ok := r.cache.Get(id); ok {
		r.metrics.CacheHit()
		return agg, nil
	}
	r.metrics.CacheMiss()

	// Misses fill under the writer lock so a load cannot straddle a commit
	// and its cache purge.
	r.mu.Lock()
	defer r.mu.Unlock()
	if agg, ok := r.cache.Get(id); ok {
		return agg, nil
	}

	var agg model.Aggregate
	err := r.store.View(ctx, func(tx *store.Tx) error {
		var err error
		agg, err = tx.LoadAggregate(ctx, id)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return model.Aggregate{}, model.NewNotFound("get_recipe", "recipe", id)
	}
	if err != nil {
		return model.Aggregate{}, model.NewStoreFailure("get_recipe", err)
	}
	r.cache.Add(id, agg)
	return agg, nil
}

// mutate runs fn in one store transaction under the writer lock, then
// reloads and publishes the views. Errors returned by fn that are already
// *model.Error keep their code; anything else is a store failure.
func (r *Repository) mutate(ctx context.Context, op, recipeID string, fn func(tx *store.Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mutateLocked(ctx, op, recipeID, fn)
}

// mutateLocked is mutate for callers that already hold mu.
func (r *Repository) mutateLocked(ctx context.Context, op, recipeID string, fn func(tx *store.Tx) error) (err error) {
	start := time.Now()
	defer func() { r.metrics.ObserveMutation(op, start, err) }()

	if err := r.store.Update(ctx, fn); err != nil {
		return r.classify(op, err)
	}
	r.cache.Purge()

	// The transaction is committed. A failed reload leaves the previous
	// snapshot published; the next successful reload catches up.
	if err := r.reload(ctx, op, recipeID); err != nil {
		r.metrics.RefreshFailed()
		r.logger.Error("view reload failed after commit",
			"op", op,
			"recipe_id", recipeID,
			"error", err)
	}
	return nil
}

func (r *Repository) classify(op string, err error) error {
	var me *model.Error
	if errors.As(err, &me) {
		if me.Op == "" {
			return me.WithOp(op)
		}
		return me
	}
	r.logger.Error("store transaction failed",
		"op", op,
		"error", err)
	return model.NewStoreFailure(op, err)
}

// reload reads both views and publishes a new snapshot. Caller holds mu.
func (r *Repository) reload(ctx context.Context, op, recipeID string) error {
	library, err := r.store.ListLibrary(ctx)
	if err != nil {
		return fmt.Errorf("reload library: %w", err)
	}
	inbox, err := r.store.ListInbox(ctx)
	if err != nil {
		return fmt.Errorf("reload inbox: %w", err)
	}

	snap := &Snapshot{
		Version: r.version.Add(1),
		Library: library,
		Inbox:   inbox,
	}
	r.snapshot.Store(snap)
	r.metrics.SnapshotPublished(snap.Version, len(library), len(inbox))
	r.hub.publish(ChangeEvent{Op: op, RecipeID: recipeID, Snapshot: snap})

	r.logger.Debug("snapshot published",
		"op", op,
		"version", snap.Version,
		"library", len(library),
		"inbox", len(inbox))
	return nil
}

// notFound maps store.ErrNotFound to a NOT_FOUND error and passes anything
// else through.
func notFound(op, entity, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return model.NewNotFound(op, entity, id)
	}
	return err
}
