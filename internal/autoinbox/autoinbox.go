// Package autoinbox periodically resurfaces a library recipe in the inbox,
// as if a relative had just sent it.
//
// A tick does nothing unless the inbox is empty and the library is not.
// The recipe and sender are picked uniformly at random. The job is best
// effort: failures are logged and the next tick tries again.
package autoinbox

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/tomioM/recipe-voyage-sub000/internal/metrics"
	"github.com/tomioM/recipe-voyage-sub000/internal/repository"
)

// Collection is the part of the repository the job needs.
type Collection interface {
	Snapshot() *repository.Snapshot
	SendToInbox(ctx context.Context, id, sender string) error
}

// DefaultSenders are used when no senders are configured.
var DefaultSenders = []string{"Grandma", "Aunt Rosa", "Uncle Theo"}

// Option configures the job.
type Option func(*Job)

// WithInterval sets how often the job ticks.
func WithInterval(d time.Duration) Option {
	return func(j *Job) { j.interval = d }
}

// WithSenders sets the names a resurfaced recipe can come from.
func WithSenders(names ...string) Option {
	return func(j *Job) {
		if len(names) > 0 {
			j.senders = names
		}
	}
}

// WithRand sets the random source. Tests pass a seeded source.
func WithRand(r *rand.Rand) Option {
	return func(j *Job) { j.rng = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(j *Job) { j.logger = l }
}

// WithMetrics counts tick outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(j *Job) { j.metrics = m }
}

// Job is the background auto-inbox loop.
type Job struct {
	coll     Collection
	interval time.Duration
	senders  []string
	logger   *slog.Logger
	metrics  *metrics.Metrics

	rngMu sync.Mutex
	rng   *rand.Rand

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a job over coll. Default interval: one hour.
func New(coll Collection, opts ...Option) *Job {
	j := &Job{
		coll:     coll,
		interval: time.Hour,
		senders:  DefaultSenders,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Start begins the background loop. Non-blocking.
func (j *Job) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		j.logger.Warn("auto-inbox already running")
		return
	}

	childCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.running = true
	j.done = make(chan struct{})

	go j.loop(childCtx, j.done)

	j.logger.Info("auto-inbox started", "interval", j.interval)
}

// Stop shuts the loop down and waits for an in-flight tick to finish.
func (j *Job) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	j.cancel()
	j.running = false
	done := j.done
	j.mu.Unlock()

	<-done
	j.logger.Info("auto-inbox stopped")
}

func (j *Job) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = j.RunOnce(ctx)
		}
	}
}

// RunOnce performs one tick. Returns the id of the recipe sent to the
// inbox, or "" when the tick was skipped.
func (j *Job) RunOnce(ctx context.Context) (string, error) {
	snap := j.coll.Snapshot()
	if len(snap.Inbox) > 0 || len(snap.Library) == 0 {
		j.metrics.AutoInbox("skipped")
		j.logger.Debug("auto-inbox skipped",
			"inbox", len(snap.Inbox),
			"library", len(snap.Library))
		return "", nil
	}

	j.rngMu.Lock()
	pick := snap.Library[j.rng.Intn(len(snap.Library))]
	sender := j.senders[j.rng.Intn(len(j.senders))]
	j.rngMu.Unlock()

	if err := j.coll.SendToInbox(ctx, pick.ID, sender); err != nil {
		j.metrics.AutoInbox("error")
		j.logger.Error("auto-inbox send failed",
			"recipe_id", pick.ID,
			"error", err)
		return "", err
	}
	j.metrics.AutoInbox("sent")
	j.logger.Info("recipe resurfaced in inbox",
		"recipe_id", pick.ID,
		"sender", sender)
	return pick.ID, nil
}
