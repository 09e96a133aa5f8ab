package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomioM/recipe-voyage-sub000/internal/model"
)

func TestObserveMutation_LabelsByResultCode(t *testing.T) {
	m := New()
	start := time.Now()

	m.ObserveMutation("create_recipe", start, nil)
	m.ObserveMutation("create_recipe", start, model.NewValidationError("title", "title is required"))
	m.ObserveMutation("create_recipe", start, errors.New("plain"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.mutationsTotal.WithLabelValues("create_recipe", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mutationsTotal.WithLabelValues("create_recipe", "VALIDATION")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mutationsTotal.WithLabelValues("create_recipe", "error")))
}

func TestCounters(t *testing.T) {
	m := New()

	m.CleanupFailed()
	m.CleanupFailed()
	m.CacheHit()
	m.CacheMiss()
	m.RefreshFailed()
	m.AutoInbox("sent")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cleanupFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheHitsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheMissesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.autoInboxTotal.WithLabelValues("sent")))
}

func TestSnapshotPublished(t *testing.T) {
	m := New()

	m.SnapshotPublished(7, 3, 2)

	assert.Equal(t, 7.0, testutil.ToFloat64(m.snapshotVersion))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.viewSize.WithLabelValues("library")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.viewSize.WithLabelValues("inbox")))
}

func TestNilMetrics_IsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveMutation("x", time.Now(), nil)
		m.CleanupFailed()
		m.CacheHit()
		m.CacheMiss()
		m.SnapshotPublished(1, 1, 1)
		m.RefreshFailed()
		m.AutoInbox("skipped")
	})
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.CleanupFailed()
	path := filepath.Join(t.TempDir(), "voyage.prom")

	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "voyage_cleanup_failures_total 1"))
}
