package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	t.Parallel()

	m := New()
	m.RebuildFinished(true, 120*time.Millisecond, 42)
	m.RebuildFinished(false, time.Second, 0)
	m.RebuildFinished(true, 10*time.Millisecond, 7)
	m.VisitFetchFailed()
	m.Deleted(true)
	m.Deleted(true)
	m.Deleted(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.rebuilds.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rebuilds.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchFailures))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.deletions.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deletions.WithLabelValues("failure")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.forestNodes))

	count, err := testutil.GatherAndCount(m.Registry(), "histree_rebuild_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	assert.NotPanics(t, func() {
		m.RebuildFinished(true, time.Second, 1)
		m.VisitFetchFailed()
		m.Deleted(false)
	})
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	t.Parallel()

	m := New()
	m.Deleted(true)

	path := filepath.Join(t.TempDir(), "histree.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `histree_deletions_total{result="success"} 1`))
}

func TestMetrics_WriteTextfileBadPath(t *testing.T) {
	t.Parallel()

	m := New()
	err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "writing metrics")
}
