package bench

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AxiomAlive/imba-automl/automl"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "bench.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleRecord() RunRecord {
	return RunRecord{
		StartedAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Dataset:      "datasets/credit.csv",
		Target:       "class",
		Metric:       "f1",
		Seed:         42,
		Budget:       20,
		BestFamily:   "gbdt_leafwise",
		BestScore:    0.91,
		HoldoutScore: 0.88,
		ElapsedSec:   73.5,
		Host:         HostInfo{Hostname: "worker-1", NumCPU: 8, TotalMemoryMB: 16384},
	}
}

func TestSaveAndListRuns(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	trials := []automl.Trial{
		{ID: 0, Family: "gbdt_leafwise", Loss: -0.91, Duration: 2 * time.Second},
		{ID: 1, Family: "mlp", Err: assert.AnError, Duration: time.Second},
	}

	runID, err := store.SaveRun(ctx, sampleRecord(), trials)
	require.NoError(t, err)
	assert.Greater(t, runID, int64(0))

	records, err := store.ListRuns(ctx, "")
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "gbdt_leafwise", rec.BestFamily)
	assert.InDelta(t, 0.91, rec.BestScore, 1e-9)
	assert.InDelta(t, 0.88, rec.HoldoutScore, 1e-9)
	assert.Equal(t, "worker-1", rec.Host.Hostname)
}

func TestListRunsDatasetFilter(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	recA := sampleRecord()
	recB := sampleRecord()
	recB.Dataset = "datasets/churn.csv"

	_, err := store.SaveRun(ctx, recA, nil)
	require.NoError(t, err)
	_, err = store.SaveRun(ctx, recB, nil)
	require.NoError(t, err)

	records, err := store.ListRuns(ctx, "datasets/churn.csv")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "datasets/churn.csv", records[0].Dataset)
}

func TestFamilySummaryOrdering(t *testing.T) {
	trials := []automl.Trial{
		{ID: 0, Family: "a", Loss: -0.5},
		{ID: 1, Family: "b", Loss: -0.9},
		{ID: 2, Family: "b", Loss: -0.7},
		{ID: 3, Family: "c", Err: assert.AnError},
	}

	rows := familySummary(trials)
	require.Len(t, rows, 3)
	assert.Equal(t, "b", rows[0].family)
	assert.Equal(t, "0.9000", rows[0].bestScore)
	assert.Equal(t, 2, rows[0].trials)
	assert.Equal(t, "c", rows[2].family)
	assert.Equal(t, "-", rows[2].bestScore)
	assert.Equal(t, 1, rows[2].failed)
}
