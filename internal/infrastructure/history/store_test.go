package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasmofleet/internal/domain/update"
	"tasmofleet/internal/shared/logger"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"), logger.NewLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndListRuns(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	summary := update.Summarize([]*update.Outcome{
		{
			Address:         "192.168.1.50",
			Name:            "kitchen-plug",
			Success:         true,
			Message:         "update successful",
			CurrentVersion:  "12.4.0",
			LatestVersion:   "12.4.0",
			NeedsUpdate:     true,
			UpdateStarted:   true,
			UpdateCompleted: true,
			Elapsed:         42 * time.Second,
		},
		{
			Address:        "192.168.1.51",
			Success:        false,
			Message:        "failed to get current firmware version: device unreachable",
			CurrentVersion: "Unknown",
			LatestVersion:  "12.4.0",
		},
	})

	started := time.Now().Add(-time.Minute)
	finished := time.Now()
	require.NoError(t, store.RecordRun(ctx, summary, false, false, started, finished))

	runs, err := store.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	run := runs[0]
	assert.Equal(t, 2, run.Total)
	assert.Equal(t, 1, run.NeedsUpdate)
	assert.Equal(t, 1, run.Updated)
	require.Len(t, run.Outcomes, 2)

	// Outcomes come back in input device order.
	assert.Equal(t, "192.168.1.50", run.Outcomes[0].Address)
	assert.Equal(t, "192.168.1.51", run.Outcomes[1].Address)
	assert.Equal(t, int64(42000), run.Outcomes[0].ElapsedMS)
	assert.False(t, run.Outcomes[1].UpdateStarted)
}

func TestRecentRunsOrderAndLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		summary := update.Summarize([]*update.Outcome{{Address: "192.168.1.50", Success: true}})
		started := time.Now().Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.RecordRun(ctx, summary, true, false, started, started.Add(time.Second)))
	}

	runs, err := store.RecentRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, runs[0].StartedAt.After(runs[1].StartedAt))
	assert.True(t, runs[0].CheckOnly)
}
