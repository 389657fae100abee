package tracestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInsertAndRecentByFingerprint(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, SQLite, ":memory:")
	require.NoError(t, err)
	defer store.Close()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Insert(ctx, Record{
		RunID:       "run-1",
		Fingerprint: "fp-a",
		StartedAt:   now,
		FinishedAt:  now.Add(time.Millisecond),
		OpLimit:     0,
		TapeSize:    30000,
		Succeeded:   true,
		OutputBytes: 13,
	}))
	require.NoError(t, store.Insert(ctx, Record{
		RunID:       "run-2",
		Fingerprint: "fp-a",
		StartedAt:   now.Add(time.Second),
		FinishedAt:  now.Add(time.Second + time.Millisecond),
		OpLimit:     100,
		TapeSize:    30000,
		Succeeded:   false,
		ErrorDetail: "pointer overflow: position 30000 exceeds tape length 30000 (at line 1, column 1)",
	}))

	recs, err := store.RecentByFingerprint(ctx, "fp-a", 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, "run-2", recs[0].RunID)
	require.False(t, recs[0].Succeeded)
	require.Equal(t, "run-1", recs[1].RunID)
	require.True(t, recs[1].Succeeded)

	recs, err = store.RecentByFingerprint(ctx, "fp-missing", 10)
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Backend("oracle"), "")
	require.Error(t, err)
}
