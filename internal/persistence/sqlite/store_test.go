package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/roomsched/internal/calendar"
	"github.com/example/roomsched/internal/persistence"
	"github.com/example/roomsched/internal/persistence/sqlite"
)

func openTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open("file:" + filepath.Join(t.TempDir(), "roomsched.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleSnapshot() persistence.Snapshot {
	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	return persistence.Snapshot{Records: []persistence.Record{
		{
			Event: calendar.Event{
				ID:             "event-1",
				RoomID:         "room-a",
				Title:          "Planning Meeting",
				Start:          start,
				End:            start.Add(3 * time.Hour),
				PurchasedHours: 6,
				Status:         calendar.StatusActive,
				CreatedAt:      start.Add(-time.Hour),
				UpdatedAt:      start.Add(-time.Hour),
			},
			Shifts: []calendar.ShiftRequirement{
				{EventID: "event-1", Start: start, End: start.Add(90 * time.Minute), WorkersNeeded: 2},
				{EventID: "event-1", Start: start.Add(90 * time.Minute), End: start.Add(3 * time.Hour), WorkersNeeded: 2},
			},
		},
		{
			Event: calendar.Event{
				ID:        "event-2",
				RoomID:    "room-b",
				Title:     "Cancelled Standup",
				Start:     start.Add(4 * time.Hour),
				End:       start.Add(5 * time.Hour),
				Status:    calendar.StatusDeleted,
				CreatedAt: start,
				UpdatedAt: start.Add(time.Minute),
			},
		},
	}}
}

func TestRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	want := sampleSnapshot()
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadEmptyDatabase(t *testing.T) {
	store := openTestStore(t)

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got.Records)
}

func TestSaveReplacesPreviousState(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSnapshot()))

	replacement := persistence.Snapshot{Records: []persistence.Record{
		sampleSnapshot().Records[1],
	}}
	require.NoError(t, store.Save(ctx, replacement))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got.Records, 1)
	assert.Equal(t, "event-2", got.Records[0].Event.ID)
	assert.Empty(t, got.Records[0].Shifts)
}

func TestShiftOrderSurvivesReload(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSnapshot()))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got.Records[0].Shifts, 2)
	assert.True(t, got.Records[0].Shifts[0].Start.Before(got.Records[0].Shifts[1].Start))
}

func TestClosedStoreRejectsUse(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Close())

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, persistence.ErrClosed)
	assert.ErrorIs(t, store.Save(context.Background(), persistence.Snapshot{}), persistence.ErrClosed)
}
