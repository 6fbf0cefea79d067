package rooms_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/roomsched/internal/calendar"
	"github.com/example/roomsched/internal/rooms"
)

const sampleDocument = `
rooms:
  - id: room-a
    name: Conference Room
    capacity: 10
    min_shift_length: 1h
    max_shift_span: 4h
    max_hours_per_shift: 8
    max_workers_per_shift: 5
  - id: room-b
    capacity: 2
    min_shift_length: 30m
    max_shift_span: 2h
    max_hours_per_shift: 4
    max_workers_per_shift: 1
`

func TestParse(t *testing.T) {
	directory, err := rooms.Parse([]byte(sampleDocument))
	require.NoError(t, err)

	list := directory.List()
	require.Len(t, list, 2)

	roomA := list[0]
	assert.Equal(t, "room-a", roomA.ID)
	assert.Equal(t, "Conference Room", roomA.Name)
	assert.Equal(t, 10, roomA.Capacity)
	assert.Equal(t, time.Hour, roomA.Policy.MinShiftLength)
	assert.Equal(t, 4*time.Hour, roomA.Policy.MaxShiftSpan)
	assert.Equal(t, 8.0, roomA.Policy.MaxHoursPerShift)
	assert.Equal(t, 5, roomA.Policy.MaxWorkersPerShift)

	// Missing names default to the id.
	assert.Equal(t, "room-b", list[1].Name)
	assert.Equal(t, 30*time.Minute, list[1].Policy.MinShiftLength)
}

func TestParseRejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", `rooms: []`},
		{"missing id", "rooms:\n  - name: Nameless\n    capacity: 3\n"},
		{"duplicate id", "rooms:\n  - id: room-a\n    capacity: 3\n  - id: room-a\n    capacity: 4\n"},
		{"zero capacity", "rooms:\n  - id: room-a\n    capacity: 0\n"},
		{"not yaml", `{{nonsense`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := rooms.Parse([]byte(tc.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rooms.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleDocument), 0o644))

	directory, err := rooms.LoadFile(path)
	require.NoError(t, err)

	room, err := directory.Resolve(context.Background(), "room-b")
	require.NoError(t, err)
	assert.Equal(t, 2, room.Capacity)

	_, err = directory.Resolve(context.Background(), "room-x")
	assert.True(t, errors.Is(err, calendar.ErrRoomNotFound))
}

func TestLoadFileMissing(t *testing.T) {
	_, err := rooms.LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestUpsertReplacesPolicy(t *testing.T) {
	directory, err := rooms.Parse([]byte(sampleDocument))
	require.NoError(t, err)

	updated := calendar.Room{
		ID:       "room-a",
		Name:     "Conference Room",
		Capacity: 10,
		Policy:   calendar.RoomPolicy{MinShiftLength: time.Hour, MaxShiftSpan: 4 * time.Hour, MaxHoursPerShift: 8, MaxWorkersPerShift: 2},
	}
	directory.Upsert(updated)

	room, err := directory.Resolve(context.Background(), "room-a")
	require.NoError(t, err)
	assert.Equal(t, 2, room.Policy.MaxWorkersPerShift)
}
