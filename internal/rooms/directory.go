// Package rooms supplies the directory of valid rooms and their staffing
// policies. The scheduling core treats it as a fast, read-only lookup.
package rooms

import (
	"context"
	"sort"
	"sync"

	"github.com/example/roomsched/internal/calendar"
)

// Directory resolves room identifiers to their policy snapshot.
type Directory interface {
	Resolve(ctx context.Context, roomID string) (calendar.Room, error)
}

// StaticDirectory is an in-memory Directory backed by a fixed room set.
type StaticDirectory struct {
	mu    sync.RWMutex
	rooms map[string]calendar.Room
}

// NewStaticDirectory builds a directory from the given rooms.
func NewStaticDirectory(list []calendar.Room) *StaticDirectory {
	rooms := make(map[string]calendar.Room, len(list))
	for _, room := range list {
		rooms[room.ID] = room
	}
	return &StaticDirectory{rooms: rooms}
}

// Resolve returns the room for the given id.
func (d *StaticDirectory) Resolve(ctx context.Context, roomID string) (calendar.Room, error) {
	d.mu.RLock()
	room, ok := d.rooms[roomID]
	d.mu.RUnlock()
	if !ok {
		return calendar.Room{}, calendar.ErrRoomNotFound
	}
	return room, nil
}

// Upsert adds or replaces a room entry. Policy changes take effect on the
// next operation because the core never caches directory lookups.
func (d *StaticDirectory) Upsert(room calendar.Room) {
	d.mu.Lock()
	d.rooms[room.ID] = room
	d.mu.Unlock()
}

// List returns all rooms ordered by id.
func (d *StaticDirectory) List() []calendar.Room {
	d.mu.RLock()
	out := make([]calendar.Room, 0, len(d.rooms))
	for _, room := range d.rooms {
		out = append(out, room)
	}
	d.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
