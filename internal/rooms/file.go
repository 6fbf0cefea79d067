package rooms

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/roomsched/internal/calendar"
)

// fileRoom is the YAML shape of a single room entry.
type fileRoom struct {
	ID                 string        `yaml:"id"`
	Name               string        `yaml:"name"`
	Capacity           int           `yaml:"capacity"`
	MinShiftLength     time.Duration `yaml:"min_shift_length"`
	MaxShiftSpan       time.Duration `yaml:"max_shift_span"`
	MaxHoursPerShift   float64       `yaml:"max_hours_per_shift"`
	MaxWorkersPerShift int           `yaml:"max_workers_per_shift"`
}

type fileDocument struct {
	Rooms []fileRoom `yaml:"rooms"`
}

// LoadFile reads a YAML room list and builds a StaticDirectory from it.
func LoadFile(path string) (*StaticDirectory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rooms file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML room document.
func Parse(data []byte) (*StaticDirectory, error) {
	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode rooms file: %w", err)
	}
	if len(doc.Rooms) == 0 {
		return nil, fmt.Errorf("rooms file declares no rooms")
	}

	list := make([]calendar.Room, 0, len(doc.Rooms))
	seen := make(map[string]struct{}, len(doc.Rooms))
	for i, entry := range doc.Rooms {
		if entry.ID == "" {
			return nil, fmt.Errorf("rooms[%d]: id is required", i)
		}
		if _, dup := seen[entry.ID]; dup {
			return nil, fmt.Errorf("rooms[%d]: duplicate id %q", i, entry.ID)
		}
		seen[entry.ID] = struct{}{}
		if entry.Capacity <= 0 {
			return nil, fmt.Errorf("rooms[%d]: capacity must be positive", i)
		}

		room := calendar.Room{
			ID:       entry.ID,
			Name:     entry.Name,
			Capacity: entry.Capacity,
			Policy: calendar.RoomPolicy{
				MinShiftLength:     entry.MinShiftLength,
				MaxShiftSpan:       entry.MaxShiftSpan,
				MaxHoursPerShift:   entry.MaxHoursPerShift,
				MaxWorkersPerShift: entry.MaxWorkersPerShift,
			},
		}
		if room.Name == "" {
			room.Name = room.ID
		}
		list = append(list, room)
	}

	return NewStaticDirectory(list), nil
}
