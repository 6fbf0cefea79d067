package application

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/example/roomsched/internal/calendar"
)

// laborCache memoizes derived shift sets so repeated derivations for an
// unchanged event and policy skip the calculator. The key captures every
// input the calculator reads, so a policy change naturally misses.
type laborCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]laborCacheEntry
}

type laborCacheEntry struct {
	result    laborResult
	expiresAt time.Time
}

type laborResult struct {
	shifts   []calendar.ShiftRequirement
	warnings []calendar.CapacityWarning
}

func newLaborCache(ttl time.Duration, maxEntries int, now func() time.Time) *laborCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 256
	}
	if now == nil {
		now = time.Now
	}
	return &laborCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]laborCacheEntry),
	}
}

func (c *laborCache) Get(event calendar.Event, room calendar.Room) (laborResult, bool) {
	if c == nil {
		return laborResult{}, false
	}
	key := laborCacheKey(event, room)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return laborResult{}, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return laborResult{}, false
	}
	return cloneLaborResult(entry.result), true
}

func (c *laborCache) Store(event calendar.Event, room calendar.Room, shifts []calendar.ShiftRequirement, warnings []calendar.CapacityWarning) {
	if c == nil {
		return
	}
	entry := laborCacheEntry{
		result:    cloneLaborResult(laborResult{shifts: shifts, warnings: warnings}),
		expiresAt: c.now().Add(c.ttl),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[laborCacheKey(event, room)] = entry
}

func (c *laborCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *laborCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneLaborResult(result laborResult) laborResult {
	out := laborResult{shifts: calendar.CloneShifts(result.shifts)}
	if len(result.warnings) > 0 {
		out.warnings = make([]calendar.CapacityWarning, len(result.warnings))
		copy(out.warnings, result.warnings)
	}
	return out
}

func laborCacheKey(event calendar.Event, room calendar.Room) string {
	builder := strings.Builder{}
	builder.WriteString(event.ID)
	builder.WriteString("|")
	builder.WriteString(event.Start.UTC().Format(time.RFC3339Nano))
	builder.WriteString("|")
	builder.WriteString(event.End.UTC().Format(time.RFC3339Nano))
	builder.WriteString("|")
	builder.WriteString(strconv.FormatFloat(event.PurchasedHours, 'g', -1, 64))
	builder.WriteString("|")
	builder.WriteString(room.ID)
	builder.WriteString("|")
	builder.WriteString(room.Policy.MinShiftLength.String())
	builder.WriteString("|")
	builder.WriteString(room.Policy.MaxShiftSpan.String())
	builder.WriteString("|")
	builder.WriteString(strconv.FormatFloat(room.Policy.MaxHoursPerShift, 'g', -1, 64))
	builder.WriteString("|")
	builder.WriteString(strconv.Itoa(room.Policy.MaxWorkersPerShift))
	builder.WriteString("|")
	builder.WriteString(strconv.Itoa(room.Capacity))
	return builder.String()
}
