package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/roomsched/internal/calendar"
)

// SnapshotSource exports the current committed state. The event store
// satisfies this interface.
type SnapshotSource interface {
	Snapshot() ([]calendar.Event, map[string][]calendar.ShiftRequirement)
}

// Autosaver flushes committed state to a Store in the background. Commit
// notifications only mark the state dirty; actual writes happen on the cron
// schedule and on Stop, so the scheduling core never waits on storage I/O.
type Autosaver struct {
	store  Store
	source SnapshotSource
	logger *slog.Logger
	cron   *cron.Cron

	mu    sync.Mutex
	dirty bool

	stopOnce sync.Once
}

// NewAutosaver builds an autosaver flushing on the given cron spec
// (robfig/cron syntax, e.g. "@every 1m" or "*/5 * * * *").
func NewAutosaver(store Store, source SnapshotSource, spec string, logger *slog.Logger) (*Autosaver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Autosaver{
		store:  store,
		source: source,
		logger: logger,
		cron:   cron.New(),
	}
	if _, err := a.cron.AddFunc(spec, a.flushScheduled); err != nil {
		return nil, fmt.Errorf("invalid autosave schedule %q: %w", spec, err)
	}
	return a, nil
}

// Start begins the background flush schedule.
func (a *Autosaver) Start() {
	a.cron.Start()
}

// Stop halts the schedule and performs a final flush of any dirty state.
func (a *Autosaver) Stop(ctx context.Context) error {
	var err error
	a.stopOnce.Do(func() {
		stopCtx := a.cron.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
		}
		err = a.Flush(ctx)
	})
	return err
}

// Notify marks the state dirty. It is safe to register as a commit hook:
// it never blocks and never performs I/O.
func (a *Autosaver) Notify(calendar.Event, []calendar.ShiftRequirement) {
	a.mu.Lock()
	a.dirty = true
	a.mu.Unlock()
}

// Flush writes the current snapshot if any commit happened since the last
// write.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	if !a.dirty {
		a.mu.Unlock()
		return nil
	}
	a.dirty = false
	a.mu.Unlock()

	events, shifts := a.source.Snapshot()
	if err := a.store.Save(ctx, JoinSnapshot(events, shifts)); err != nil {
		// Keep the dirty mark so the next run retries.
		a.mu.Lock()
		a.dirty = true
		a.mu.Unlock()
		return err
	}
	return nil
}

func (a *Autosaver) flushScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.Flush(ctx); err != nil {
		a.logger.Error("autosave flush failed", "error", err)
	}
}
