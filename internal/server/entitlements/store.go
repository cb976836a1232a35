// Package entitlements holds the authoritative per player × kit cooldown and
// one-time state. Reads and writes hit memory only; the backing database is a
// mirror refreshed by a debounced full rewrite.
package entitlements

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/dmitrijs2005/kitkeeper/internal/common"
	"github.com/dmitrijs2005/kitkeeper/internal/logging"
	"github.com/dmitrijs2005/kitkeeper/internal/server/models"
	"github.com/dmitrijs2005/kitkeeper/internal/timex"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

const (
	shardCount = 32

	DefaultDebounce      = 3 * time.Second
	DefaultSweepSchedule = "@every 10m"

	flushTimeout = 30 * time.Second
)

// Backend is the durable mirror. storage.Backend implements it.
type Backend interface {
	Load(ctx context.Context, now time.Time) (models.Snapshot, error)
	Replace(ctx context.Context, snap models.Snapshot) error
	DeleteKit(ctx context.Context, kit string) error
}

// FlushObserver is told about every flush attempt.
type FlushObserver interface {
	ObserveFlush(took time.Duration, records int, err error)
}

type Options struct {
	// Debounce is the quiet period after the last write before a flush.
	Debounce time.Duration
	// SweepSchedule is a cron spec; empty disables the periodic sweep.
	SweepSchedule string
	Clock         timex.Clock
	Logger        logging.Logger
	Observer      FlushObserver
}

type shard struct {
	mu      sync.RWMutex
	records map[models.EntitlementKey]models.Entitlement
}

type Store struct {
	shards   [shardCount]shard
	backend  Backend
	clock    timex.Clock
	logger   logging.Logger
	observer FlushObserver
	debounce time.Duration

	// timerMu guards the pending-flush slot and the dirty/closed flags.
	timerMu sync.Mutex
	timer   *time.Timer
	dirty   bool
	closed  bool

	// flushMu admits one writer to the backend at a time.
	flushMu sync.Mutex

	cron *cron.Cron
}

// Open builds a store from the backend's current content, sweeps once and
// starts the periodic sweep.
func Open(ctx context.Context, backend Backend, opts Options) (*Store, error) {
	s := newStore(backend, opts)

	snap, err := backend.Load(ctx, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to load entitlements: %w", err)
	}
	for _, row := range snap.Cooldowns {
		sh := s.shardFor(row.Player, row.Kit)
		key := models.EntitlementKey{Player: row.Player, Kit: row.Kit}
		rec := sh.records[key]
		rec.CooldownEnd = row.EndsAt
		sh.records[key] = rec
	}
	for _, row := range snap.OneTime {
		sh := s.shardFor(row.Player, row.Kit)
		key := models.EntitlementKey{Player: row.Player, Kit: row.Kit}
		rec := sh.records[key]
		rec.OneTimeUsed = true
		sh.records[key] = rec
	}
	s.logger.Info(ctx, "entitlements loaded",
		"cooldowns", len(snap.Cooldowns), "one_time", len(snap.OneTime))

	if n := s.Sweep(); n > 0 {
		s.logger.Info(ctx, "swept expired cooldowns on start", "removed", n)
	}

	if opts.SweepSchedule != "" {
		s.cron = cron.New()
		if _, err := s.cron.AddFunc(opts.SweepSchedule, s.sweepJob); err != nil {
			return nil, fmt.Errorf("%w: sweep schedule %q: %w", common.ErrConfigInvalid, opts.SweepSchedule, err)
		}
		s.cron.Start()
	}
	return s, nil
}

func newStore(backend Backend, opts Options) *Store {
	s := &Store{
		backend:  backend,
		clock:    opts.Clock,
		logger:   opts.Logger,
		observer: opts.Observer,
		debounce: opts.Debounce,
	}
	if s.clock == nil {
		s.clock = timex.SystemClock{}
	}
	if s.logger == nil {
		s.logger = logging.Nop{}
	}
	s.logger = s.logger.With("module", "entitlements")
	if s.debounce <= 0 {
		s.debounce = DefaultDebounce
	}
	for i := range s.shards {
		s.shards[i].records = make(map[models.EntitlementKey]models.Entitlement)
	}
	return s
}

func (s *Store) shardFor(player uuid.UUID, kit string) *shard {
	h := fnv.New32a()
	_, _ = h.Write(player[:])
	_, _ = h.Write([]byte(kit))
	return &s.shards[h.Sum32()%shardCount]
}

// Get returns the record for player and kit; the zero value when absent.
func (s *Store) Get(player uuid.UUID, kit string) models.Entitlement {
	sh := s.shardFor(player, kit)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.records[models.EntitlementKey{Player: player, Kit: kit}]
}

// Remaining returns how long player must still wait for kit.
func (s *Store) Remaining(player uuid.UUID, kit string) time.Duration {
	return s.Get(player, kit).Remaining(s.clock.Now())
}

func (s *Store) HasUsedOneTime(player uuid.UUID, kit string) bool {
	return s.Get(player, kit).OneTimeUsed
}

// update applies fn to one record under its shard lock. Records left empty
// are removed. It reports whether anything changed.
func (s *Store) update(player uuid.UUID, kit string, fn func(*models.Entitlement)) bool {
	key := models.EntitlementKey{Player: player, Kit: kit}
	sh := s.shardFor(player, kit)

	sh.mu.Lock()
	old := sh.records[key]
	rec := old
	fn(&rec)
	if rec.IsZero() {
		delete(sh.records, key)
	} else {
		sh.records[key] = rec
	}
	sh.mu.Unlock()

	changed := !rec.CooldownEnd.Equal(old.CooldownEnd) || rec.OneTimeUsed != old.OneTimeUsed
	if changed {
		s.scheduleFlush()
	}
	return changed
}

// SetCooldown records that player may not claim kit again before expiresAt.
func (s *Store) SetCooldown(player uuid.UUID, kit string, expiresAt time.Time) {
	s.update(player, kit, func(e *models.Entitlement) { e.CooldownEnd = expiresAt })
}

func (s *Store) SetOneTimeUsed(player uuid.UUID, kit string) {
	s.update(player, kit, func(e *models.Entitlement) { e.OneTimeUsed = true })
}

func (s *Store) ResetCooldown(player uuid.UUID, kit string) {
	s.update(player, kit, func(e *models.Entitlement) { e.CooldownEnd = time.Time{} })
}

func (s *Store) ResetOneTime(player uuid.UUID, kit string) {
	s.update(player, kit, func(e *models.Entitlement) { e.OneTimeUsed = false })
}

// ClearAll drops every player's record for kit and deletes the rows right
// away. It holds the flush lock so an in-flight rewrite cannot put them back.
func (s *Store) ClearAll(ctx context.Context, kit string) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	removed := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for key := range sh.records {
			if key.Kit == kit {
				delete(sh.records, key)
				removed++
			}
		}
		sh.mu.Unlock()
	}

	if err := s.backend.DeleteKit(ctx, kit); err != nil {
		s.logger.Error(ctx, "failed to delete kit entitlements", "kit", kit, "error", err)
		// the next full rewrite will drop the rows instead
		s.scheduleFlush()
		return fmt.Errorf("failed to clear entitlements for kit[%s]: %w", kit, err)
	}
	s.logger.Info(ctx, "kit entitlements cleared", "kit", kit, "records", removed)
	return nil
}

// Sweep removes expired cooldowns. Records still carrying a one-time flag
// lose only their cooldown. It returns the number of cooldowns removed.
func (s *Store) Sweep() int {
	now := s.clock.Now()
	removed := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for key, rec := range sh.records {
			if rec.CooldownEnd.IsZero() || rec.CooldownEnd.After(now) {
				continue
			}
			removed++
			if rec.OneTimeUsed {
				rec.CooldownEnd = time.Time{}
				sh.records[key] = rec
				continue
			}
			delete(sh.records, key)
		}
		sh.mu.Unlock()
	}
	if removed > 0 {
		s.scheduleFlush()
	}
	return removed
}

func (s *Store) sweepJob() {
	if n := s.Sweep(); n > 0 {
		s.logger.Debug(context.Background(), "swept expired cooldowns", "removed", n)
	}
}

// Len returns the number of records held in memory.
func (s *Store) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		n += len(sh.records)
		sh.mu.RUnlock()
	}
	return n
}

func (s *Store) snapshot() models.Snapshot {
	var snap models.Snapshot
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		for key, rec := range sh.records {
			if !rec.CooldownEnd.IsZero() {
				snap.Cooldowns = append(snap.Cooldowns, models.CooldownRow{Player: key.Player, Kit: key.Kit, EndsAt: rec.CooldownEnd})
			}
			if rec.OneTimeUsed {
				snap.OneTime = append(snap.OneTime, models.OneTimeRow{Player: key.Player, Kit: key.Kit})
			}
		}
		sh.mu.RUnlock()
	}
	return snap
}

// scheduleFlush marks the store dirty and restarts the debounce timer.
func (s *Store) scheduleFlush() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	s.dirty = true
	if s.closed {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.onTimer)
}

func (s *Store) onTimer() {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.timerMu.Lock()
	closed, dirty := s.closed, s.dirty
	s.timerMu.Unlock()
	// Close runs the final flush itself
	if closed || !dirty {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	_ = s.flushLocked(ctx)
}

// flushLocked rewrites the backing tables. Callers hold flushMu.
func (s *Store) flushLocked(ctx context.Context) error {
	s.timerMu.Lock()
	s.dirty = false
	s.timerMu.Unlock()

	snap := s.snapshot()
	start := time.Now()
	err := s.backend.Replace(ctx, snap)
	took := time.Since(start)

	if s.observer != nil {
		s.observer.ObserveFlush(took, len(snap.Cooldowns)+len(snap.OneTime), err)
	}
	if err != nil {
		s.logger.Error(ctx, "entitlement flush failed", "error", err)
		s.timerMu.Lock()
		s.dirty = true
		s.timerMu.Unlock()
		return err
	}
	s.logger.Debug(ctx, "entitlements flushed",
		"cooldowns", len(snap.Cooldowns), "one_time", len(snap.OneTime), "took", took)
	return nil
}

// Flush writes the current state now if anything changed since the last
// successful flush.
func (s *Store) Flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.timerMu.Lock()
	dirty := s.dirty
	s.timerMu.Unlock()
	if !dirty {
		return nil
	}
	return s.flushLocked(ctx)
}

// Close stops the sweeper and the debounce timer, waits for an in-flight
// flush and writes whatever is still pending. The backend may be closed once
// Close returns.
func (s *Store) Close(ctx context.Context) error {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}

	s.timerMu.Lock()
	if s.closed {
		s.timerMu.Unlock()
		return nil
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timerMu.Unlock()

	if err := s.Flush(ctx); err != nil {
		return fmt.Errorf("%w: failed final flush: %w", common.ErrStorageFailure, err)
	}
	s.logger.Info(ctx, "entitlement store closed")
	return nil
}
