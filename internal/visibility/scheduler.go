// Package visibility decides which feed slot is eligible to play based on
// viewport intersection events. The browser-specific observer plumbing stays
// in the host; the scheduler consumes plain events so it can be driven by
// fakes in tests.
package visibility

import (
	"context"
	"log/slog"
	"sync"
)

// DefaultThreshold is the intersection ratio at which a slot is promoted.
const DefaultThreshold = 0.7

// Event is one intersection observation for a mounted slot.
type Event struct {
	Slot         int
	Ratio        float64
	Intersecting bool
}

// Player is the scheduler's view of the playback manager.
type Player interface {
	PauseAllExcept(ctx context.Context, slot int)
	Play(ctx context.Context, slot int, fromStart bool) error
	Pause(ctx context.Context, slot int) error
	HasSession(slot int) bool
}

// Scheduler promotes at most one slot to active at a time. Promotion pauses
// every other session before playing the new one; that ordering upholds the
// at-most-one-playing invariant.
type Scheduler struct {
	player    Player
	threshold float64
	logger    *slog.Logger
	onActive  func(slot int)

	mu     sync.Mutex
	active int

	// promoteMu serializes the pause-then-play sequence. Promotions run
	// outside mu so decoder calls cannot block state reads, but two
	// interleaved promotions could leave two sessions playing.
	promoteMu sync.Mutex
}

type Config struct {
	Player    Player
	Threshold float64
	Logger    *slog.Logger
	// OnActive fires after a slot is promoted, outside the scheduler lock.
	// The feed uses it to advance its active index and trigger prefetch.
	OnActive func(slot int)
}

func NewScheduler(cfg Config) *Scheduler {
	threshold := cfg.Threshold
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		player:    cfg.Player,
		threshold: threshold,
		logger:    logger,
		onActive:  cfg.OnActive,
		active:    -1,
	}
}

// Observe consumes one intersection event. A slot crossing the threshold
// while intersecting becomes active; the previous active slot is demoted
// immediately. A slot leaving the viewport entirely is paused but its session
// is kept.
func (s *Scheduler) Observe(ctx context.Context, ev Event) {
	if !ev.Intersecting {
		s.handleLeave(ctx, ev.Slot)
		return
	}
	if ev.Ratio < s.threshold {
		return
	}

	s.mu.Lock()
	if s.active == ev.Slot {
		s.mu.Unlock()
		return
	}
	s.active = ev.Slot
	s.mu.Unlock()

	s.promoteMu.Lock()
	defer s.promoteMu.Unlock()

	// A later event may have claimed the active slot while this promotion
	// waited its turn; the stale one must not play.
	s.mu.Lock()
	current := s.active
	s.mu.Unlock()
	if current != ev.Slot {
		return
	}

	// Pause first, then play: both are async against real decoders and the
	// order is mandatory.
	s.player.PauseAllExcept(ctx, ev.Slot)
	if err := s.player.Play(ctx, ev.Slot, true); err != nil {
		s.logger.Warn("visibility: play on promotion failed", "slot", ev.Slot, "error", err)
	}

	if s.onActive != nil {
		s.onActive(ev.Slot)
	}
}

func (s *Scheduler) handleLeave(ctx context.Context, slot int) {
	if !s.player.HasSession(slot) {
		return
	}
	if err := s.player.Pause(ctx, slot); err != nil {
		s.logger.Warn("visibility: pause on leave failed", "slot", slot, "error", err)
	}
}

// ActiveSlot returns the currently promoted slot, or -1 before the first
// promotion.
func (s *Scheduler) ActiveSlot() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Reset clears the active slot, for feed reload.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	s.active = -1
	s.mu.Unlock()
}
