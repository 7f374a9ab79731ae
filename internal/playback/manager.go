package playback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// ErrorKind classifies decoder errors reported by the host player.
type ErrorKind int

const (
	// ErrorNetwork covers segment/manifest request failures; the segment
	// window is reloaded.
	ErrorNetwork ErrorKind = iota
	// ErrorMedia covers decode/pipeline failures; a recovery is attempted.
	ErrorMedia
	// ErrorFatal destroys the session; the slot stays silent until the next
	// attach.
	ErrorFatal
)

// Manager owns every live session, keyed by slot index. All public methods
// are safe for concurrent use; decoder calls run outside the lock so a slow
// attach cannot stall unrelated slots.
type Manager struct {
	factory DecoderFactory
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[int]*Session
	muted    bool
	closed   bool
}

func NewManager(factory DecoderFactory, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		factory:  factory,
		logger:   logger,
		sessions: make(map[int]*Session),
	}
}

// Attach binds a media URL to a slot. Re-attaching the same URL without force
// is a no-op; a changed URL tears the old session down first.
func (m *Manager) Attach(ctx context.Context, slot int, itemID, mediaURL string, force bool) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrSessionDestroyed
	}
	if existing, ok := m.sessions[slot]; ok {
		if existing.mediaURL == mediaURL && !force && existing.state != StateDestroyed {
			m.mu.Unlock()
			return nil
		}
		m.destroyLocked(slot)
	}

	sess := &Session{slot: slot, mediaURL: mediaURL, state: StateAttaching, itemID: itemID}
	sess.dec = m.factory(slot)
	sess.dec.SetMuted(m.muted)
	m.sessions[slot] = sess
	dec := sess.dec
	m.mu.Unlock()

	if err := dec.Load(ctx, mediaURL); err != nil {
		m.mu.Lock()
		m.destroyLocked(slot)
		m.mu.Unlock()
		return fmt.Errorf("attach slot %d: %w", slot, err)
	}

	m.mu.Lock()
	if sess.state == StateAttaching {
		sess.state = StateReady
	}
	m.mu.Unlock()
	return nil
}

// Play starts a slot's session. fromStart restarts at position zero, the
// visibility-promotion semantics; explicit user resume passes false and keeps
// the position.
func (m *Manager) Play(ctx context.Context, slot int, fromStart bool) error {
	m.mu.Lock()
	sess, ok := m.sessions[slot]
	if !ok || sess.state == StateDestroyed || sess.state == StateAttaching || sess.state == StateIdle {
		m.mu.Unlock()
		return fmt.Errorf("play slot %d: no ready session", slot)
	}
	dec := sess.dec
	m.mu.Unlock()

	if fromStart {
		if err := dec.SetPosition(0); err != nil {
			return fmt.Errorf("play slot %d: %w", slot, err)
		}
	}
	if err := dec.Play(ctx); err != nil {
		return fmt.Errorf("play slot %d: %w", slot, err)
	}

	m.mu.Lock()
	if sess.state != StateDestroyed {
		sess.state = StatePlaying
	}
	m.mu.Unlock()
	return nil
}

// Pause pauses a slot's session, preserving its position. Pausing a slot
// without a live session is a no-op.
func (m *Manager) Pause(ctx context.Context, slot int) error {
	m.mu.Lock()
	sess, ok := m.sessions[slot]
	if !ok || sess.state != StatePlaying {
		m.mu.Unlock()
		return nil
	}
	dec := sess.dec
	m.mu.Unlock()

	if err := dec.Pause(ctx); err != nil {
		return fmt.Errorf("pause slot %d: %w", slot, err)
	}

	m.mu.Lock()
	if sess.state == StatePlaying {
		sess.state = StatePaused
	}
	m.mu.Unlock()
	return nil
}

// PauseAllExcept pauses every playing session other than the given slot.
// Errors are logged, not propagated; the at-most-one-playing invariant must
// not be blocked by a failing decoder.
func (m *Manager) PauseAllExcept(ctx context.Context, slot int) {
	m.mu.Lock()
	var toPause []int
	for s, sess := range m.sessions {
		if s != slot && sess.state == StatePlaying {
			toPause = append(toPause, s)
		}
	}
	m.mu.Unlock()

	for _, s := range toPause {
		if err := m.Pause(ctx, s); err != nil {
			m.logger.Warn("playback: pause during promotion failed", "slot", s, "error", err)
		}
	}
}

// SetMuted applies the global mute flag to every session, including ones not
// yet playing, and to sessions created later.
func (m *Manager) SetMuted(muted bool) {
	m.mu.Lock()
	m.muted = muted
	decs := make([]Decoder, 0, len(m.sessions))
	for _, sess := range m.sessions {
		if sess.state != StateDestroyed {
			decs = append(decs, sess.dec)
		}
	}
	m.mu.Unlock()

	for _, dec := range decs {
		dec.SetMuted(muted)
	}
}

func (m *Manager) Muted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted
}

// HandleError reacts to a decoder error reported for a slot. Network errors
// reload the segment window, media errors attempt pipeline recovery, anything
// else destroys the session.
func (m *Manager) HandleError(slot int, kind ErrorKind) {
	m.mu.Lock()
	sess, ok := m.sessions[slot]
	if !ok || sess.state == StateDestroyed {
		m.mu.Unlock()
		return
	}
	dec := sess.dec
	m.mu.Unlock()

	switch kind {
	case ErrorNetwork:
		if err := dec.StartLoad(); err != nil {
			m.logger.Warn("playback: segment reload failed", "slot", slot, "error", err)
			m.Destroy(slot)
		}
	case ErrorMedia:
		if err := dec.RecoverMedia(); err != nil {
			m.logger.Warn("playback: media recovery failed", "slot", slot, "error", err)
			m.Destroy(slot)
		}
	default:
		m.logger.Warn("playback: fatal decoder error", "slot", slot)
		m.Destroy(slot)
	}
}

// Destroy tears down a slot's session. Destruction is best-effort; the
// decoder may already be broken.
func (m *Manager) Destroy(slot int) {
	m.mu.Lock()
	m.destroyLocked(slot)
	m.mu.Unlock()
}

func (m *Manager) destroyLocked(slot int) {
	sess, ok := m.sessions[slot]
	if !ok {
		return
	}
	delete(m.sessions, slot)
	if sess.state == StateDestroyed {
		return
	}
	sess.state = StateDestroyed
	if err := sess.dec.Destroy(); err != nil {
		m.logger.Warn("playback: decoder destroy failed", "slot", slot, "error", err)
	}
}

// Close destroys every session. Called on feed view unmount.
func (m *Manager) Close() {
	m.mu.Lock()
	slots := make([]int, 0, len(m.sessions))
	for s := range m.sessions {
		slots = append(slots, s)
	}
	m.closed = true
	for _, s := range slots {
		m.destroyLocked(s)
	}
	m.mu.Unlock()
}

// HasSession reports whether a slot currently holds a non-destroyed session.
func (m *Manager) HasSession(slot int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[slot]
	return ok && sess.state != StateDestroyed
}

// SessionState returns the lifecycle state for a slot.
func (m *Manager) SessionState(slot int) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[slot]
	if !ok {
		return StateIdle, false
	}
	return sess.state, true
}

// PlayingSlot returns the slot currently in the playing state, if any.
func (m *Manager) PlayingSlot() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for s, sess := range m.sessions {
		if sess.state == StatePlaying {
			return s, true
		}
	}
	return 0, false
}
