package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type fakeDecoder struct {
	mu         sync.Mutex
	slot       int
	loadedURL  string
	loads      int
	plays      int
	pauses     int
	seeks      []float64
	muted      bool
	muteCalls  int
	startLoads int
	recovers   int
	destroyed  bool

	loadErr    error
	playErr    error
	reloadErr  error
	recoverErr error
	destroyErr error
}

func (d *fakeDecoder) Load(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.loadErr != nil {
		return d.loadErr
	}
	d.loadedURL = url
	d.loads++
	return nil
}

func (d *fakeDecoder) Play(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.playErr != nil {
		return d.playErr
	}
	d.plays++
	return nil
}

func (d *fakeDecoder) Pause(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pauses++
	return nil
}

func (d *fakeDecoder) SetPosition(seconds float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seeks = append(d.seeks, seconds)
	return nil
}

func (d *fakeDecoder) SetMuted(muted bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.muted = muted
	d.muteCalls++
}

func (d *fakeDecoder) StartLoad() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.startLoads++
	return d.reloadErr
}

func (d *fakeDecoder) RecoverMedia() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recovers++
	return d.recoverErr
}

func (d *fakeDecoder) Destroy() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroyed = true
	return d.destroyErr
}

type decoderLog struct {
	mu       sync.Mutex
	decoders []*fakeDecoder
}

func (l *decoderLog) factory(slot int) Decoder {
	l.mu.Lock()
	defer l.mu.Unlock()
	d := &fakeDecoder{slot: slot}
	l.decoders = append(l.decoders, d)
	return d
}

func (l *decoderLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.decoders)
}

func (l *decoderLog) last() *fakeDecoder {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.decoders[len(l.decoders)-1]
}

const testManifest = "https://media.ziyoflix.uz/v/1/index.m3u8"

func TestAttach_Idempotent(t *testing.T) {
	log := &decoderLog{}
	m := NewManager(log.factory, nil)
	ctx := context.Background()

	if err := m.Attach(ctx, 0, "r1", testManifest, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Attach(ctx, 0, "r1", testManifest, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if log.count() != 1 {
		t.Errorf("re-attach without force must not create a second decoder, got %d", log.count())
	}
}

func TestAttach_ForceReload(t *testing.T) {
	log := &decoderLog{}
	m := NewManager(log.factory, nil)
	ctx := context.Background()

	m.Attach(ctx, 0, "r1", testManifest, false)
	m.Attach(ctx, 0, "r1", testManifest, true)

	if log.count() != 2 {
		t.Errorf("forced re-attach must recreate the decoder, got %d", log.count())
	}
	if !log.decoders[0].destroyed {
		t.Error("old decoder not destroyed on forced re-attach")
	}
}

func TestAttach_ChangedURLRecreates(t *testing.T) {
	log := &decoderLog{}
	m := NewManager(log.factory, nil)
	ctx := context.Background()

	m.Attach(ctx, 0, "r1", testManifest, false)
	m.Attach(ctx, 0, "r2", "https://media.ziyoflix.uz/v/2/index.m3u8", false)

	if log.count() != 2 {
		t.Fatalf("changed URL must destroy-then-recreate, got %d decoders", log.count())
	}
	if !log.decoders[0].destroyed {
		t.Error("old session not destroyed before URL change")
	}
	if state, _ := m.SessionState(0); state != StateReady {
		t.Errorf("new session should be ready, got %s", state)
	}
}

func TestAttach_LoadFailureDestroysSession(t *testing.T) {
	loadErr := errors.New("manifest 404")
	m := NewManager(func(slot int) Decoder {
		return &fakeDecoder{loadErr: loadErr}
	}, nil)

	if err := m.Attach(context.Background(), 0, "r1", testManifest, false); err == nil {
		t.Fatal("expected attach error")
	}
	if m.HasSession(0) {
		t.Error("failed attach must not leave a session behind")
	}
}

func TestPlay_FromStartSeeksZero(t *testing.T) {
	log := &decoderLog{}
	m := NewManager(log.factory, nil)
	ctx := context.Background()

	m.Attach(ctx, 0, "r1", testManifest, false)
	if err := m.Play(ctx, 0, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dec := log.last()
	if len(dec.seeks) != 1 || dec.seeks[0] != 0 {
		t.Errorf("promotion must restart from zero, seeks=%v", dec.seeks)
	}
	if state, _ := m.SessionState(0); state != StatePlaying {
		t.Errorf("expected playing, got %s", state)
	}
}

func TestPlay_ResumePreservesPosition(t *testing.T) {
	log := &decoderLog{}
	m := NewManager(log.factory, nil)
	ctx := context.Background()

	m.Attach(ctx, 0, "r1", testManifest, false)
	m.Play(ctx, 0, true)
	m.Pause(ctx, 0)
	if err := m.Play(ctx, 0, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dec := log.last()
	if len(dec.seeks) != 1 {
		t.Errorf("explicit resume must not seek, seeks=%v", dec.seeks)
	}
}

func TestPause_NoSessionIsNoop(t *testing.T) {
	m := NewManager((&decoderLog{}).factory, nil)
	if err := m.Pause(context.Background(), 3); err != nil {
		t.Errorf("pausing an empty slot must be a no-op, got %v", err)
	}
}

func TestPauseAllExcept_PausesOnlyOthers(t *testing.T) {
	log := &decoderLog{}
	m := NewManager(log.factory, nil)
	ctx := context.Background()

	for slot := range 3 {
		m.Attach(ctx, slot, "r", testManifest, false)
	}
	m.Play(ctx, 1, true)

	m.PauseAllExcept(ctx, 2)

	if state, _ := m.SessionState(1); state != StatePaused {
		t.Errorf("slot 1 should be paused, got %s", state)
	}
	if slot, ok := m.PlayingSlot(); ok {
		t.Errorf("no slot should be playing, got %d", slot)
	}
}

func TestSetMuted_AppliesToAllSessionsIncludingIdle(t *testing.T) {
	log := &decoderLog{}
	m := NewManager(log.factory, nil)
	ctx := context.Background()

	m.Attach(ctx, 0, "r1", testManifest, false)
	m.Attach(ctx, 1, "r2", testManifest, false)
	m.Play(ctx, 0, true)

	m.SetMuted(true)

	for i, dec := range log.decoders {
		if !dec.muted {
			t.Errorf("decoder %d not muted", i)
		}
	}
	if !m.Muted() {
		t.Error("manager mute flag not set")
	}
}

func TestSetMuted_AppliedToLaterSessions(t *testing.T) {
	log := &decoderLog{}
	m := NewManager(log.factory, nil)
	m.SetMuted(true)

	m.Attach(context.Background(), 0, "r1", testManifest, false)

	if !log.last().muted {
		t.Error("sessions created after mute must start muted")
	}
}

func TestHandleError_NetworkReloadsSegments(t *testing.T) {
	log := &decoderLog{}
	m := NewManager(log.factory, nil)
	m.Attach(context.Background(), 0, "r1", testManifest, false)

	m.HandleError(0, ErrorNetwork)

	if log.last().startLoads != 1 {
		t.Error("network error must reload the segment window")
	}
	if !m.HasSession(0) {
		t.Error("recoverable error must keep the session")
	}
}

func TestHandleError_MediaRecovers(t *testing.T) {
	log := &decoderLog{}
	m := NewManager(log.factory, nil)
	m.Attach(context.Background(), 0, "r1", testManifest, false)

	m.HandleError(0, ErrorMedia)

	if log.last().recovers != 1 {
		t.Error("media error must attempt pipeline recovery")
	}
}

func TestHandleError_FatalDestroys(t *testing.T) {
	log := &decoderLog{}
	m := NewManager(log.factory, nil)
	m.Attach(context.Background(), 0, "r1", testManifest, false)

	m.HandleError(0, ErrorFatal)

	if m.HasSession(0) {
		t.Error("fatal error must destroy the session")
	}
	if !log.last().destroyed {
		t.Error("decoder not destroyed on fatal error")
	}
}

func TestHandleError_FailedRecoveryDestroys(t *testing.T) {
	m := NewManager(func(slot int) Decoder {
		return &fakeDecoder{recoverErr: errors.New("pipeline dead")}
	}, nil)
	m.Attach(context.Background(), 0, "r1", testManifest, false)

	m.HandleError(0, ErrorMedia)

	if m.HasSession(0) {
		t.Error("failed recovery must destroy the session")
	}
}

func TestClose_DestroysEverySessionBestEffort(t *testing.T) {
	destroyErr := errors.New("decoder already dead")
	var decoders []*fakeDecoder
	m := NewManager(func(slot int) Decoder {
		d := &fakeDecoder{destroyErr: destroyErr}
		decoders = append(decoders, d)
		return d
	}, nil)
	ctx := context.Background()

	for slot := range 4 {
		m.Attach(ctx, slot, "r", testManifest, false)
	}

	m.Close()

	for i, d := range decoders {
		if !d.destroyed {
			t.Errorf("decoder %d not destroyed on close", i)
		}
	}
	if m.HasSession(0) {
		t.Error("sessions remain after close")
	}
	if err := m.Attach(ctx, 9, "r", testManifest, false); !errors.Is(err, ErrSessionDestroyed) {
		t.Errorf("attach after close should fail, got %v", err)
	}
}

func TestDestroyedSessionNotReused(t *testing.T) {
	log := &decoderLog{}
	m := NewManager(log.factory, nil)
	ctx := context.Background()

	m.Attach(ctx, 0, "r1", testManifest, false)
	m.Destroy(0)

	if err := m.Play(ctx, 0, true); err == nil {
		t.Fatal("playing a destroyed slot must fail")
	}

	// A fresh attach creates a brand new session.
	if err := m.Attach(ctx, 0, "r1", testManifest, false); err != nil {
		t.Fatalf("re-attach after destroy failed: %v", err)
	}
	if log.count() != 2 {
		t.Errorf("expected a new decoder after destroy, got %d", log.count())
	}
}
