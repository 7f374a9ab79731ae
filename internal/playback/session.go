// Package playback owns the adaptive-streaming decoder sessions bound to feed
// slots. The host UI resolves slot indexes to real video elements; this
// package never touches the UI tree.
package playback

import (
	"context"
	"errors"
	"fmt"
)

// State is the lifecycle position of one session. Destroyed is terminal; a
// destroyed session is never reused.
type State int

const (
	StateIdle State = iota
	StateAttaching
	StateReady
	StatePlaying
	StatePaused
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAttaching:
		return "attaching"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var ErrSessionDestroyed = errors.New("playback: session destroyed")

// Decoder is the client-side adaptive-streaming instance for one video
// element. Implementations wrap the host player (hls.js-style); tests use
// fakes.
type Decoder interface {
	// Load binds the manifest URL and prepares the first segment window.
	Load(ctx context.Context, manifestURL string) error
	// Play starts or resumes playback at the current position.
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	// SetPosition seeks to an absolute position in seconds.
	SetPosition(seconds float64) error
	SetMuted(muted bool)
	// StartLoad re-requests the current segment window after a network error.
	StartLoad() error
	// RecoverMedia attempts to recover the media pipeline after a decode error.
	RecoverMedia() error
	Destroy() error
}

// DecoderFactory produces a decoder for a slot. Called once per attach.
type DecoderFactory func(slot int) Decoder

// Session pairs one decoder with one feed slot. The media URL is immutable
// after attach; changing media is destroy-then-recreate in the Manager.
type Session struct {
	slot     int
	mediaURL string
	state    State
	dec      Decoder
	itemID   string
}

func (s *Session) State() State     { return s.state }
func (s *Session) MediaURL() string { return s.mediaURL }
func (s *Session) Slot() int        { return s.slot }

// ItemID is the non-owning reference into the feed sequence.
func (s *Session) ItemID() string { return s.itemID }
