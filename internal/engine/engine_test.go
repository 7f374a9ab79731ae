package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/MuhammadOdilhonov/ziyo-flix-sub004/internal/config"
	"github.com/MuhammadOdilhonov/ziyo-flix-sub004/internal/playback"
	"github.com/MuhammadOdilhonov/ziyo-flix-sub004/internal/visibility"
)

type fakeDecoder struct {
	mu    sync.Mutex
	url   string
	state string
}

func (d *fakeDecoder) Load(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.url = url
	d.state = "ready"
	return nil
}
func (d *fakeDecoder) Play(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = "playing"
	return nil
}
func (d *fakeDecoder) Pause(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = "paused"
	return nil
}
func (d *fakeDecoder) SetPosition(seconds float64) error { return nil }
func (d *fakeDecoder) SetMuted(muted bool)               {}
func (d *fakeDecoder) StartLoad() error                  { return nil }
func (d *fakeDecoder) RecoverMedia() error               { return nil }
func (d *fakeDecoder) Destroy() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = "destroyed"
	return nil
}

// fakeBackend serves a two-page seeded feed and records every request.
type fakeBackend struct {
	mu       sync.Mutex
	requests []string
}

func (b *fakeBackend) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests = append(b.requests, r.URL.String())
		b.mu.Unlock()

		page := r.URL.Query().Get("page")
		switch page {
		case "", "1":
			items := make([]map[string]any, 0, 5)
			for i := range 5 {
				items = append(items, map[string]any{
					"id":    fmt.Sprintf("r%d", i+1),
					"video": fmt.Sprintf("/v/%d/index.m3u8", i+1),
				})
			}
			json.NewEncoder(w).Encode(map[string]any{
				"results": items,
				"next":    "/api/reels?seed=abc&page=2",
				"seed":    "abc",
			})
		default:
			json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]any{{"id": "r6", "video": "/v/6/index.m3u8"}},
				"next":    nil,
				"seed":    "abc",
			})
		}
	}
}

func newTestEngine(t *testing.T, backend *fakeBackend) *Engine {
	t.Helper()
	server := httptest.NewServer(backend.handler())
	t.Cleanup(server.Close)

	cfg := &config.Config{}
	cfg.API.BaseURL = server.URL
	cfg.Media.Origin = "https://media.ziyoflix.uz"
	cfg.Session.StatePath = filepath.Join(t.TempDir(), "session.db")
	cfg.API.TimeoutSeconds = 5
	cfg.Feed.PrefetchThreshold = 4
	cfg.Playback.VisibilityThreshold = 0.7
	cfg.Comments.ScrollThresholdPx = 120

	e, err := New(cfg, func(slot int) playback.Decoder { return &fakeDecoder{} }, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(e.Close)
	return e
}

func TestInitialLoad_FetchesOncePersistsSeed(t *testing.T) {
	backend := &fakeBackend{}
	e := newTestEngine(t, backend)

	if err := e.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	if e.Feed().Len() != 5 {
		t.Fatalf("expected 5 items, got %d", e.Feed().Len())
	}
	if e.Feed().Seed() != "abc" {
		t.Errorf("seed not captured: %q", e.Feed().Seed())
	}
	if len(backend.requests) != 1 || backend.requests[0] != "/api/reels" {
		t.Errorf("first call must omit seed and token: %v", backend.requests)
	}

	seed, err := e.Session().Seed()
	if err != nil || seed != "abc" {
		t.Errorf("seed not persisted to local storage: %q (%v)", seed, err)
	}
}

func TestScrollNearEnd_PrefetchUsesContinuation(t *testing.T) {
	backend := &fakeBackend{}
	e := newTestEngine(t, backend)
	ctx := context.Background()
	e.Start(ctx)

	// Scrolling to index 1 of 5 leaves remaining=3, under the threshold.
	e.MountSlot(ctx, 0)
	e.MountSlot(ctx, 1)
	e.Observe(ctx, visibility.Event{Slot: 1, Ratio: 0.9, Intersecting: true})

	if e.Feed().Len() != 6 {
		t.Fatalf("prefetch did not append, have %d items", e.Feed().Len())
	}
	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.requests) != 2 {
		t.Fatalf("expected 2 requests, got %v", backend.requests)
	}
	if backend.requests[1] != "/api/reels?seed=abc&page=2" {
		t.Errorf("prefetch must follow the continuation URL without duplicating the seed: %q", backend.requests[1])
	}
}

func TestPromotion_SwitchesSingleActiveSession(t *testing.T) {
	backend := &fakeBackend{}
	e := newTestEngine(t, backend)
	ctx := context.Background()
	e.Start(ctx)

	for i := range 3 {
		if err := e.MountSlot(ctx, i); err != nil {
			t.Fatal(err)
		}
	}

	e.Observe(ctx, visibility.Event{Slot: 1, Ratio: 0.9, Intersecting: true})
	if state, _ := e.Playback().SessionState(1); state != playback.StatePlaying {
		t.Fatalf("slot 1 should be playing, got %s", state)
	}

	e.Observe(ctx, visibility.Event{Slot: 2, Ratio: 0.8, Intersecting: true})

	if state, _ := e.Playback().SessionState(1); state != playback.StatePaused {
		t.Errorf("slot 1 should be paused after the switch, got %s", state)
	}
	if state, _ := e.Playback().SessionState(2); state != playback.StatePlaying {
		t.Errorf("slot 2 should be playing, got %s", state)
	}
	if slot, ok := e.Playback().PlayingSlot(); !ok || slot != 2 {
		t.Errorf("exactly slot 2 should be playing, got %d (%v)", slot, ok)
	}
}

func TestMountSlot_ResolvesMediaAgainstOrigin(t *testing.T) {
	backend := &fakeBackend{}
	e := newTestEngine(t, backend)
	ctx := context.Background()
	e.Start(ctx)

	item, _ := e.Feed().Item(0)
	if item.MediaURL != "https://media.ziyoflix.uz/v/1/index.m3u8" {
		t.Errorf("media URL not resolved: %q", item.MediaURL)
	}
	if err := e.MountSlot(ctx, 0); err != nil {
		t.Fatal(err)
	}
}

func TestUnmountSlot_DestroysSession(t *testing.T) {
	backend := &fakeBackend{}
	e := newTestEngine(t, backend)
	ctx := context.Background()
	e.Start(ctx)

	e.MountSlot(ctx, 0)
	e.UnmountSlot(0)

	if e.Playback().HasSession(0) {
		t.Error("unmounted slot must not keep a session")
	}
}
