package reels

import (
	"context"
	"log/slog"
	"sync"
)

// DefaultPrefetchThreshold triggers the next page fetch when this few unseen
// items remain past the active index.
const DefaultPrefetchThreshold = 4

// PageFetcher is the feed's view of the API client.
type PageFetcher interface {
	FetchPage(ctx context.Context, req PageRequest) (Page, error)
}

// SeedStore persists the randomization seed so a reload mid-session resumes
// the same ordering instead of reshuffling.
type SeedStore interface {
	Seed() (string, error)
	SetSeed(seed string) error
}

// Feed owns the ordered item sequence, the continuation cursor and the
// single-flight fetch guard. Items are append-only; display order is
// insertion order.
type Feed struct {
	fetcher   PageFetcher
	seeds     SeedStore
	logger    *slog.Logger
	threshold int

	mu            sync.Mutex
	items         []*Item
	activeIndex   int
	continuation  string
	exhausted     bool
	seed          string
	fetchInFlight bool
	started       bool
}

type FeedConfig struct {
	Fetcher           PageFetcher
	Seeds             SeedStore
	PrefetchThreshold int
	Logger            *slog.Logger
}

func NewFeed(cfg FeedConfig) *Feed {
	threshold := cfg.PrefetchThreshold
	if threshold <= 0 {
		threshold = DefaultPrefetchThreshold
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		fetcher:     cfg.Fetcher,
		seeds:       cfg.Seeds,
		logger:      logger,
		threshold:   threshold,
		activeIndex: -1,
	}
}

// Start loads the first page. It runs unconditionally before any visibility
// logic and restores a previously persisted seed if one exists.
func (f *Feed) Start(ctx context.Context) error {
	f.mu.Lock()
	if f.started || f.fetchInFlight {
		f.mu.Unlock()
		return nil
	}
	f.started = true
	f.fetchInFlight = true
	if f.seeds != nil {
		if seed, err := f.seeds.Seed(); err == nil {
			f.seed = seed
		} else {
			f.logger.Warn("feed: seed restore failed", "error", err)
		}
	}
	req := PageRequest{Seed: f.seed}
	f.mu.Unlock()

	f.fetch(ctx, req)
	return nil
}

// SetActiveIndex records the slot the viewer is on and prefetches the next
// page when the unseen remainder drops to the threshold.
func (f *Feed) SetActiveIndex(ctx context.Context, index int) {
	f.mu.Lock()
	if index < 0 || index >= len(f.items) {
		f.mu.Unlock()
		return
	}
	f.activeIndex = index
	remaining := len(f.items) - index - 1
	if remaining > f.threshold || f.exhausted || f.continuation == "" || f.fetchInFlight {
		f.mu.Unlock()
		return
	}
	f.fetchInFlight = true
	req := PageRequest{Seed: f.seed, ContinuationToken: f.continuation}
	f.mu.Unlock()

	f.fetch(ctx, req)
}

// fetch performs one page request outside the lock and appends the result.
// The single-flight flag is always released, even on an empty page.
func (f *Feed) fetch(ctx context.Context, req PageRequest) {
	page, err := f.fetcher.FetchPage(ctx, req)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchInFlight = false
	if err != nil {
		f.logger.Warn("feed: fetch failed", "error", err)
		return
	}

	f.items = append(f.items, page.Items...)
	f.continuation = page.NextToken
	if page.NextToken == "" {
		f.exhausted = true
	}
	if page.Seed != "" && page.Seed != f.seed {
		f.seed = page.Seed
		if f.seeds != nil {
			if err := f.seeds.SetSeed(page.Seed); err != nil {
				f.logger.Warn("feed: seed persist failed", "error", err)
			}
		}
	}
}

// Items returns the current sequence. The slice is shared; callers treat it
// as read-only and mutate entries only through the interaction reconciler.
func (f *Feed) Items() []*Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items
}

func (f *Feed) Item(index int) (*Item, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if index < 0 || index >= len(f.items) {
		return nil, false
	}
	return f.items[index], true
}

func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

func (f *Feed) ActiveIndex() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activeIndex
}

// Seed reports the randomization key in effect for this browsing session.
func (f *Feed) Seed() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seed
}

// Exhausted reports whether the server signalled the end of the feed.
func (f *Feed) Exhausted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exhausted
}

func (f *Feed) fetchPending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchInFlight
}
