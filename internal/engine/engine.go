// Package engine wires the reels feed components into one playback engine:
// fetcher, pagination cursor, visibility scheduler, playback sessions and the
// interaction reconciler. The host UI drives it with slot mount/unmount and
// intersection events.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MuhammadOdilhonov/ziyo-flix-sub004/internal/comments"
	"github.com/MuhammadOdilhonov/ziyo-flix-sub004/internal/config"
	"github.com/MuhammadOdilhonov/ziyo-flix-sub004/internal/interact"
	"github.com/MuhammadOdilhonov/ziyo-flix-sub004/internal/playback"
	"github.com/MuhammadOdilhonov/ziyo-flix-sub004/internal/reels"
	"github.com/MuhammadOdilhonov/ziyo-flix-sub004/internal/session"
	"github.com/MuhammadOdilhonov/ziyo-flix-sub004/internal/visibility"
)

// Engine is one mounted feed view. Slots map 1:1 to item indexes; the host
// keeps only a small sliding window of slots mounted.
type Engine struct {
	cfg        *config.Config
	sess       *session.Context
	client     *reels.Client
	feed       *reels.Feed
	manager    *playback.Manager
	scheduler  *visibility.Scheduler
	reconciler *interact.Reconciler
	threads    *comments.Client
	store      *session.SQLiteStore
	logger     *slog.Logger
}

// New builds an engine from configuration. The decoder factory is supplied
// by the host player layer; credential lookups go through the provider.
func New(cfg *config.Config, factory playback.DecoderFactory, credential session.CredentialProvider, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := session.OpenSQLiteStore(cfg.Session.StatePath)
	if err != nil {
		return nil, fmt.Errorf("open session state: %w", err)
	}
	sess := session.NewContext(store, credential)

	timeout := time.Duration(cfg.API.TimeoutSeconds) * time.Second
	client := reels.NewClient(reels.ClientConfig{
		BaseURL:     cfg.API.BaseURL,
		MediaOrigin: cfg.Media.Origin,
		Credentials: sess,
		Timeout:     timeout,
		Logger:      logger,
	})

	feed := reels.NewFeed(reels.FeedConfig{
		Fetcher:           client,
		Seeds:             sess,
		PrefetchThreshold: cfg.Feed.PrefetchThreshold,
		Logger:            logger,
	})

	manager := playback.NewManager(factory, logger)
	manager.SetMuted(cfg.Playback.Muted)

	e := &Engine{
		cfg:        cfg,
		sess:       sess,
		client:     client,
		feed:       feed,
		manager:    manager,
		reconciler: interact.NewReconciler(client, sess, logger),
		threads:    comments.NewClient(cfg.API.BaseURL, cfg.Media.Origin, sess, timeout),
		store:      store,
		logger:     logger,
	}

	e.scheduler = visibility.NewScheduler(visibility.Config{
		Player:    manager,
		Threshold: cfg.Playback.VisibilityThreshold,
		Logger:    logger,
		OnActive: func(slot int) {
			feed.SetActiveIndex(context.Background(), slot)
		},
	})

	return e, nil
}

// Start loads the first feed page. Runs before any visibility logic.
func (e *Engine) Start(ctx context.Context) error {
	return e.feed.Start(ctx)
}

// MountSlot attaches the item at the given index to its slot. Idempotent per
// (slot, media URL).
func (e *Engine) MountSlot(ctx context.Context, index int) error {
	item, ok := e.feed.Item(index)
	if !ok {
		return fmt.Errorf("mount slot %d: no item", index)
	}
	return e.manager.Attach(ctx, index, item.ID, item.MediaURL, false)
}

// UnmountSlot destroys the session for a slot leaving the DOM window.
func (e *Engine) UnmountSlot(index int) {
	e.manager.Destroy(index)
}

// Observe feeds one intersection event into the visibility scheduler.
func (e *Engine) Observe(ctx context.Context, ev visibility.Event) {
	e.scheduler.Observe(ctx, ev)
}

// Thread opens the comment thread for an item.
func (e *Engine) Thread(itemID string) *comments.Thread {
	return comments.NewThread(comments.ThreadConfig{
		ItemID:            itemID,
		Fetcher:           e.threads,
		Poster:            e.threads,
		Auth:              e.sess,
		ScrollThresholdPx: e.cfg.Comments.ScrollThresholdPx,
		Logger:            e.logger,
	})
}

func (e *Engine) Feed() *reels.Feed                { return e.feed }
func (e *Engine) Playback() *playback.Manager      { return e.manager }
func (e *Engine) Reconciler() *interact.Reconciler { return e.reconciler }
func (e *Engine) Session() *session.Context        { return e.sess }

// SetMuted applies the global mute flag across every session.
func (e *Engine) SetMuted(muted bool) {
	e.manager.SetMuted(muted)
}

// Close destroys every playback session and releases local state. Teardown
// is best-effort.
func (e *Engine) Close() {
	e.manager.Close()
	if err := e.store.Close(); err != nil {
		e.logger.Warn("engine: session store close failed", "error", err)
	}
}
