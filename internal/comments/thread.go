package comments

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MuhammadOdilhonov/ziyo-flix-sub004/internal/interact"
)

// DefaultScrollThresholdPx triggers the next page when the remaining scroll
// distance in the comment container drops below this many pixels.
const DefaultScrollThresholdPx = 120.0

// Fetcher loads thread pages.
type Fetcher interface {
	FetchComments(ctx context.Context, itemID, continuation string) (Page, error)
}

// Poster creates comments and replies.
type Poster interface {
	PostComment(ctx context.Context, itemID, text string, parentID string) (*Node, error)
}

// Authenticator reports whether a usable credential is present.
type Authenticator interface {
	Authenticated() bool
}

// Thread is the loaded comment state for one reel: an ordered top-level list
// (newest first), a continuation cursor with a single-flight guard, and the
// "replying to" context.
type Thread struct {
	itemID    string
	fetcher   Fetcher
	poster    Poster
	auth      Authenticator
	logger    *slog.Logger
	threshold float64

	mu            sync.Mutex
	nodes         []*Node
	next          string
	count         int
	loaded        bool
	exhausted     bool
	fetchInFlight bool
	replyTo       string
}

type ThreadConfig struct {
	ItemID            string
	Fetcher           Fetcher
	Poster            Poster
	Auth              Authenticator
	ScrollThresholdPx float64
	Logger            *slog.Logger
}

func NewThread(cfg ThreadConfig) *Thread {
	threshold := cfg.ScrollThresholdPx
	if threshold <= 0 {
		threshold = DefaultScrollThresholdPx
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Thread{
		itemID:    cfg.ItemID,
		fetcher:   cfg.Fetcher,
		poster:    cfg.Poster,
		auth:      cfg.Auth,
		logger:    logger,
		threshold: threshold,
	}
}

// Load fetches the first page. Fetch failures degrade to an empty thread;
// the condition is logged.
func (t *Thread) Load(ctx context.Context) {
	t.mu.Lock()
	if t.loaded || t.fetchInFlight {
		t.mu.Unlock()
		return
	}
	t.fetchInFlight = true
	t.mu.Unlock()

	t.fetch(ctx, "")
}

// OnScroll consumes the remaining scroll distance of the comment container
// and fetches the next page when it drops below the threshold, a next token
// exists and no fetch is in flight.
func (t *Thread) OnScroll(ctx context.Context, remainingPx float64) {
	t.mu.Lock()
	if remainingPx > t.threshold || t.exhausted || t.next == "" || t.fetchInFlight {
		t.mu.Unlock()
		return
	}
	t.fetchInFlight = true
	continuation := t.next
	t.mu.Unlock()

	t.fetch(ctx, continuation)
}

func (t *Thread) fetch(ctx context.Context, continuation string) {
	page, err := t.fetcher.FetchComments(ctx, t.itemID, continuation)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.fetchInFlight = false
	t.loaded = true
	if err != nil {
		t.logger.Warn("comments: fetch failed", "item_id", t.itemID, "error", err)
		return
	}

	t.nodes = append(t.nodes, page.Results...)
	t.next = page.Next
	t.count = page.Count
	if page.Next == "" {
		t.exhausted = true
	}
}

// Post submits a comment. A top-level comment is prepended (newest first); a
// reply is appended to its parent's reply list and the reply context is
// cleared. Posting requires a credential.
func (t *Thread) Post(ctx context.Context, text string) (*Node, error) {
	if !t.auth.Authenticated() {
		return nil, interact.ErrUnauthorized
	}

	t.mu.Lock()
	parentID := t.replyTo
	t.mu.Unlock()

	node, err := t.poster.PostComment(ctx, t.itemID, text, parentID)
	if err != nil {
		return nil, fmt.Errorf("post comment: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if parentID == "" {
		t.nodes = append([]*Node{node}, t.nodes...)
	} else {
		for _, parent := range t.nodes {
			if parent.ID == parentID {
				parent.Replies = append(parent.Replies, node)
				break
			}
		}
	}
	t.count++
	t.replyTo = ""
	return node, nil
}

// SetReplyTo marks the parent the next Post replies to. Empty clears it.
func (t *Thread) SetReplyTo(parentID string) {
	t.mu.Lock()
	t.replyTo = parentID
	t.mu.Unlock()
}

func (t *Thread) ReplyTo() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.replyTo
}

// Nodes returns the current top-level comments, newest first.
func (t *Thread) Nodes() []*Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nodes
}

func (t *Thread) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

func (t *Thread) Exhausted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exhausted
}
