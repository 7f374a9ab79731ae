// Package interact reconciles viewer actions (like, save, report) between
// local feed state and the backend.
package interact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MuhammadOdilhonov/ziyo-flix-sub004/internal/reels"
)

// ErrUnauthorized signals that no credential is present. Callers redirect to
// sign-in; the action is never retried automatically and never silently
// no-ops.
var ErrUnauthorized = errors.New("interact: unauthorized")

// DefaultReportReason substitutes an empty or whitespace report reason.
// Empty reasons are defaulted rather than rejected so a report is never lost
// to a validation dead end.
const DefaultReportReason = "inappropriate"

// API is the reconciler's view of the backend client.
type API interface {
	ToggleLike(ctx context.Context, itemID string) (reels.LikeResult, error)
	SetSaved(ctx context.Context, itemID string, previousSaved bool) (bool, error)
	Report(ctx context.Context, itemID, reason string) error
}

// Authenticator reports whether a usable credential is present.
type Authenticator interface {
	Authenticated() bool
}

// Reconciler applies viewer actions to feed items. Like is pessimistic: the
// item changes only after server confirmation. Save is optimistic: the flag
// flips immediately and rolls back on failure.
type Reconciler struct {
	api    API
	auth   Authenticator
	logger *slog.Logger
}

func NewReconciler(api API, auth Authenticator, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{api: api, auth: auth, logger: logger}
}

// Like toggles the like state of an item. The item is mutated only from the
// server response; a failed call leaves it untouched. A response that lands
// after the user toggled again still wins for the count: the latest server
// response is authoritative (known race, documented).
func (r *Reconciler) Like(ctx context.Context, item *reels.Item) error {
	if !r.auth.Authenticated() {
		return ErrUnauthorized
	}

	result, err := r.api.ToggleLike(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("like %s: %w", item.ID, err)
	}

	item.Liked = result.Liked
	item.Counts.Likes = result.LikesCount
	return nil
}

// Save optimistically flips the saved flag, then confirms with the server,
// passing the pre-flip state so the server applies the right transition. On
// failure the flag reverts to its pre-flip value.
func (r *Reconciler) Save(ctx context.Context, item *reels.Item) error {
	if !r.auth.Authenticated() {
		return ErrUnauthorized
	}

	previous := item.Saved
	item.Saved = !previous

	saved, err := r.api.SetSaved(ctx, item.ID, previous)
	if err != nil {
		item.Saved = previous
		return fmt.Errorf("save %s: %w", item.ID, err)
	}

	item.Saved = saved
	return nil
}

// Report files a report for an item in a single request. An empty reason is
// defaulted, not rejected. Failure is retryable by the caller.
func (r *Reconciler) Report(ctx context.Context, itemID, reason string) error {
	if !r.auth.Authenticated() {
		return ErrUnauthorized
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultReportReason
	}

	if err := r.api.Report(ctx, itemID, reason); err != nil {
		return fmt.Errorf("report %s: %w", itemID, err)
	}
	return nil
}
