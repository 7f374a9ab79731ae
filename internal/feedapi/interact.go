package feedapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MuhammadOdilhonov/ziyo-flix-sub004/internal/auth"
	"github.com/MuhammadOdilhonov/ziyo-flix-sub004/internal/httputil"
	"github.com/MuhammadOdilhonov/ziyo-flix-sub004/internal/validate"
	"github.com/MuhammadOdilhonov/ziyo-flix-sub004/internal/webhook"
)

// DefaultReportReason is substituted when a report arrives without a reason.
const DefaultReportReason = "inappropriate"

type likeResponse struct {
	Message    string `json:"message"`
	LikesCount int64  `json:"likes_count"`
}

type saveResponse struct {
	Saved bool `json:"saved"`
}

type reportRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) lookupPublishedReel(w http.ResponseWriter, r *http.Request) (string, bool) {
	reelID := chi.URLParam(r, "id")

	var id string
	err := h.db.QueryRow(r.Context(),
		`SELECT id FROM reels WHERE id = $1 AND status = 'published'`,
		reelID,
	).Scan(&id)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "reel not found")
		return "", false
	}
	return id, true
}

// ToggleLike flips the caller's like on a reel. The response message carries
// the resulting state so clients can reconcile optimistic UI.
func (h *Handler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	reelID, ok := h.lookupPublishedReel(w, r)
	if !ok {
		return
	}

	tag, err := h.db.Exec(r.Context(),
		`INSERT INTO reel_likes (reel_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		reelID, userID,
	)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not update like")
		return
	}

	message := "Liked"
	if tag.RowsAffected() == 0 {
		if _, err := h.db.Exec(r.Context(),
			`DELETE FROM reel_likes WHERE reel_id = $1 AND user_id = $2`,
			reelID, userID,
		); err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "could not update like")
			return
		}
		message = "Unliked"
	}

	var likesCount int64
	if err := h.db.QueryRow(r.Context(),
		`SELECT COUNT(*) FROM reel_likes WHERE reel_id = $1`,
		reelID,
	).Scan(&likesCount); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not count likes")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, likeResponse{Message: message, LikesCount: likesCount})
}

// Save adds a reel to the caller's saved collection. Saving twice is a no-op.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	reelID, ok := h.lookupPublishedReel(w, r)
	if !ok {
		return
	}

	if _, err := h.db.Exec(r.Context(),
		`INSERT INTO reel_saves (reel_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		reelID, userID,
	); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not save reel")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, saveResponse{Saved: true})
}

// Unsave removes a reel from the caller's saved collection.
func (h *Handler) Unsave(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	reelID, ok := h.lookupPublishedReel(w, r)
	if !ok {
		return
	}

	if _, err := h.db.Exec(r.Context(),
		`DELETE FROM reel_saves WHERE reel_id = $1 AND user_id = $2`,
		reelID, userID,
	); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not unsave reel")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, saveResponse{Saved: false})
}

// Report files a moderation report. Anonymous reports are accepted; an empty
// reason defaults to "inappropriate".
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	reelID, ok := h.lookupPublishedReel(w, r)
	if !ok {
		return
	}

	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = DefaultReportReason
	}
	if msg := validate.ReportReason(reason); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	var userIDArg *string
	if userID := auth.OptionalUserID(h.jwtSecret, r); userID != "" {
		userIDArg = &userID
	}

	var reportID string
	if err := h.db.QueryRow(r.Context(),
		`INSERT INTO reel_reports (reel_id, user_id, reason) VALUES ($1, $2, $3) RETURNING id`,
		reelID, userIDArg, reason,
	).Scan(&reportID); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not save report")
		return
	}

	if h.webhookClient != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := h.webhookClient.Dispatch(ctx, webhook.Event{
				Name:      "reel.reported",
				Timestamp: time.Now().UTC(),
				Data: map[string]any{
					"reelId":   reelID,
					"reportId": reportID,
					"reason":   reason,
				},
			}); err != nil {
				slog.Error("webhook: dispatch failed for reel.reported", "reel_id", reelID, "error", err)
			}
		}()
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"message": "Reported"})
}
