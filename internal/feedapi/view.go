package feedapi

import (
	"encoding/json"
	"net/http"

	"github.com/MuhammadOdilhonov/ziyo-flix-sub004/internal/auth"
	"github.com/MuhammadOdilhonov/ziyo-flix-sub004/internal/httputil"
)

type viewRequest struct {
	ViewerID       string  `json:"viewer_id"`
	WatchedSeconds float64 `json:"watched_seconds"`
}

// RecordView logs a view impression. Anonymous devices identify themselves
// with a client-generated viewer_id; requests without one fall back to an
// IP+user-agent hash so repeat views still deduplicate roughly.
func (h *Handler) RecordView(w http.ResponseWriter, r *http.Request) {
	reelID, ok := h.lookupPublishedReel(w, r)
	if !ok {
		return
	}

	var req viewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.WatchedSeconds < 0 {
		httputil.WriteError(w, http.StatusBadRequest, "invalid watched_seconds")
		return
	}

	ip := clientIP(r)
	viewerID := req.ViewerID
	if viewerID == "" {
		viewerID = viewerHash(ip, r.UserAgent())
	}

	var userIDArg *string
	if userID := auth.OptionalUserID(h.jwtSecret, r); userID != "" {
		userIDArg = &userID
	}

	device, osName, browser := parseClient(r.UserAgent())
	var country, city string
	if h.geo != nil {
		country, city = h.geo.Lookup(ip)
	}

	if _, err := h.db.Exec(r.Context(),
		`INSERT INTO reel_views (reel_id, viewer_id, user_id, watched_seconds, country, city, device, os, browser)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		reelID, viewerID, userIDArg, req.WatchedSeconds, country, city, device, osName, browser,
	); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not record view")
		return
	}

	if _, err := h.db.Exec(r.Context(),
		`UPDATE reels SET views_count = views_count + 1 WHERE id = $1`,
		reelID,
	); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not record view")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
