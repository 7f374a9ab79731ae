package feedapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MuhammadOdilhonov/ziyo-flix-sub004/internal/auth"
	"github.com/MuhammadOdilhonov/ziyo-flix-sub004/internal/httputil"
)

type analyticsSummary struct {
	TotalViews        int64   `json:"total_views"`
	UniqueViewers     int64   `json:"unique_viewers"`
	AvgWatchedSeconds float64 `json:"avg_watched_seconds"`
	Likes             int64   `json:"likes"`
	Saves             int64   `json:"saves"`
	Comments          int64   `json:"comments"`
}

type dailyViews struct {
	Date          string `json:"date"`
	Views         int64  `json:"views"`
	UniqueViewers int64  `json:"unique_viewers"`
}

type breakdownItem struct {
	Name       string  `json:"name"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

type analyticsResponse struct {
	Summary   analyticsSummary `json:"summary"`
	Daily     []dailyViews     `json:"daily"`
	Devices   []breakdownItem  `json:"devices"`
	Countries []breakdownItem  `json:"countries"`
}

// Analytics returns the owner-facing view summary for one reel.
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	reelID := chi.URLParam(r, "id")

	var id string
	err := h.db.QueryRow(r.Context(),
		`SELECT id FROM reels WHERE id = $1 AND author_id = $2`,
		reelID, userID,
	).Scan(&id)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "reel not found")
		return
	}

	days := 7
	switch r.URL.Query().Get("range") {
	case "", "7d":
		days = 7
	case "30d":
		days = 30
	case "90d":
		days = 90
	default:
		httputil.WriteError(w, http.StatusBadRequest, "invalid range: must be 7d, 30d, or 90d")
		return
	}

	now := time.Now().UTC().Truncate(24 * time.Hour)
	since := now.AddDate(0, 0, -(days - 1))

	var summary analyticsSummary
	if err := h.db.QueryRow(r.Context(),
		`SELECT COUNT(*), COUNT(DISTINCT viewer_id), COALESCE(AVG(watched_seconds), 0)
		 FROM reel_views WHERE reel_id = $1 AND created_at >= $2`,
		reelID, since,
	).Scan(&summary.TotalViews, &summary.UniqueViewers, &summary.AvgWatchedSeconds); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to query analytics")
		return
	}

	if err := h.db.QueryRow(r.Context(),
		`SELECT
		    (SELECT COUNT(*) FROM reel_likes WHERE reel_id = $1),
		    (SELECT COUNT(*) FROM reel_saves WHERE reel_id = $1),
		    (SELECT COUNT(*) FROM reel_comments WHERE reel_id = $1)`,
		reelID,
	).Scan(&summary.Likes, &summary.Saves, &summary.Comments); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to query analytics")
		return
	}

	rows, err := h.db.Query(r.Context(),
		`SELECT date_trunc('day', created_at) AS day, COUNT(*), COUNT(DISTINCT viewer_id)
		 FROM reel_views WHERE reel_id = $1 AND created_at >= $2
		 GROUP BY day ORDER BY day`,
		reelID, since,
	)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to query analytics")
		return
	}
	defer rows.Close()

	dataByDate := make(map[string]dailyViews)
	for rows.Next() {
		var day time.Time
		var views, unique int64
		if err := rows.Scan(&day, &views, &unique); err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "failed to scan analytics")
			return
		}
		dateStr := day.Format("2006-01-02")
		dataByDate[dateStr] = dailyViews{Date: dateStr, Views: views, UniqueViewers: unique}
	}
	if err := rows.Err(); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to read analytics")
		return
	}

	daily := make([]dailyViews, 0, days)
	for i := days - 1; i >= 0; i-- {
		dateStr := now.AddDate(0, 0, -i).Format("2006-01-02")
		if entry, ok := dataByDate[dateStr]; ok {
			daily = append(daily, entry)
		} else {
			daily = append(daily, dailyViews{Date: dateStr})
		}
	}

	devices := h.viewBreakdown(r, reelID, since, "device")
	countries := h.viewBreakdown(r, reelID, since, "country")

	httputil.WriteJSON(w, http.StatusOK, analyticsResponse{
		Summary:   summary,
		Daily:     daily,
		Devices:   devices,
		Countries: countries,
	})
}

// viewBreakdown groups views by one dimension column. Errors degrade to an
// empty breakdown; the summary is the load-bearing part of the response.
func (h *Handler) viewBreakdown(r *http.Request, reelID string, since time.Time, column string) []breakdownItem {
	query := `SELECT COALESCE(` + column + `, ''), COUNT(*) AS cnt
	 FROM reel_views WHERE reel_id = $1 AND created_at >= $2
	 GROUP BY 1 ORDER BY cnt DESC`

	items := make([]breakdownItem, 0)
	rows, err := h.db.Query(r.Context(), query, reelID, since)
	if err != nil {
		return items
	}
	defer rows.Close()

	var total int64
	for rows.Next() {
		var item breakdownItem
		if err := rows.Scan(&item.Name, &item.Count); err != nil {
			continue
		}
		items = append(items, item)
		total += item.Count
	}
	if total > 0 {
		for i := range items {
			items[i].Percentage = float64(items[i].Count) / float64(total) * 100
		}
	}
	return items
}
