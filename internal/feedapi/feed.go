package feedapi

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/MuhammadOdilhonov/ziyo-flix-sub004/internal/auth"
	"github.com/MuhammadOdilhonov/ziyo-flix-sub004/internal/httputil"
)

type reelAuthor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	IsVerified  bool   `json:"is_verified"`
}

type reelItem struct {
	ID            string     `json:"id"`
	Video         string     `json:"video"`
	Author        reelAuthor `json:"author"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	LikesCount    int64      `json:"likes_count"`
	CommentsCount int64      `json:"comments_count"`
	ViewsCount    int64      `json:"views_count"`
	IsLiked       bool       `json:"is_liked"`
	IsSaved       bool       `json:"is_saved"`
	Hashtags      []string   `json:"hashtags"`
	Type          string     `json:"type"`
	DeepLink      *string    `json:"deep_link,omitempty"`
}

type feedResponse struct {
	Results  []reelItem `json:"results"`
	Next     *string    `json:"next"`
	Previous *string    `json:"previous"`
	Seed     string     `json:"seed"`
}

// ListReels returns one page of the feed. Ordering is a deterministic shuffle
// keyed by the seed, so every page request with the same seed sees the same
// sequence and pagination never duplicates or skips entries.
func (h *Handler) ListReels(w http.ResponseWriter, r *http.Request) {
	seed := r.URL.Query().Get("seed")
	if seed == "" {
		generated, err := newFeedSeed()
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "could not start feed session")
			return
		}
		seed = generated
	}

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			httputil.WriteError(w, http.StatusBadRequest, "invalid page")
			return
		}
		page = parsed
	}

	var userIDArg *string
	if userID := auth.OptionalUserID(h.jwtSecret, r); userID != "" {
		userIDArg = &userID
	}

	rows, err := h.db.Query(r.Context(),
		`SELECT r.id, r.media_key, r.title, r.description, r.hashtags, r.kind, r.deep_link, r.views_count,
		        u.id, u.display_name, u.avatar_key, u.is_verified,
		        (SELECT COUNT(*) FROM reel_likes l WHERE l.reel_id = r.id) AS likes_count,
		        (SELECT COUNT(*) FROM reel_comments c WHERE c.reel_id = r.id) AS comments_count,
		        EXISTS(SELECT 1 FROM reel_likes l WHERE l.reel_id = r.id AND l.user_id = $2) AS is_liked,
		        EXISTS(SELECT 1 FROM reel_saves s WHERE s.reel_id = r.id AND s.user_id = $2) AS is_saved
		 FROM reels r
		 JOIN users u ON u.id = r.author_id
		 WHERE r.status = 'published'
		 ORDER BY md5($1 || r.id::text)
		 LIMIT $3 OFFSET $4`,
		seed, userIDArg, feedPageSize+1, (page-1)*feedPageSize,
	)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not fetch feed")
		return
	}
	defer rows.Close()

	results := make([]reelItem, 0, feedPageSize)
	for rows.Next() {
		var item reelItem
		var mediaKey string
		var avatarKey *string
		var hashtags []string
		if err := rows.Scan(&item.ID, &mediaKey, &item.Title, &item.Description, &hashtags,
			&item.Type, &item.DeepLink, &item.ViewsCount,
			&item.Author.ID, &item.Author.DisplayName, &avatarKey, &item.Author.IsVerified,
			&item.LikesCount, &item.CommentsCount, &item.IsLiked, &item.IsSaved,
		); err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "could not read feed")
			return
		}
		item.Video = h.mediaURL(mediaKey)
		item.Author.AvatarURL = h.avatarURL(avatarKey)
		if hashtags == nil {
			hashtags = []string{}
		}
		item.Hashtags = hashtags
		results = append(results, item)
	}
	if err := rows.Err(); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not read feed")
		return
	}

	resp := feedResponse{Results: results, Seed: seed}
	if len(results) > feedPageSize {
		resp.Results = results[:feedPageSize]
		next := feedPageURL(seed, page+1)
		resp.Next = &next
	}
	if page > 1 {
		previous := feedPageURL(seed, page-1)
		resp.Previous = &previous
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

func feedPageURL(seed string, page int) string {
	return fmt.Sprintf("/api/reels?seed=%s&page=%d", url.QueryEscape(seed), page)
}
