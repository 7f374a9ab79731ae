package feedapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MuhammadOdilhonov/ziyo-flix-sub004/internal/auth"
	"github.com/MuhammadOdilhonov/ziyo-flix-sub004/internal/httputil"
	"github.com/MuhammadOdilhonov/ziyo-flix-sub004/internal/validate"
)

type commentAuthor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

type commentNode struct {
	ID        string        `json:"id"`
	Author    commentAuthor `json:"author"`
	Text      string        `json:"text"`
	CreatedAt time.Time     `json:"created_at"`
	Replies   []commentNode `json:"replies"`
}

type commentPageResponse struct {
	Results  []commentNode `json:"results"`
	Next     *string       `json:"next"`
	Previous *string       `json:"previous"`
	Count    int64         `json:"count"`
}

type postCommentRequest struct {
	Text     string `json:"text"`
	ParentID string `json:"parent_id"`
}

// ListComments returns one page of top-level comments, newest first, with
// replies embedded. Only top-level comments paginate; threads are one level
// deep so reply sets stay small.
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	reelID, ok := h.lookupPublishedReel(w, r)
	if !ok {
		return
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

	var count int64
	if err := h.db.QueryRow(r.Context(),
		`SELECT COUNT(*) FROM reel_comments WHERE reel_id = $1 AND parent_id IS NULL`,
		reelID,
	).Scan(&count); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not count comments")
		return
	}

	rows, err := h.db.Query(r.Context(),
		`SELECT c.id, c.text, c.created_at, u.id, u.display_name, u.avatar_key
		 FROM reel_comments c
		 JOIN users u ON u.id = c.user_id
		 WHERE c.reel_id = $1 AND c.parent_id IS NULL
		 ORDER BY c.created_at DESC
		 LIMIT $2 OFFSET $3`,
		reelID, commentPageSize, (page-1)*commentPageSize,
	)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not fetch comments")
		return
	}
	defer rows.Close()

	results := make([]commentNode, 0, commentPageSize)
	parentIDs := make([]string, 0, commentPageSize)
	byID := make(map[string]int)
	for rows.Next() {
		var node commentNode
		var avatarKey *string
		if err := rows.Scan(&node.ID, &node.Text, &node.CreatedAt,
			&node.Author.ID, &node.Author.DisplayName, &avatarKey,
		); err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "could not read comments")
			return
		}
		node.Author.AvatarURL = h.avatarURL(avatarKey)
		node.Replies = []commentNode{}
		byID[node.ID] = len(results)
		results = append(results, node)
		parentIDs = append(parentIDs, node.ID)
	}
	if err := rows.Err(); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not read comments")
		return
	}

	if len(parentIDs) > 0 {
		replyRows, err := h.db.Query(r.Context(),
			`SELECT c.id, c.parent_id, c.text, c.created_at, u.id, u.display_name, u.avatar_key
			 FROM reel_comments c
			 JOIN users u ON u.id = c.user_id
			 WHERE c.parent_id = ANY($1)
			 ORDER BY c.created_at ASC`,
			parentIDs,
		)
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "could not fetch replies")
			return
		}
		defer replyRows.Close()

		for replyRows.Next() {
			var reply commentNode
			var parentID string
			var avatarKey *string
			if err := replyRows.Scan(&reply.ID, &parentID, &reply.Text, &reply.CreatedAt,
				&reply.Author.ID, &reply.Author.DisplayName, &avatarKey,
			); err != nil {
				httputil.WriteError(w, http.StatusInternalServerError, "could not read replies")
				return
			}
			reply.Author.AvatarURL = h.avatarURL(avatarKey)
			reply.Replies = []commentNode{}
			if idx, ok := byID[parentID]; ok {
				results[idx].Replies = append(results[idx].Replies, reply)
			}
		}
		if err := replyRows.Err(); err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "could not read replies")
			return
		}
	}

	resp := commentPageResponse{Results: results, Count: count}
	if int64(page*commentPageSize) < count {
		next := commentPageURL(reelID, page+1)
		resp.Next = &next
	}
	if page > 1 {
		previous := commentPageURL(reelID, page-1)
		resp.Previous = &previous
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

func commentPageURL(reelID string, page int) string {
	return fmt.Sprintf("/api/reels/%s/comments?page=%d", url.PathEscape(reelID), page)
}

// PostComment creates a top-level comment or, with parent_id set, a reply.
// Replies to replies are rejected to keep threads one level deep.
func (h *Handler) PostComment(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	reelID, ok := h.lookupPublishedReel(w, r)
	if !ok {
		return
	}

	var req postCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		httputil.WriteError(w, http.StatusBadRequest, "comment text is required")
		return
	}
	if msg := validate.CommentText(req.Text); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	var parentIDArg *string
	if req.ParentID != "" {
		var parentParent *string
		err := h.db.QueryRow(r.Context(),
			`SELECT parent_id FROM reel_comments WHERE id = $1 AND reel_id = $2`,
			req.ParentID, reelID,
		).Scan(&parentParent)
		if err != nil {
			httputil.WriteError(w, http.StatusNotFound, "parent comment not found")
			return
		}
		if parentParent != nil {
			httputil.WriteError(w, http.StatusBadRequest, "replies to replies are not allowed")
			return
		}
		parentIDArg = &req.ParentID
	}

	var commentID string
	var createdAt time.Time
	if err := h.db.QueryRow(r.Context(),
		`INSERT INTO reel_comments (reel_id, user_id, parent_id, text)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		reelID, userID, parentIDArg, req.Text,
	).Scan(&commentID, &createdAt); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not save comment")
		return
	}

	var displayName string
	var avatarKey *string
	if err := h.db.QueryRow(r.Context(),
		`SELECT display_name, avatar_key FROM users WHERE id = $1`,
		userID,
	).Scan(&displayName, &avatarKey); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not load author")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, commentNode{
		ID: commentID,
		Author: commentAuthor{
			ID:          userID,
			DisplayName: displayName,
			AvatarURL:   h.avatarURL(avatarKey),
		},
		Text:      req.Text,
		CreatedAt: createdAt,
		Replies:   []commentNode{},
	})
}
