// Package comments loads and posts the per-reel comment thread. It reuses
// the feed's pagination contract: opaque continuation URLs and append-only
// pages.
package comments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MuhammadOdilhonov/ziyo-flix-sub004/internal/reels"
)

// Node is one comment. Replies are flat: at most one level deep.
type Node struct {
	ID         string
	AuthorName string
	AvatarURL  string
	Text       string
	CreatedAt  time.Time
	Replies    []*Node
}

// Page is one fetched slice of a thread.
type Page struct {
	Results []*Node
	Next    string
	Count   int
}

type rawComment struct {
	ID        string       `json:"id"`
	Author    rawAuthor    `json:"author"`
	Text      string       `json:"text"`
	CreatedAt time.Time    `json:"created_at"`
	Replies   []rawComment `json:"replies"`
}

type rawAuthor struct {
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

type rawCommentPage struct {
	Results  []rawComment `json:"results"`
	Next     *string      `json:"next"`
	Previous *string      `json:"previous"`
	Count    int          `json:"count"`
}

// Client talks to the comment endpoints of the reels backend.
type Client struct {
	baseURL     string
	mediaOrigin string
	creds       reels.CredentialSource
	httpClient  *http.Client
}

func NewClient(baseURL, mediaOrigin string, creds reels.CredentialSource, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		mediaOrigin: mediaOrigin,
		creds:       creds,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// FetchComments loads one page of a thread. The first page passes an empty
// continuation; later pages pass the opaque next URL from the previous page.
func (c *Client) FetchComments(ctx context.Context, itemID, continuation string) (Page, error) {
	target := continuation
	if target == "" {
		target = c.baseURL + "/api/reels/" + itemID + "/comments"
	} else if !strings.HasPrefix(target, "http") {
		target = c.baseURL + target
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Page{}, fmt.Errorf("create comments request: %w", err)
	}
	c.setAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("fetch comments: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("comments returned status %d", resp.StatusCode)
	}

	var raw rawCommentPage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Page{}, fmt.Errorf("decode comments: %w", err)
	}

	page := Page{Count: raw.Count, Results: make([]*Node, 0, len(raw.Results))}
	if raw.Next != nil {
		page.Next = *raw.Next
	}
	for _, r := range raw.Results {
		page.Results = append(page.Results, c.normalize(r))
	}
	return page, nil
}

// PostComment creates a top-level comment or, with parentID set, a reply.
func (c *Client) PostComment(ctx context.Context, itemID, text string, parentID string) (*Node, error) {
	body := map[string]string{"text": text}
	if parentID != "" {
		body["parent_id"] = parentID
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal comment: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/reels/"+itemID+"/comments", bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("create comment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post comment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("post comment returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var raw rawComment
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode comment: %w", err)
	}
	return c.normalize(raw), nil
}

// normalize resolves avatar URLs through the shared media-origin rule,
// including the one level of replies.
func (c *Client) normalize(raw rawComment) *Node {
	node := &Node{
		ID:         raw.ID,
		AuthorName: raw.Author.DisplayName,
		AvatarURL:  reels.ResolveMediaURL(c.mediaOrigin, raw.Author.AvatarURL),
		Text:       raw.Text,
		CreatedAt:  raw.CreatedAt,
	}
	for _, reply := range raw.Replies {
		node.Replies = append(node.Replies, c.normalize(reply))
	}
	return node
}

func (c *Client) setAuthHeader(req *http.Request) {
	if c.creds == nil {
		return
	}
	if token, err := c.creds.Token(); err == nil && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
