package reels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CredentialSource hands out the bearer token for authenticated calls.
// Token returns an error when no usable credential is stored.
type CredentialSource interface {
	Token() (string, error)
}

// PageRequest identifies one feed page. The first request of a session leaves
// both fields empty; later requests carry either the continuation token or the
// persisted seed.
type PageRequest struct {
	Seed              string
	ContinuationToken string
}

// Page is one fetched and normalized feed page.
type Page struct {
	Items     []*Item
	NextToken string
	Seed      string
}

type rawPage struct {
	Results []rawItem `json:"results"`
	Next    *string   `json:"next"`
	Seed    string    `json:"seed"`
}

type likeResponse struct {
	Message    string `json:"message"`
	LikesCount int    `json:"likes_count"`
}

type saveResponse struct {
	Saved bool `json:"saved"`
}

// Client talks to the reels backend API. It owns request shaping, bearer
// authentication and response normalization; feed policy lives in Feed.
type Client struct {
	baseURL     string
	mediaOrigin string
	creds       CredentialSource
	httpClient  *http.Client
	logger      *slog.Logger
}

type ClientConfig struct {
	BaseURL     string
	MediaOrigin string
	Credentials CredentialSource
	Timeout     time.Duration
	Logger      *slog.Logger
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		mediaOrigin: cfg.MediaOrigin,
		creds:       cfg.Credentials,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

// FetchPage requests one feed page. Transport and server failures degrade to
// an empty page with a nil error so the feed renders "no more content" instead
// of crashing; the condition is logged.
func (c *Client) FetchPage(ctx context.Context, req PageRequest) (Page, error) {
	target := c.pageURL(req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Page{}, fmt.Errorf("create feed request: %w", err)
	}
	c.setAuthHeader(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("feed: page fetch failed", "url", target, "error", err)
		return Page{}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("feed: page fetch returned non-200", "url", target, "status", resp.StatusCode)
		return Page{}, nil
	}

	var raw rawPage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		c.logger.Warn("feed: page decode failed", "url", target, "error", err)
		return Page{}, nil
	}

	items := make([]*Item, 0, len(raw.Results))
	for _, r := range raw.Results {
		items = append(items, normalizeItem(r, c.mediaOrigin))
	}

	page := Page{Items: items, Seed: raw.Seed}
	if raw.Next != nil {
		page.NextToken = *raw.Next
	}
	return page, nil
}

// pageURL builds the request URL. Continuation tokens are opaque server URLs;
// the seed is appended only when the token does not already encode one.
func (c *Client) pageURL(req PageRequest) string {
	if req.ContinuationToken != "" {
		target := req.ContinuationToken
		if !strings.HasPrefix(target, "http") {
			target = c.baseURL + target
		}
		if req.Seed != "" && !strings.Contains(target, "seed=") {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + "seed=" + url.QueryEscape(req.Seed)
		}
		return target
	}

	target := c.baseURL + "/api/reels"
	if req.Seed != "" {
		target += "?seed=" + url.QueryEscape(req.Seed)
	}
	return target
}

// LikeResult is the server-confirmed state after a like toggle.
type LikeResult struct {
	Liked      bool
	LikesCount int
}

// ToggleLike flips the like state of an item on the server and returns the
// authoritative result.
func (c *Client) ToggleLike(ctx context.Context, itemID string) (LikeResult, error) {
	var resp likeResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/reels/"+itemID+"/like", nil, &resp); err != nil {
		return LikeResult{}, err
	}
	return LikeResult{Liked: resp.Message == "Liked", LikesCount: resp.LikesCount}, nil
}

// SetSaved toggles the saved state. The caller passes the state *before* its
// optimistic flip so the server applies the correct transition.
func (c *Client) SetSaved(ctx context.Context, itemID string, previousSaved bool) (bool, error) {
	method := http.MethodPost
	if previousSaved {
		method = http.MethodDelete
	}
	var resp saveResponse
	if err := c.doJSON(ctx, method, "/api/reels/"+itemID+"/save", nil, &resp); err != nil {
		return false, err
	}
	return resp.Saved, nil
}

// Report files a report for an item. Submission is a single request.
func (c *Client) Report(ctx context.Context, itemID, reason string) error {
	body := map[string]string{"reason": reason}
	return c.doJSON(ctx, http.MethodPost, "/api/reels/"+itemID+"/report", body, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("api returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) setAuthHeader(req *http.Request) {
	if c.creds == nil {
		return
	}
	token, err := c.creds.Token()
	if err != nil || token == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
}
