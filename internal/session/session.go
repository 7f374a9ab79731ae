// Package session holds the per-viewer browsing context: the persisted feed
// seed, the viewer id and the credential accessor. It replaces ambient
// global lookups so the engine can run against fakes.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	keySeed     = "feed_seed"
	keyViewerID = "viewer_id"
)

// ErrNoCredential is the defined unauthorized condition: no usable credential
// is present for an authenticated action.
var ErrNoCredential = errors.New("session: no credential")

// CredentialProvider returns the stored access token, or an empty string when
// the viewer is signed out.
type CredentialProvider func() string

// Context is the explicit session state injected into the fetcher, the
// reconciler and the comment loader.
type Context struct {
	store      Store
	credential CredentialProvider

	mu       sync.Mutex
	seed     string
	viewerID string
}

func NewContext(store Store, credential CredentialProvider) *Context {
	return &Context{store: store, credential: credential}
}

// Seed returns the persisted randomization seed, or empty when none has been
// stored yet. Satisfies reels.SeedStore.
func (c *Context) Seed() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seed != "" {
		return c.seed, nil
	}
	seed, err := c.store.Get(keySeed)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	c.seed = seed
	return seed, nil
}

// SetSeed persists the seed for the life of the browsing session.
func (c *Context) SetSeed(seed string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seed = seed
	return c.store.Set(keySeed, seed)
}

// ViewerID returns a stable anonymous id for this installation, generating
// and persisting one on first use.
func (c *Context) ViewerID() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.viewerID != "" {
		return c.viewerID, nil
	}
	id, err := c.store.Get(keyViewerID)
	if err == nil {
		c.viewerID = id
		return id, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", err
	}
	id = uuid.NewString()
	if err := c.store.Set(keyViewerID, id); err != nil {
		return "", fmt.Errorf("persist viewer id: %w", err)
	}
	c.viewerID = id
	return id, nil
}

// Token returns the current access token. An absent or expired token counts
// as no credential. Satisfies reels.CredentialSource.
func (c *Context) Token() (string, error) {
	if c.credential == nil {
		return "", ErrNoCredential
	}
	token := c.credential()
	if token == "" {
		return "", ErrNoCredential
	}
	if expired(token) {
		return "", ErrNoCredential
	}
	return token, nil
}

// Authenticated reports whether a usable credential is present.
func (c *Context) Authenticated() bool {
	_, err := c.Token()
	return err == nil
}

// expired checks the exp claim without verifying the signature; the server
// remains authoritative, this only avoids sending tokens that are certainly
// dead.
func expired(token string) bool {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		// Opaque non-JWT credentials pass through; the server decides.
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
