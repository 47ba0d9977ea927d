package types

import (
	"context"
	"time"
)

// CachedReplyMedia wraps a collected set for storage
type CachedReplyMedia struct {
	Posts    MediaReplySet `json:"posts"`
	CachedAt int64         `json:"cached_at"`
	Failed   bool          `json:"failed,omitempty"` // fetch soft-failed; stored with a short TTL
}

// ReplyMediaStore defines the interface for reply media caching, keyed by anchor post URI
type ReplyMediaStore interface {
	// Get retrieves a cached set
	// Returns (cached, found, error)
	Get(ctx context.Context, anchorURI string) (*CachedReplyMedia, bool, error)
	// GetMultiple retrieves cached sets for several anchors; misses are absent from the map
	GetMultiple(ctx context.Context, anchorURIs []string) (map[string]*CachedReplyMedia, error)
	// Set stores a set with the given TTL
	Set(ctx context.Context, anchorURI string, cached *CachedReplyMedia, ttl time.Duration) error
	// Delete drops the cached set for an anchor
	Delete(ctx context.Context, anchorURI string) error
	// Index records that each member URI sits inside anchorURI's thread window
	Index(ctx context.Context, anchorURI string, memberURIs []string, ttl time.Duration) error
	// AnchorsFor returns the anchors whose windows contained memberURI
	AnchorsFor(ctx context.Context, memberURI string) ([]string, error)
}
