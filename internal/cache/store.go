package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"time"

	"reply-overlay/internal/types"
)

// ReplyMediaNamespace prefixes every reply media key
const ReplyMediaNamespace = "reply-media"

// ReplyMediaKey is the cache key for an anchor post
func ReplyMediaKey(anchorURI string) string {
	return ReplyMediaNamespace + ":" + anchorURI
}

// ReplyMediaIndexNamespace prefixes the member-to-anchor index keys
const ReplyMediaIndexNamespace = "reply-media-index"

// maxIndexedAnchors bounds the anchors remembered per member; the oldest fall off first
const maxIndexedAnchors = 32

// ReplyMediaIndexKey is the index key for a post inside one or more anchor windows
func ReplyMediaIndexKey(memberURI string) string {
	return ReplyMediaIndexNamespace + ":" + memberURI
}

// ReplyMediaStore implements types.ReplyMediaStore over any CacheBackend.
// Entries are JSON; posts are re-validated when decoded.
type ReplyMediaStore struct {
	backend CacheBackend
}

var _ types.ReplyMediaStore = (*ReplyMediaStore)(nil)

// NewReplyMediaStore creates a typed store over backend
func NewReplyMediaStore(backend CacheBackend) *ReplyMediaStore {
	return &ReplyMediaStore{backend: backend}
}

func (s *ReplyMediaStore) Get(ctx context.Context, anchorURI string) (*types.CachedReplyMedia, bool, error) {
	data, found, err := s.backend.Get(ctx, ReplyMediaKey(anchorURI))
	if err != nil || !found {
		return nil, false, err
	}
	cached, ok := decodeCached(anchorURI, data)
	return cached, ok, nil
}

func (s *ReplyMediaStore) GetMultiple(ctx context.Context, anchorURIs []string) (map[string]*types.CachedReplyMedia, error) {
	keys := make([]string, len(anchorURIs))
	for i, uri := range anchorURIs {
		keys[i] = ReplyMediaKey(uri)
	}
	values, err := s.backend.GetMultiple(ctx, keys)
	if err != nil {
		return nil, err
	}

	result := make(map[string]*types.CachedReplyMedia, len(values))
	for i, uri := range anchorURIs {
		data, ok := values[keys[i]]
		if !ok {
			continue
		}
		if cached, ok := decodeCached(uri, data); ok {
			result[uri] = cached
		}
	}
	return result, nil
}

func (s *ReplyMediaStore) Set(ctx context.Context, anchorURI string, cached *types.CachedReplyMedia, ttl time.Duration) error {
	data, err := json.Marshal(cached)
	if err != nil {
		return err
	}
	return s.backend.Set(ctx, ReplyMediaKey(anchorURI), data, ttl)
}

func (s *ReplyMediaStore) Delete(ctx context.Context, anchorURI string) error {
	return s.backend.Delete(ctx, ReplyMediaKey(anchorURI))
}

// Index merges anchorURI into each member's anchor list. Lists are rewritten with ttl,
// so an index entry lives at least as long as the newest set that produced it.
// Concurrent indexing of one member can drop an anchor; that anchor then expires on its TTL.
func (s *ReplyMediaStore) Index(ctx context.Context, anchorURI string, memberURIs []string, ttl time.Duration) error {
	if anchorURI == "" || len(memberURIs) == 0 {
		return nil
	}
	keys := make([]string, len(memberURIs))
	for i, uri := range memberURIs {
		keys[i] = ReplyMediaIndexKey(uri)
	}
	existing, err := s.backend.GetMultiple(ctx, keys)
	if err != nil {
		return err
	}

	for i, uri := range memberURIs {
		anchors := mergeAnchor(decodeAnchors(uri, existing[keys[i]]), anchorURI)
		data, err := json.Marshal(anchors)
		if err != nil {
			return err
		}
		if err := s.backend.Set(ctx, keys[i], data, ttl); err != nil {
			return err
		}
	}
	return nil
}

func (s *ReplyMediaStore) AnchorsFor(ctx context.Context, memberURI string) ([]string, error) {
	data, found, err := s.backend.Get(ctx, ReplyMediaIndexKey(memberURI))
	if err != nil || !found {
		return nil, err
	}
	return decodeAnchors(memberURI, data), nil
}

// mergeAnchor appends anchor unless present, keeping the newest maxIndexedAnchors
func mergeAnchor(anchors []string, anchor string) []string {
	if slices.Contains(anchors, anchor) {
		return anchors
	}
	anchors = append(anchors, anchor)
	if len(anchors) > maxIndexedAnchors {
		anchors = anchors[len(anchors)-maxIndexedAnchors:]
	}
	return anchors
}

func decodeAnchors(memberURI string, data []byte) []string {
	if data == nil {
		return nil
	}
	var anchors []string
	if err := json.Unmarshal(data, &anchors); err != nil {
		slog.Warn("reply media index entry unreadable", "member", memberURI, "error", err)
		return nil
	}
	return anchors
}

// decodeCached treats an undecodable entry as a miss
func decodeCached(anchorURI string, data []byte) (*types.CachedReplyMedia, bool) {
	var cached types.CachedReplyMedia
	if err := json.Unmarshal(data, &cached); err != nil {
		slog.Warn("reply media cache entry unreadable", "anchor", anchorURI, "error", err)
		return nil, false
	}
	if cached.Posts == nil {
		cached.Posts = types.MediaReplySet{}
	}
	return &cached, true
}
