// Package replymedia serves media reply sets for anchor posts, fetching on cache misses
// and coalescing concurrent lookups for the same anchor.
package replymedia

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"reply-overlay/internal/cache"
	"reply-overlay/internal/metrics"
	"reply-overlay/internal/thread"
	"reply-overlay/internal/types"
)

// ThreadFetcher fetches one thread window. Implemented by *appview.Client.
type ThreadFetcher interface {
	GetThread(ctx context.Context, q types.ThreadQuery) (*types.ThreadResponse, error)
}

// Service resolves anchors to media reply sets. The store may be nil, which disables caching.
type Service struct {
	fetcher ThreadFetcher
	store   types.ReplyMediaStore
	cfg     cache.CacheConfig
	group   singleflight.Group
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a service over fetcher and store
func NewService(fetcher ThreadFetcher, store types.ReplyMediaStore, cfg cache.CacheConfig) *Service {
	return &Service{
		fetcher: fetcher,
		store:   store,
		cfg:     cfg,
		logger:  slog.Default(),
		now:     time.Now,
	}
}

// WithLogger replaces the service logger
func (s *Service) WithLogger(logger *slog.Logger) *Service {
	s.logger = logger
	return s
}

// Collect fetches the anchor's thread and returns its media replies, bypassing the cache.
// It never fails: fetch errors are logged and yield an empty set.
func (s *Service) Collect(ctx context.Context, anchorURI string) types.MediaReplySet {
	result, _ := s.collect(ctx, anchorURI)
	return result.set
}

// collected is one fetch outcome: the set plus every descendant URI the window held
type collected struct {
	set     types.MediaReplySet
	members []string
}

func (s *Service) collect(ctx context.Context, anchorURI string) (collected, error) {
	if anchorURI == "" {
		return collected{set: types.MediaReplySet{}}, nil
	}

	metrics.Fetches.Add(1)
	resp, err := s.fetcher.GetThread(ctx, thread.Query(anchorURI))
	if err != nil {
		metrics.FetchFailures.Add(1)
		s.logger.Warn("reply media fetch failed", "anchor", anchorURI, "error", err)
		return collected{set: types.MediaReplySet{}}, err
	}
	return collected{
		set:     thread.CollectMediaReplies(resp, anchorURI),
		members: thread.Members(resp, anchorURI),
	}, nil
}

// Get returns the anchor's set from cache, or fetches and caches it.
// Concurrent misses for one anchor share a single fetch.
func (s *Service) Get(ctx context.Context, anchorURI string) types.MediaReplySet {
	if anchorURI == "" {
		return types.MediaReplySet{}
	}

	if cached, ok := s.lookup(ctx, anchorURI); ok {
		metrics.IncrementCacheHit()
		return cached.Posts
	}
	metrics.IncrementCacheMiss()
	return s.fill(ctx, anchorURI)
}

// fill fetches and stores an anchor known to be missing from the cache
func (s *Service) fill(ctx context.Context, anchorURI string) types.MediaReplySet {
	result, _, shared := s.group.Do(anchorURI, func() (interface{}, error) {
		// Detached so one caller's cancellation does not fail the others sharing this flight
		fetchCtx := context.WithoutCancel(ctx)
		c, err := s.collect(fetchCtx, anchorURI)
		s.save(fetchCtx, anchorURI, c, err != nil)
		return c.set, nil
	})

	if shared {
		metrics.CoalescedFetches.Add(1)
		s.logger.Debug("singleflight: shared reply media fetch", "anchor", anchorURI)
	}
	return result.(types.MediaReplySet)
}

// GetMany resolves several anchors with one batched cache read. Empty and repeated
// anchors are ignored; every other anchor is present in the result.
func (s *Service) GetMany(ctx context.Context, anchorURIs []string) map[string]types.MediaReplySet {
	seen := make(map[string]struct{}, len(anchorURIs))
	var anchors []string
	for _, uri := range anchorURIs {
		if uri == "" {
			continue
		}
		if _, dup := seen[uri]; dup {
			continue
		}
		seen[uri] = struct{}{}
		anchors = append(anchors, uri)
	}
	result := make(map[string]types.MediaReplySet, len(anchors))
	if len(anchors) == 0 {
		return result
	}

	var cached map[string]*types.CachedReplyMedia
	if s.store != nil {
		var err error
		cached, err = s.store.GetMultiple(ctx, anchors)
		if err != nil {
			s.logger.Debug("reply media cache read failed", "count", len(anchors), "error", err)
		}
	}

	var missing []string
	for _, uri := range anchors {
		if c, ok := cached[uri]; ok {
			metrics.IncrementCacheHit()
			result[uri] = c.Posts
			continue
		}
		metrics.IncrementCacheMiss()
		missing = append(missing, uri)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, uri := range missing {
		wg.Add(1)
		go func(anchor string) {
			defer wg.Done()
			set := s.fill(ctx, anchor)
			mu.Lock()
			result[anchor] = set
			mu.Unlock()
		}(uri)
	}
	wg.Wait()
	return result
}

// Invalidate drops the cached set keyed by uri and the set of every anchor whose
// thread window contained uri, so a reply anywhere below a cached anchor reaches it.
func (s *Service) Invalidate(ctx context.Context, uri string) error {
	if s.store == nil || uri == "" {
		return nil
	}
	errs := []error{s.store.Delete(ctx, uri)}

	anchors, err := s.store.AnchorsFor(ctx, uri)
	errs = append(errs, err)
	for _, anchor := range anchors {
		if anchor == uri {
			continue
		}
		errs = append(errs, s.store.Delete(ctx, anchor))
		s.logger.Debug("reply media invalidated via descendant", "anchor", anchor, "member", uri)
	}
	return errors.Join(errs...)
}

// lookup treats read errors as misses
func (s *Service) lookup(ctx context.Context, anchorURI string) (*types.CachedReplyMedia, bool) {
	if s.store == nil {
		return nil, false
	}
	cached, found, err := s.store.Get(ctx, anchorURI)
	if err != nil {
		s.logger.Debug("reply media cache read failed", "anchor", anchorURI, "error", err)
		return nil, false
	}
	return cached, found
}

// save stores a fetched set and indexes its window members under the anchor.
// Failed fetches get the short TTL and index nothing.
func (s *Service) save(ctx context.Context, anchorURI string, c collected, failed bool) {
	if s.store == nil {
		return
	}
	ttl := s.cfg.ReplyMediaTTL
	if failed {
		ttl = s.cfg.ReplyMediaFailTTL
	}
	entry := &types.CachedReplyMedia{Posts: c.set, CachedAt: s.now().Unix(), Failed: failed}
	if err := s.store.Set(ctx, anchorURI, entry, ttl); err != nil {
		s.logger.Warn("reply media cache write failed", "anchor", anchorURI, "error", err)
		return
	}
	if err := s.store.Index(ctx, anchorURI, c.members, ttl); err != nil {
		s.logger.Warn("reply media index write failed", "anchor", anchorURI, "members", len(c.members), "error", err)
	}
}
