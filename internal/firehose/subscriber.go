// Package firehose follows the Jetstream post firehose and drops cached reply media sets
// as soon as a new media reply is created under them.
package firehose

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"reply-overlay/internal/metrics"
)

// Invalidator drops the cached set of uri and of every anchor whose thread window held uri.
// Implemented by *replymedia.Service.
type Invalidator interface {
	Invalidate(ctx context.Context, uri string) error
}

// Subscriber reads Jetstream and invalidates affected anchors
type Subscriber struct {
	endpoint    string
	invalidator Invalidator
	dialer      *websocket.Dialer
	logger      *slog.Logger
	minBackoff  time.Duration
	maxBackoff  time.Duration
	cursor      atomic.Int64 // time_us of the last event seen, resumes after reconnect
}

// NewSubscriber creates a subscriber for a Jetstream subscribe endpoint
func NewSubscriber(endpoint string, invalidator Invalidator) *Subscriber {
	return &Subscriber{
		endpoint:    endpoint,
		invalidator: invalidator,
		dialer:      websocket.DefaultDialer,
		logger:      slog.Default(),
		minBackoff:  time.Second,
		maxBackoff:  30 * time.Second,
	}
}

// Run reads until ctx is cancelled, reconnecting with capped exponential backoff.
// It always returns ctx.Err().
func (s *Subscriber) Run(ctx context.Context) error {
	backoff := s.minBackoff
	for {
		received, err := s.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if received {
			backoff = s.minBackoff
		}
		metrics.FirehoseReconnects.Add(1)
		s.logger.Warn("firehose disconnected", "error", err, "retry_in", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, s.maxBackoff)
	}
}

// subscribeURL filters to posts and resumes from the last cursor
func (s *Subscriber) subscribeURL() (string, error) {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid jetstream URL: %w", err)
	}
	q := u.Query()
	if !q.Has("wantedCollections") {
		q.Set("wantedCollections", postCollection)
	}
	if cursor := s.cursor.Load(); cursor > 0 {
		q.Set("cursor", strconv.FormatInt(cursor, 10))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// runOnce holds one connection; received reports whether any message arrived
func (s *Subscriber) runOnce(ctx context.Context) (received bool, err error) {
	endpoint, err := s.subscribeURL()
	if err != nil {
		return false, err
	}
	conn, _, err := s.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}
	s.logger.Info("firehose connected", "url", endpoint)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
			conn.Close()
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return received, errors.New("closed by server")
			}
			return received, err
		}
		received = true
		s.handleMessage(ctx, data)
	}
}

// handleMessage invalidates the anchors a message affects and returns them
func (s *Subscriber) handleMessage(ctx context.Context, data []byte) []string {
	var ev event
	if err := json.Unmarshal(data, &ev); err != nil {
		s.logger.Debug("firehose: undecodable message", "error", err)
		return nil
	}
	if ev.TimeUS > 0 {
		s.cursor.Store(ev.TimeUS)
	}

	anchors := ev.affectedAnchors()
	for _, anchor := range anchors {
		if err := s.invalidator.Invalidate(ctx, anchor); err != nil {
			s.logger.Warn("firehose: invalidate failed", "anchor", anchor, "error", err)
			continue
		}
		metrics.FirehoseInvalidations.Add(1)
		s.logger.Debug("firehose: invalidated reply media", "anchor", anchor, "author", ev.DID)
	}
	return anchors
}
