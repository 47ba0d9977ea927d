// Package appview fetches post threads from a Bluesky AppView over XRPC.
package appview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"reply-overlay/internal/thread"
	"reply-overlay/internal/types"
)

const (
	// DefaultBaseURL is the public, unauthenticated AppView
	DefaultBaseURL = "https://public.api.bsky.app"

	defaultTimeout  = 10 * time.Second
	maxResponseSize = 4 << 20

	getPostThreadV2 = "app.bsky.unspecced.getPostThreadV2"
)

// ErrResponseTooLarge is returned when a body exceeds the read limit
var ErrResponseTooLarge = errors.New("thread response too large")

// Error is a non-200 XRPC response
type Error struct {
	Status  int
	Name    string // XRPC error name, e.g. "NotFound"
	Message string
}

func (e *Error) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("xrpc %s: status %d", getPostThreadV2, e.Status)
	}
	return fmt.Sprintf("xrpc %s: status %d: %s: %s", getPostThreadV2, e.Status, e.Name, e.Message)
}

// Client calls the AppView thread endpoint
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a client for baseURL. A zero timeout uses the default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// GetThread fetches and decodes the thread window described by q
func (c *Client) GetThread(ctx context.Context, q types.ThreadQuery) (*types.ThreadResponse, error) {
	params := url.Values{
		"anchor":          {q.Anchor},
		"branchingFactor": {strconv.Itoa(q.BranchingFactor)},
		"below":           {strconv.Itoa(q.Below)},
		"sort":            {string(q.Sort)},
	}
	endpoint := c.baseURL + "/xrpc/" + getPostThreadV2 + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > maxResponseSize {
		return nil, fmt.Errorf("%w: over %d bytes", ErrResponseTooLarge, maxResponseSize)
	}
	if res.StatusCode != http.StatusOK {
		return nil, parseError(res.StatusCode, body)
	}

	resp, err := thread.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode thread: %w", err)
	}
	return resp, nil
}

func parseError(status int, body []byte) *Error {
	e := &Error{Status: status}
	if gjson.ValidBytes(body) {
		parsed := gjson.ParseBytes(body)
		e.Name = parsed.Get("error").String()
		e.Message = parsed.Get("message").String()
	}
	return e
}
