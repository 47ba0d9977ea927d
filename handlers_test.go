package main

import (
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/guregu/null/v6"

	"reply-overlay/internal/cache"
	"reply-overlay/internal/overlay"
	"reply-overlay/internal/replymedia"
	"reply-overlay/internal/types"
)

const (
	testAnchor   = "at://did:plc:op/app.bsky.feed.post/anchor"
	emptyAnchor  = "at://did:plc:op/app.bsky.feed.post/quiet"
	brokenAnchor = "at://did:plc:op/app.bsky.feed.post/broken"
)

// stubFetcher answers testAnchor with one image and one video reply, emptyAnchor with
// a text-only thread and brokenAnchor with an error.
type stubFetcher struct {
	calls atomic.Int32
}

func (f *stubFetcher) GetThread(ctx context.Context, q types.ThreadQuery) (*types.ThreadResponse, error) {
	f.calls.Add(1)
	switch q.Anchor {
	case brokenAnchor:
		return nil, errors.New("xrpc: status 502")
	case emptyAnchor:
		text := types.PostRecord{URI: q.Anchor + "/text", Author: types.Author{Handle: "t.test"}}
		return &types.ThreadResponse{Items: []types.ThreadItem{{Depth: null.IntFrom(1), Post: &text}}}, nil
	}
	img := types.PostRecord{
		URI:    "at://did:plc:b/app.bsky.feed.post/rkb",
		Author: types.Author{Handle: "b.test"},
		Embed:  types.ImagesEmbed{Images: []types.Image{{Thumb: "https://cdn.test/b.jpg", Alt: "a cat"}}},
	}
	vid := types.PostRecord{
		URI:    "at://did:plc:d/app.bsky.feed.post/rkd",
		Author: types.Author{Handle: "d.test"},
		Embed:  types.RecordWithMediaEmbed{Media: types.VideoEmbed{Thumbnail: "https://video.test/d.jpg"}},
	}
	return &types.ThreadResponse{Items: []types.ThreadItem{
		{Depth: null.IntFrom(0), Post: &types.PostRecord{URI: q.Anchor, Author: types.Author{Handle: "op.test"}}},
		{Depth: null.IntFrom(1), Post: &img},
		{Depth: null.IntFrom(2), Post: &vid},
	}}, nil
}

func newTestServer(t *testing.T) (http.Handler, *stubFetcher) {
	t.Helper()
	h, fetcher, _ := newTestServerWithCache(t)
	return h, fetcher
}

func newTestServerWithCache(t *testing.T) (http.Handler, *stubFetcher, *cache.MemoryCache) {
	t.Helper()
	fetcher := &stubFetcher{}
	mc := cache.NewMemoryCache(100, time.Hour)
	t.Cleanup(func() { mc.Close() })

	presenter, err := overlay.NewPresenter("")
	if err != nil {
		t.Fatalf("NewPresenter: %v", err)
	}
	srv := &server{
		service:     replymedia.NewService(fetcher, cache.NewReplyMediaStore(mc), cache.DefaultCacheConfig()),
		presenter:   presenter,
		webBaseURL:  "https://bsky.app",
		backend:     mc,
		backendType: "memory",
	}
	return srv.routes(), fetcher, mc
}

func get(h http.Handler, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func q(uri string) string { return url.QueryEscape(uri) }

func TestReplyMediaJSON(t *testing.T) {
	h, fetcher := newTestServer(t)

	rec := get(h, "/reply-media?uri="+q(testAnchor))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}

	var resp struct {
		Anchor string `json:"anchor"`
		Posts  []struct {
			URI    string `json:"uri"`
			Author struct {
				Handle string `json:"handle"`
			} `json:"author"`
		} `json:"posts"`
		Layout overlay.Plan `json:"layout"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Anchor != testAnchor || len(resp.Posts) != 2 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Posts[0].Author.Handle != "b.test" || resp.Posts[1].URI != "at://did:plc:d/app.bsky.feed.post/rkd" {
		t.Errorf("posts = %+v", resp.Posts)
	}
	if resp.Layout != (overlay.Plan{Mode: overlay.ModeVertical, Columns: 1, Rows: 2}) {
		t.Errorf("layout = %+v", resp.Layout)
	}

	get(h, "/reply-media?uri="+q(testAnchor))
	if n := fetcher.calls.Load(); n != 1 {
		t.Errorf("fetches = %d, want 1 (second request cached)", n)
	}
}

func TestReplyMediaBatch(t *testing.T) {
	h, _ := newTestServer(t)

	rec := get(h, "/reply-media?uri="+q(testAnchor)+"&uri="+q(brokenAnchor))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp []struct {
		Anchor string            `json:"anchor"`
		Posts  []json.RawMessage `json:"posts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 2 || resp[0].Anchor != testAnchor || resp[1].Anchor != brokenAnchor {
		t.Fatalf("resp = %+v", resp)
	}
	if len(resp[0].Posts) != 2 || resp[1].Posts == nil || len(resp[1].Posts) != 0 {
		t.Errorf("posts = %d, %v; want 2 and an empty list for the failed fetch", len(resp[0].Posts), resp[1].Posts)
	}
}

func TestReplyMediaRejectsBadRequests(t *testing.T) {
	h, fetcher := newTestServer(t)

	for _, target := range []string{
		"/reply-media",
		"/reply-media?uri=",
		"/reply-media?uri=" + q("https://bsky.app/profile/x/post/y"),
		"/reply-media?uri=" + q("at://"),
		"/html/reply-media?uri=" + q(testAnchor) + "&uri=" + q(emptyAnchor),
		"/html/open?uri=" + q(testAnchor),
		"/reply-media/qr?handle=b.test",
		"/html/theme?set=blue",
	} {
		if rec := get(h, target); rec.Code != http.StatusBadRequest {
			t.Errorf("GET %s = %d, want 400", target, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/reply-media?uri="+q(testAnchor), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST = %d, want 405", rec.Code)
	}

	if n := fetcher.calls.Load(); n != 0 {
		t.Errorf("fetches = %d, want 0", n)
	}
}

func TestHTMLReplyMediaFragment(t *testing.T) {
	h, _ := newTestServer(t)

	rec := get(h, "/html/reply-media?uri="+q(testAnchor), &http.Cookie{Name: "theme", Value: "dark"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("missing security headers")
	}
	body := rec.Body.String()
	for _, want := range []string{"https://cdn.test/b.jpg", "https://video.test/d.jpg", `alt="a cat"`, "#2e4052", "/html/open?handle=b.test"} {
		if !strings.Contains(body, want) {
			t.Errorf("fragment missing %q:\n%s", want, body)
		}
	}
}

func TestHTMLReplyMediaEmptyIsNoContent(t *testing.T) {
	h, _ := newTestServer(t)

	for _, anchor := range []string{emptyAnchor, brokenAnchor} {
		rec := get(h, "/html/reply-media?uri="+q(anchor))
		if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
			t.Errorf("%s: status = %d, body = %q; want 204 with no body", anchor, rec.Code, rec.Body)
		}
	}
}

func TestHTMLOpenRedirects(t *testing.T) {
	h, _ := newTestServer(t)

	rec := get(h, "/html/open?uri="+q("at://did:plc:b/app.bsky.feed.post/rkb")+"&handle=b.test")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://bsky.app/profile/b.test/post/rkb" {
		t.Errorf("Location = %q", loc)
	}
}

func TestQRCodeEndpoint(t *testing.T) {
	h, _ := newTestServer(t)

	rec := get(h, "/reply-media/qr?uri="+q("at://did:plc:b/app.bsky.feed.post/rkb")+"&handle=b.test&size=10")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("status = %d, Content-Type = %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("png: %v", err)
	}
	if img.Bounds().Dx() < 64 {
		t.Errorf("size = %d, want clamped to at least 64", img.Bounds().Dx())
	}
}

func TestQRCodeEndpointDataURL(t *testing.T) {
	h, _ := newTestServer(t)
	base := "/reply-media/qr?uri=" + q("at://did:plc:b/app.bsky.feed.post/rkb") + "&handle=b.test"

	rec := get(h, base+"&format=dataurl")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Href    string `json:"href"`
		DataURL string `json:"dataUrl"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Href != "https://bsky.app/profile/b.test/post/rkb" {
		t.Errorf("href = %q", body.Href)
	}
	if !strings.HasPrefix(body.DataURL, "data:image/png;base64,") {
		t.Errorf("dataUrl = %.40q", body.DataURL)
	}

	if rec := get(h, base+"&format=svg"); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown format status = %d, want 400", rec.Code)
	}
}

func TestThemeHandlerSetsCookie(t *testing.T) {
	h, _ := newTestServer(t)

	rec := get(h, "/html/theme?set=dark")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "theme" || cookies[0].Value != "dark" || cookies[0].Secure {
		t.Errorf("cookies = %+v", cookies)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h, _ := newTestServer(t)

	rec := get(h, "/health")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"cache":"memory"`) {
		t.Errorf("health = %d %s", rec.Code, rec.Body)
	}
	if rec.Header().Get("X-Request-ID") != "" {
		t.Error("health checks should skip request logging")
	}

	rec = get(h, "/metrics")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "reply_media_fetches_total") {
		t.Errorf("metrics = %d", rec.Code)
	}
}

func TestHealthDegradedWhenCacheDown(t *testing.T) {
	h, _, mc := newTestServerWithCache(t)
	mc.Close()

	rec := get(h, "/health")
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), `"status":"degraded"`) {
		t.Errorf("health = %d %s", rec.Code, rec.Body)
	}
}

func TestRequestIDPropagation(t *testing.T) {
	h, _ := newTestServer(t)

	const id = "7f1c2f8e-4a5b-4c6d-8e9f-0a1b2c3d4e5f"
	req := httptest.NewRequest(http.MethodGet, "/reply-media?uri="+q(emptyAnchor), nil)
	req.Header.Set("X-Request-ID", id)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != id {
		t.Errorf("X-Request-ID = %q, want %q", got, id)
	}

	req = httptest.NewRequest(http.MethodGet, "/reply-media?uri="+q(emptyAnchor), nil)
	req.Header.Set("X-Request-ID", "<script>")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got == "<script>" || got == "" {
		t.Errorf("X-Request-ID = %q, want a fresh id", got)
	}
}
