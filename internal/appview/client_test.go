package appview

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reply-overlay/internal/thread"
)

const anchor = "at://did:plc:a/app.bsky.feed.post/3k1"

func TestGetThreadSendsQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/xrpc/app.bsky.unspecced.getPostThreadV2" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("anchor") != anchor {
			t.Errorf("anchor = %q", q.Get("anchor"))
		}
		if q.Get("branchingFactor") != "10" || q.Get("below") != "20" || q.Get("sort") != "newest" {
			t.Errorf("unexpected window: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"thread":[{"uri":"` + anchor + `","depth":0,"value":{"post":{"uri":"` + anchor + `","author":{"handle":"a.test"}}}}],"hasOtherReplies":true}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", time.Second)
	resp, err := client.GetThread(context.Background(), thread.Query(anchor))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Post == nil || resp.Items[0].Post.Author.Handle != "a.test" {
		t.Errorf("unexpected response %+v", resp)
	}
	if !resp.HasOtherReplies {
		t.Error("expected HasOtherReplies")
	}
}

func TestGetThreadXRPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"NotFound","message":"Post not found"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, time.Second).GetThread(context.Background(), thread.Query(anchor))
	var xrpcErr *Error
	if !errors.As(err, &xrpcErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if xrpcErr.Status != http.StatusBadRequest || xrpcErr.Name != "NotFound" || xrpcErr.Message != "Post not found" {
		t.Errorf("unexpected error %+v", xrpcErr)
	}
}

func TestGetThreadInvalidBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>oops</html>`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, time.Second).GetThread(context.Background(), thread.Query(anchor))
	if !errors.Is(err, thread.ErrInvalidResponse) {
		t.Errorf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestGetThreadRejectsOversizedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"thread":[],"pad":"`))
		w.Write(bytes.Repeat([]byte("x"), maxResponseSize))
		w.Write([]byte(`"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, 5*time.Second).GetThread(context.Background(), thread.Query(anchor))
	if !errors.Is(err, ErrResponseTooLarge) {
		t.Errorf("expected ErrResponseTooLarge, got %v", err)
	}
	if errors.Is(err, thread.ErrInvalidResponse) {
		t.Error("oversized body reported as invalid JSON")
	}
}

func TestGetThreadHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewClient(server.URL, time.Second).GetThread(ctx, thread.Query(anchor)); err == nil {
		t.Error("expected error for cancelled context")
	}
}
